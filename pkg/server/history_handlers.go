package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/minorlabs/colorizer/pkg/api"
	"github.com/minorlabs/colorizer/pkg/auth"
	"github.com/minorlabs/colorizer/pkg/upload"
)

// maxMultipartMemory bounds the in-memory part of multipart parsing; larger
// bodies spill to temp files which the validator then rejects by size.
const maxMultipartMemory = upload.MaxFileBytes + 1<<20

// handleColorImage accepts a multipart upload (file field "whiteimage",
// text field "label"), runs the colorization pipeline and returns both
// storage references.
func (s *Server) handleColorImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.WriteMethodNotAllowed(w)
		return
	}

	ownerID, err := auth.GetOwnerID(r.Context())
	if err != nil {
		api.WriteUnauthorized(w, "")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		api.WriteBadRequest(w, "No valid file uploaded.")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	// "whiteimage" is the field name the browser client sends; "image" is
	// kept as an alias for direct API callers.
	file, header, err := r.FormFile("whiteimage")
	if err != nil {
		file, header, err = r.FormFile("image")
	}
	if err != nil {
		// The validator owns the missing-file failure so it is checked
		// ahead of the label.
		file, header = nil, nil
	}
	if file != nil {
		defer file.Close() //nolint:errcheck // best-effort close
	}
	label := r.FormValue("label")

	result, err := s.service.SubmitAndColorize(r.Context(), ownerID, file, header, label)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, result)
}

// handleSearchHistory lists the owner's paired history. An empty history
// returns 404, preserving the legacy contract the client depends on.
func (s *Server) handleSearchHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.WriteMethodNotAllowed(w)
		return
	}

	ownerID, err := auth.GetOwnerID(r.Context())
	if err != nil {
		api.WriteUnauthorized(w, "")
		return
	}

	entries, err := s.service.List(r.Context(), ownerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if len(entries) == 0 {
		api.WriteNotFound(w, "No history found")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"data": entries})
}

func (s *Server) handleSearchOne(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.WriteMethodNotAllowed(w)
		return
	}

	ownerID, err := auth.GetOwnerID(r.Context())
	if err != nil {
		api.WriteUnauthorized(w, "")
		return
	}

	id := pathID(r.URL.Path, "/search-one/")
	if id == "" {
		api.WriteNotFound(w, "Image not found")
		return
	}

	entry, err := s.service.FetchOne(r.Context(), ownerID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"data": entry})
}

func (s *Server) handleUpdateLabel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		api.WriteMethodNotAllowed(w)
		return
	}

	ownerID, err := auth.GetOwnerID(r.Context())
	if err != nil {
		api.WriteUnauthorized(w, "")
		return
	}

	id := pathID(r.URL.Path, "/update-label/")
	if id == "" {
		api.WriteNotFound(w, "Image not found")
		return
	}

	var body struct {
		Label string `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		api.WriteBadRequest(w, "A label is required.")
		return
	}

	src, err := s.service.Relabel(r.Context(), ownerID, id, body.Label)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Label updated successfully",
		"data":    src,
	})
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		api.WriteMethodNotAllowed(w)
		return
	}

	ownerID, err := auth.GetOwnerID(r.Context())
	if err != nil {
		api.WriteUnauthorized(w, "")
		return
	}

	id := pathID(r.URL.Path, "/delete-image/")
	if id == "" {
		api.WriteNotFound(w, "Image not found")
		return
	}

	if err := s.service.Remove(r.Context(), ownerID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Both images deleted successfully",
	})
}

// pathID extracts the trailing path segment after prefix. Nested paths are
// rejected.
func pathID(path, prefix string) string {
	id := strings.TrimPrefix(path, prefix)
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
