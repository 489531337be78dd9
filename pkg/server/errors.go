package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/minorlabs/colorizer/pkg/api"
	"github.com/minorlabs/colorizer/pkg/colorize"
	"github.com/minorlabs/colorizer/pkg/history"
	"github.com/minorlabs/colorizer/pkg/upload"
)

// writeServiceError maps the domain error taxonomy onto HTTP statuses.
// Validation and not-found failures carry their own message; everything else
// is sanitized to a generic message and logged server-side.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case upload.IsValidationError(err), errors.Is(err, history.ErrEmptyLabel):
		api.WriteBadRequest(w, userMessage(err))
	case errors.Is(err, history.ErrNotFound):
		api.WriteNotFound(w, "Image not found")
	case colorize.IsUpstreamError(err):
		slog.Error("colorization engine failure", "error", err)
		api.WriteError(w, http.StatusInternalServerError, api.CodeUpstream, "Colorization service is unavailable")
	default:
		api.WriteInternal(w, err)
	}
}

// userMessage rewrites validation sentinels into client-facing text.
func userMessage(err error) string {
	switch {
	case errors.Is(err, upload.ErrMissingFile):
		return "No valid file uploaded."
	case errors.Is(err, upload.ErrMissingLabel), errors.Is(err, history.ErrEmptyLabel):
		return "A label is required."
	case errors.Is(err, upload.ErrTooLarge):
		return "File too large. Maximum size allowed is 2MB."
	case errors.Is(err, upload.ErrUnsupportedType):
		return "Only JPEG, JPG, PNG, and GIF files are allowed."
	default:
		return "Invalid request."
	}
}
