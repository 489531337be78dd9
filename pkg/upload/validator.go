// Package upload enforces the inbound file constraints and materializes
// accepted uploads into blob storage.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/minorlabs/colorizer/pkg/blob"
)

// MaxFileBytes is the upload size cap.
const MaxFileBytes = 2 << 20 // 2 MiB

// Validation failures. All of them reject the request before any blob is
// written.
var (
	ErrMissingFile     = errors.New("upload: no file provided")
	ErrMissingLabel    = errors.New("upload: label is required")
	ErrTooLarge        = fmt.Errorf("upload: file exceeds %d bytes", MaxFileBytes)
	ErrUnsupportedType = errors.New("upload: only JPEG, JPG, PNG and GIF files are allowed")
)

// IsValidationError reports whether err is one of the upload validation
// failures.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingFile) ||
		errors.Is(err, ErrMissingLabel) ||
		errors.Is(err, ErrTooLarge) ||
		errors.Is(err, ErrUnsupportedType)
}

// allowedTypes maps permitted extensions to their expected MIME types.
var allowedTypes = map[string][]string{
	".jpeg": {"image/jpeg"},
	".jpg":  {"image/jpeg", "image/jpg"},
	".png":  {"image/png"},
	".gif":  {"image/gif"},
}

// Validator checks one inbound file plus label and writes accepted files to
// durable storage under a collision-resistant name.
type Validator struct {
	store blob.Store
}

func NewValidator(store blob.Store) *Validator {
	return &Validator{store: store}
}

// Accept validates the file and label, then stores the bytes. It returns the
// generated storage name. On any failure no blob is written.
//
// The missing-file check runs before the label check so a request with
// neither fails on the file.
func (v *Validator) Accept(ctx context.Context, file multipart.File, header *multipart.FileHeader, label string) (string, error) {
	if file == nil || header == nil {
		return "", ErrMissingFile
	}
	if strings.TrimSpace(label) == "" {
		return "", ErrMissingLabel
	}
	if header.Size > MaxFileBytes {
		return "", ErrTooLarge
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	mimes, ok := allowedTypes[ext]
	if !ok {
		return "", ErrUnsupportedType
	}
	declared := strings.ToLower(strings.TrimSpace(strings.Split(header.Header.Get("Content-Type"), ";")[0]))
	if !contains(mimes, declared) {
		return "", ErrUnsupportedType
	}

	name := storageName(ext)
	// LimitReader backstops a lying Content-Length: never persist more
	// than the cap plus the one byte that proves the overrun.
	limited := io.LimitReader(file, MaxFileBytes+1)
	if err := v.store.Save(ctx, name, &capReader{r: limited}); err != nil {
		if errors.Is(err, errCapExceeded) {
			return "", ErrTooLarge
		}
		return "", fmt.Errorf("store upload: %w", err)
	}
	return name, nil
}

// storageName generates a collision-resistant name distinct from the
// client-supplied filename: image-<unix millis>-<random>.<ext>.
func storageName(ext string) string {
	return fmt.Sprintf("image-%d-%09d%s", time.Now().UnixMilli(), rand.Intn(1e9), ext)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

var errCapExceeded = errors.New("upload: size cap exceeded mid-stream")

// capReader fails the copy once more than MaxFileBytes have been read, so an
// oversized body aborts inside Save and the temp file is discarded.
type capReader struct {
	r io.Reader
	n int64
}

func (c *capReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.n > MaxFileBytes {
		return n, errCapExceeded
	}
	return n, err
}
