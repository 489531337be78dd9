// Package colorize talks to the external colorization engine and stores the
// returned image next to its source.
package colorize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/minorlabs/colorizer/pkg/blob"
)

// UpstreamError wraps any failure of the external engine: network errors,
// non-success statuses and non-image payloads.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("colorize engine: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsUpstreamError reports whether err originated at the engine boundary.
func IsUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// Engine is the port to the external colorization service: a single
// best-effort binary-in, binary-out call.
type Engine interface {
	Colorize(ctx context.Context, image io.Reader, filename string) ([]byte, error)
}

// HTTPEngine posts the image as multipart form data (field "image") to a
// fixed endpoint and expects a raw image body back.
type HTTPEngine struct {
	url    string
	client *http.Client
}

func NewHTTPEngine(url string, client *http.Client) *HTTPEngine {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPEngine{url: url, client: client}
}

func (e *HTTPEngine) Colorize(ctx context.Context, image io.Reader, filename string) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("read source image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, &UpstreamError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, &body)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Err: fmt.Errorf("engine returned status %d", resp.StatusCode)}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	if len(payload) == 0 || strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		return nil, &UpstreamError{Err: fmt.Errorf("engine returned a non-image payload")}
	}
	return payload, nil
}

// Client streams a stored source image through the engine and writes the
// colorized result back to blob storage.
type Client struct {
	engine Engine
	store  blob.Store
}

func NewClient(engine Engine, store blob.Store) *Client {
	return &Client{engine: engine, store: store}
}

// Colorize reads the source blob, calls the engine once, and stores the
// result under the derived name. On engine failure nothing is written.
func (c *Client) Colorize(ctx context.Context, sourceName string) (string, error) {
	src, err := c.store.Open(ctx, sourceName)
	if err != nil {
		return "", fmt.Errorf("open source image: %w", err)
	}
	defer src.Close() //nolint:errcheck // best-effort close

	payload, err := c.engine.Colorize(ctx, src, sourceName)
	if err != nil {
		return "", err
	}

	derived := DerivedName(sourceName)
	if err := c.store.Save(ctx, derived, bytes.NewReader(payload)); err != nil {
		return "", fmt.Errorf("store colorized image: %w", err)
	}
	return derived, nil
}

// DerivedName derives the colorized blob name from its source by appending
// a _colorized marker before the extension.
func DerivedName(sourceName string) string {
	ext := path.Ext(sourceName)
	return strings.TrimSuffix(sourceName, ext) + "_colorized" + ext
}
