package upload

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minorlabs/colorizer/pkg/blob"
)

// makeFilePart builds a real multipart request and returns the parsed file
// part, so the validator sees exactly what a handler would hand it.
func makeFilePart(t *testing.T, filename, contentType string, size int) (multipart.File, *multipart.FileHeader) {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("x"), size))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/color-image", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	file, header, err := req.FormFile("image")
	require.NoError(t, err)
	t.Cleanup(func() { _ = file.Close() })
	return file, header
}

func setupValidator(t *testing.T) (*Validator, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := blob.NewFileStore(dir)
	require.NoError(t, err)
	return NewValidator(store), dir
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestAcceptStoresValidUpload(t *testing.T) {
	v, dir := setupValidator(t)
	file, header := makeFilePart(t, "cat.png", "image/png", 500*1024)

	name, err := v.Accept(context.Background(), file, header, "cat")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(name, "image-"), "generated name, not the client's: %s", name)
	assert.True(t, strings.HasSuffix(name, ".png"))
	assert.NotEqual(t, "cat.png", name)
	assert.Equal(t, 1, countFiles(t, dir), "exactly one file written")
}

func TestAcceptMissingFileBeforeLabel(t *testing.T) {
	v, dir := setupValidator(t)

	// No file and no label must fail on the file.
	_, err := v.Accept(context.Background(), nil, nil, "")
	assert.ErrorIs(t, err, ErrMissingFile)
	assert.Equal(t, 0, countFiles(t, dir))
}

func TestAcceptMissingLabel(t *testing.T) {
	v, dir := setupValidator(t)
	file, header := makeFilePart(t, "cat.png", "image/png", 1024)

	_, err := v.Accept(context.Background(), file, header, "   ")
	assert.ErrorIs(t, err, ErrMissingLabel)
	assert.Equal(t, 0, countFiles(t, dir))
}

func TestAcceptRejectsOversizedFile(t *testing.T) {
	v, dir := setupValidator(t)
	file, header := makeFilePart(t, "big.jpg", "image/jpeg", MaxFileBytes+1)

	_, err := v.Accept(context.Background(), file, header, "big")
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Equal(t, 0, countFiles(t, dir))
}

func TestAcceptRejectsUnsupportedTypes(t *testing.T) {
	v, dir := setupValidator(t)

	cases := []struct {
		filename    string
		contentType string
	}{
		{"script.svg", "image/svg+xml"},
		{"doc.pdf", "application/pdf"},
		{"noext", "image/png"},
		// Extension and declared MIME must agree.
		{"cat.png", "image/gif"},
		{"cat.png", "application/octet-stream"},
	}
	for _, tc := range cases {
		file, header := makeFilePart(t, tc.filename, tc.contentType, 128)
		_, err := v.Accept(context.Background(), file, header, "label")
		assert.ErrorIs(t, err, ErrUnsupportedType, "%s / %s", tc.filename, tc.contentType)
	}
	assert.Equal(t, 0, countFiles(t, dir))
}

func TestAcceptAllowsEveryListedType(t *testing.T) {
	v, _ := setupValidator(t)

	cases := []struct {
		filename    string
		contentType string
	}{
		{"a.jpeg", "image/jpeg"},
		{"b.jpg", "image/jpeg"},
		{"c.JPG", "image/jpeg"},
		{"d.png", "image/png"},
		{"e.gif", "image/gif"},
		{"f.png", "image/png; charset=binary"},
	}
	for _, tc := range cases {
		file, header := makeFilePart(t, tc.filename, tc.contentType, 128)
		_, err := v.Accept(context.Background(), file, header, "label")
		assert.NoError(t, err, "%s / %s", tc.filename, tc.contentType)
	}
}

func TestStorageNamesDoNotCollide(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		name := storageName(".png")
		assert.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true
	}
}
