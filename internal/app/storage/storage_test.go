package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"punkspace/internal/pkg/errs"
	"punkspace/internal/pkg/randx"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestLocalStoreUploadAndOwns(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewStorageService(context.Background(), ServiceConfig{UploadDir: dir, URLPath: "/uploads/"})
	require.NoError(t, err)

	key, err := randx.UploadName(".png")
	require.NoError(t, err)

	url, err := svc.Upload(context.Background(), key, "image/png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/"+key, url)

	written, err := os.ReadFile(filepath.Join(dir, key))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, written)

	assert.True(t, svc.Owns(url))
	assert.False(t, svc.Owns("https://evil.example/x.png"))
	assert.False(t, svc.Owns("/uploads/../secret.png"))
	assert.False(t, svc.Owns(key))
}

func TestLocalStoreRejectsForeignKeys(t *testing.T) {
	svc, err := NewStorageService(context.Background(), ServiceConfig{UploadDir: t.TempDir(), URLPath: "/uploads"})
	require.NoError(t, err)

	_, err = svc.Upload(context.Background(), "../escape.png", "image/png", bytes.NewReader(pngHeader))
	assert.Error(t, err)
}

func TestS3Owns(t *testing.T) {
	c := &s3Client{cfg: ServiceConfig{S3PublicURL: "https://cdn.example"}}
	key, err := randx.UploadName(".gif")
	require.NoError(t, err)

	assert.True(t, c.Owns("https://cdn.example/"+key))
	assert.False(t, c.Owns("/uploads/"+key))
}

func TestValidateFileType(t *testing.T) {
	mime, ext, cErr := ValidateFileType("Cat.PNG", pngHeader)
	require.Nil(t, cErr)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, ".png", ext)

	_, _, cErr = ValidateFileType("cat.jpg", pngHeader)
	require.NotNil(t, cErr)
	assert.Equal(t, errs.ErrFileTypeInvalid, cErr.Code)

	_, _, cErr = ValidateFileType("notes.png", []byte("just some text"))
	require.NotNil(t, cErr)
	assert.Equal(t, errs.ErrFileTypeInvalid, cErr.Code)
}

func TestValidateFileSize(t *testing.T) {
	assert.Nil(t, ValidateFileSize(10, 10))
	assert.Equal(t, errs.ErrInvalidParams, ValidateFileSize(0, 10).Code)
	assert.Equal(t, errs.ErrFileSizeTooLarge, ValidateFileSize(11<<20, 5<<20).Code)
}
