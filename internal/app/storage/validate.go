package storage

import (
	"net/http"
	"path/filepath"
	"strings"

	"punkspace/internal/pkg/errs"
)

// SniffLength is how many leading bytes are inspected to detect the real content type.
const SniffLength = 512

// AllowedMIMETypes defines the set of permitted MIME types for uploaded images.
var AllowedMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// ExtToMIME maps file extensions to their corresponding MIME types.
var ExtToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// ValidateFileSize checks if the provided file size is within (0, maxSize].
func ValidateFileSize(fileSize, maxSize int64) *errs.CustomError {
	if fileSize <= 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if fileSize > maxSize {
		return errs.NewError(errs.ErrFileSizeTooLarge, maxSize>>20)
	}

	return nil
}

// ValidateFileType checks the file name extension against the sniffed content and returns
// the canonical MIME type and extension to store the file under.
func ValidateFileType(fileName string, head []byte) (string, string, *errs.CustomError) {
	sniffed := strings.ToLower(http.DetectContentType(head))
	if _, ok := AllowedMIMETypes[sniffed]; !ok {
		return "", "", errs.NewError(errs.ErrFileTypeInvalid)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if len(ext) < 2 {
		return "", "", errs.NewError(errs.ErrFileTypeInvalid)
	}

	expectedMIME, ok := ExtToMIME[ext]
	if !ok || expectedMIME != sniffed {
		return "", "", errs.NewError(errs.ErrFileTypeInvalid)
	}

	return sniffed, ext, nil
}
