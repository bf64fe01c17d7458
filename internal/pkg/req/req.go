/*
Package req provides helper functions for HTTP request parsing and data binding.

It wraps JSON and multipart decoding with size limits and maps failures to errs codes.
*/
package req

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"punkspace/internal/pkg/errs"
)

const (
	// MaxJSONBodyBytes caps JSON request bodies (profile CSS/HTML blobs are the largest payloads).
	MaxJSONBodyBytes int64 = 256 << 10

	// MaxFormMemory is the amount of multipart data kept in memory before spilling to temp files.
	MaxFormMemory int64 = 8 << 20
)

// BindJSON decodes the JSON request body into dst, rejecting unknown fields and trailing data.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}

// FormFile parses a multipart request capped at maxBytes and returns the named file part.
// The caller must close the returned file.
func FormFile(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) (multipart.File, *multipart.FileHeader, *errs.CustomError) {
	// Leave room for multipart boundaries and headers around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+64<<10)

	if err := r.ParseMultipartForm(MaxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return nil, nil, errs.NewError(errs.ErrFormParseFailed)
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, errs.NewError(errs.ErrInvalidParams)
	}

	return file, header, nil
}

// IDParam parses a positive integer chi URL parameter.
func IDParam(r *http.Request, name string) (int64, *errs.CustomError) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.NewError(errs.ErrInvalidParams)
	}
	return id, nil
}
