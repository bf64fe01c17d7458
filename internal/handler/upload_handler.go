package handler

import (
	"errors"
	"io"
	"net/http"

	"punkspace/internal/app/storage"
	"punkspace/internal/pkg/auth/jwt"
	"punkspace/internal/pkg/errs"
	"punkspace/internal/pkg/logx"
	"punkspace/internal/pkg/randx"
	"punkspace/internal/pkg/req"
	"punkspace/internal/pkg/resp"
)

// HandleUpload stores one image from the multipart field "file" and returns its reference.
func HandleUpload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		maxBytes := deps.Config.MaxUploadBytes

		file, header, customErr := req.FormFile(w, r, "file", maxBytes)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		defer file.Close()

		if customErr := storage.ValidateFileSize(header.Size, maxBytes); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		head := make([]byte, storage.SniffLength)
		n, err := io.ReadFull(file, head)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			resp.RespondError(w, r, errs.NewError(errs.ErrFormParseFailed))
			return
		}

		mimeType, ext, customErr := storage.ValidateFileType(header.Filename, head[:n])
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if _, err := file.Seek(0, io.SeekStart); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFormParseFailed))
			return
		}

		key, err := randx.UploadName(ext)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
			return
		}

		url, err := deps.StorageService.Upload(r.Context(), key, mimeType, file)
		if err != nil {
			logx.Error(err, "upload failed", "user_id", payload.ID, "key", key)
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		logx.Info("file uploaded", "user_id", payload.ID, "key", key, "size", header.Size)
		resp.RespondSuccess(w, r, map[string]string{"url": url})
	}
}
