/*
Package storage stores uploaded images and recognizes the references it hands out.

Two backends exist: a local directory served by the HTTP server, and an S3-compatible
bucket with a public URL prefix. Chat image messages must point at one of these references.
*/
package storage

import (
	"context"
	"io"
	"strings"

	"punkspace/internal/pkg/randx"
)

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	// Local disk backend.
	UploadDir string
	URLPath   string

	// S3 backend, used when S3BucketName is set.
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PublicURL       string
}

// StorageService defines the public interface for the file storage service.
type StorageService interface {
	// Upload stores body under key and returns the public reference for it.
	Upload(ctx context.Context, key string, contentType string, body io.Reader) (string, error)

	// Owns reports whether ref is a reference this service produced.
	Owns(ref string) bool
}

// NewStorageService is the factory function for StorageService.
// It returns the S3 backend when a bucket is configured and the local disk backend otherwise.
func NewStorageService(ctx context.Context, cfg ServiceConfig) (StorageService, error) {
	if cfg.S3BucketName != "" {
		return newS3Client(ctx, cfg)
	}
	return newLocalStore(cfg)
}

// ownsUnder reports whether ref is prefix + "/" + a generated upload name.
func ownsUnder(prefix, ref string) bool {
	name, ok := strings.CutPrefix(ref, prefix+"/")
	if !ok {
		return false
	}
	return randx.IsUploadName(name)
}
