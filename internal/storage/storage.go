// Package storage defines the Storage interface for uploaded project images and the
// factory that selects a backend by name.
//
// Backends register themselves from an init() function in their own package:
//
//	func init() {
//	    storage.Register("mybackend", func(cfg *config.Config) (storage.Storage, error) {
//	        return New(cfg)
//	    })
//	}
//
// cmd/server blank-imports each backend to trigger registration.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Download for a missing object
var ErrNotFound = errors.New("object not found")

// Storage is an object store for user uploads
type Storage interface {
	// Upload stores an object and returns its path, size and checksum
	Upload(ctx context.Context, path string, reader io.Reader, size int64, contentType string) (*UploadResult, error)

	// Download opens an object for reading
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes an object. Deleting a missing object succeeds.
	Delete(ctx context.Context, path string) error

	// GetURL returns the URL clients use to fetch the object
	GetURL(ctx context.Context, path string) (string, error)

	// Exists checks if an object exists at the specified path
	Exists(ctx context.Context, path string) (bool, error)
}

// UploadResult contains information about an uploaded object
type UploadResult struct {
	Path string
	Size int64
	// Checksum is the hex SHA256 of the contents
	Checksum string
}
