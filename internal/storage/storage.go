package storage

import (
	"context"
	"errors"
	"io"
)

// ErrUnsupportedType is returned when an upload is not a recognized image type.
var ErrUnsupportedType = errors.New("unsupported image content type")

// imageContentTypes lists the upload types accepted for profile and proof
// images.
var imageContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ObjectStorage defines the object operations shared across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
	Bucket() string
}

// Storage stores user-uploaded images on an object-storage backend.
type Storage struct {
	backend ObjectStorage
}

// NewStorage constructs a Storage over the provided backend.
func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// EnsureBucket makes sure the image bucket exists.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Put uploads an image. Non-image content types are rejected before any
// bytes reach the backend.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if !imageContentTypes[contentType] {
		return ErrUnsupportedType
	}
	return s.backend.Put(ctx, key, r, size, contentType)
}

// Open returns a reader for a stored image.
func (s *Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Open(ctx, key)
}

// Remove deletes a stored image. Used when a fresh upload replaces an old one.
func (s *Storage) Remove(ctx context.Context, key string) error {
	return s.backend.Remove(ctx, key)
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}
