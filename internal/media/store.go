// Package media manages the lifecycle of files attached to domain entities:
// promotion of locally staged uploads into remote object storage and
// cleanup of superseded or retired remote objects.
//
// Cleanup of old objects is best-effort. A failed delete leaves an orphaned
// object in the remote store to be reconciled out-of-band; it never fails
// the write that superseded it.
package media

import (
	"context"
	"io"
)

// Object is a stored remote object: its storage key and public URL.
type Object struct {
	Key string
	URL string
}

// Handle is a durable reference to a remote object attached to an entity.
type Handle struct {
	Key         string
	URL         string
	ContentType string
}

// RemoteStore is the capability interface over the object-storage backend.
// Callers depend only on this interface; the concrete backend is bound at
// deployment time.
type RemoteStore interface {
	// Upload stores the content and returns its key and public URL.
	Upload(ctx context.Context, content io.Reader, size int64, contentType string) (*Object, error)

	// Delete removes the object with the given key.
	Delete(ctx context.Context, key string) error
}
