package ports

import "context"

// FileStore stores attachment bytes under opaque keys.
type FileStore interface {
	// Put stores data and returns the key it can later be retrieved or
	// deleted by. suggestedName only informs the key's extension.
	Put(ctx context.Context, data []byte, suggestedName string) (string, error)
	// Delete removes the object under key. Deleting a key that does not
	// exist is not an error.
	Delete(ctx context.Context, key string) error
}
