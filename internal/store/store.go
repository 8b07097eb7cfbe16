// Package store provides the flat key-value persistence used for session
// state: an absent key means "use the default".
package store

import (
	"context"
	"time"
)

type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Entry describes one stored key without its value.
type Entry struct {
	Key       string
	Size      int
	UpdatedAt time.Time
}

// Lister is implemented by stores that can enumerate their keys.
type Lister interface {
	Entries(ctx context.Context) ([]Entry, error)
}
