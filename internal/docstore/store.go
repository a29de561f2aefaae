package docstore

import (
	"context"
	"strings"
)

// Order fields accepted by List.
const (
	OrderByCreatedAt = "created_at"
	OrderByUpdatedAt = "updated_at"
	OrderByKey       = "key"
)

// ListOptions narrows and pages a collection listing.
type ListOptions struct {
	Limit       int
	Offset      int
	OrderBy     string
	Desc        bool
	Description string
	Owner       string
	KeyPrefix   string
}

// ListResult holds one page of documents and the total number matching the filter.
type ListResult struct {
	Items []Document
	Total int64
}

// Reader is the read side of the store.
type Reader interface {
	// Get returns the document and true, or an empty document and false when it is absent.
	Get(ctx context.Context, collection, key string) (Document, bool, error)
	List(ctx context.Context, collection string, opts ListOptions) (ListResult, error)
}

// Store is the backend document store client.
type Store interface {
	Reader
	// Set creates or replaces the document addressed by doc.Collection and doc.Key.
	Set(ctx context.Context, doc Document) (Document, error)
	// Delete removes the document. It returns ErrNotFound when nothing was stored.
	Delete(ctx context.Context, collection, key string) error
}

func orderColumn(field string) string {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case OrderByUpdatedAt:
		return "updated_at"
	case OrderByKey:
		return "doc_key"
	default:
		return "created_at"
	}
}
