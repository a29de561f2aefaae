package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/waqf-api/internal/docstore"
)

// ErrNotFound is returned when the addressed record does not exist.
var ErrNotFound = errors.New("record not found")

type docMeta struct {
	description string
	owner       string
}

func load(ctx context.Context, store docstore.Reader, collection, key string, target interface{}) error {
	doc, found, err := store.Get(ctx, collection, key)
	if err != nil {
		return fmt.Errorf("load %s/%s: %w", collection, key, err)
	}
	if !found {
		return ErrNotFound
	}
	return doc.Decode(target)
}

func save(ctx context.Context, store docstore.Store, collection, key string, value interface{}, meta docMeta) error {
	doc, err := docstore.NewDocument(collection, key, value)
	if err != nil {
		return err
	}
	doc.Description = meta.description
	doc.Owner = meta.owner

	if _, err := store.Set(ctx, doc); err != nil {
		return fmt.Errorf("save %s/%s: %w", collection, key, err)
	}
	return nil
}

func decodeAll[T any](items []docstore.Document) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		var value T
		if err := item.Decode(&value); err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

func offset(page, pageSize int) int {
	if pageSize <= 0 || page <= 1 {
		return 0
	}
	return (page - 1) * pageSize
}
