package docstore

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Document is a keyed JSON record stored inside a named collection.
type Document struct {
	ID          uint           `gorm:"primaryKey" json:"-"`
	Collection  string         `gorm:"size:64;not null;uniqueIndex:idx_documents_collection_key" json:"collection"`
	Key         string         `gorm:"column:doc_key;size:191;not null;uniqueIndex:idx_documents_collection_key" json:"key"`
	Description string         `gorm:"size:255;index" json:"description,omitempty"`
	Owner       string         `gorm:"size:128;index" json:"owner,omitempty"`
	Data        datatypes.JSON `gorm:"type:json" json:"data"`
	Version     int64          `gorm:"not null;default:1" json:"version"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName overrides the default table name.
func (Document) TableName() string {
	return "documents"
}

// NewDocument encodes value as the payload of a document addressed by collection and key.
func NewDocument(collection, key string, value interface{}) (Document, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return Document{}, fmt.Errorf("encode %s/%s: %w", collection, key, err)
	}

	return Document{
		Collection: collection,
		Key:        key,
		Data:       datatypes.JSON(payload),
	}, nil
}

// Decode unmarshals the document payload into target.
func (d Document) Decode(target interface{}) error {
	if len(d.Data) == 0 {
		return fmt.Errorf("decode %s/%s: empty payload", d.Collection, d.Key)
	}
	if err := json.Unmarshal(d.Data, target); err != nil {
		return fmt.Errorf("decode %s/%s: %w", d.Collection, d.Key, err)
	}
	return nil
}
