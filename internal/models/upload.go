package models

import "time"

// UploadRecord tracks a file stored for a collection.
type UploadRecord struct {
	ID         string    `json:"id"`
	Collection string    `json:"collection"`
	FileName   string    `json:"file_name"`
	URL        string    `json:"url"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	Checksum   string    `json:"checksum"`
	UploadedBy string    `json:"uploaded_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
