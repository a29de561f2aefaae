package dto

import "time"

// UploadResponse describes a stored file.
type UploadResponse struct {
	ID         string    `json:"id"`
	Collection string    `json:"collection"`
	URL        string    `json:"url"`
	SizeBytes  int64     `json:"size_bytes"`
	MimeType   string    `json:"mime_type"`
	Checksum   string    `json:"checksum"`
	FileName   string    `json:"file_name"`
	UploadedBy string    `json:"uploaded_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// UploadListRequest filters the media library.
type UploadListRequest struct {
	Page       int
	PageSize   int
	Collection string
	UploadedBy string
}

// UploadListResponse wraps a page of stored files.
type UploadListResponse struct {
	Items      []UploadResponse `json:"items"`
	Pagination PaginationMeta   `json:"pagination"`
}
