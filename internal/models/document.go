package models

import "time"

// Document is one attached file slot on an application. DocType matches the
// <type> part of the document_<type> field key addressing the slot.
type Document struct {
	ID            string    `db:"id" json:"id"`
	ApplicationID string    `db:"application_id" json:"application_id"`
	DocType       string    `db:"doc_type" json:"doc_type"`
	FileName      string    `db:"file_name" json:"file_name"`
	FilePath      string    `db:"file_path" json:"-"`
	FileSize      int64     `db:"file_size" json:"file_size"`
	MimeType      string    `db:"mime_type" json:"mime_type"`
	Meta          JSONMap   `db:"meta" json:"meta"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
