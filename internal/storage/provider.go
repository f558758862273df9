// Package storage keeps tab files on disk: the library of ingested songs and
// the inbox watched for new ones.
package storage

import "time"

// FileMeta describes a stored tab file.
type FileMeta struct {
	Path      string    `json:"path"`
	Hash      string    `json:"hash"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for tab file operations. Paths are relative to
// the provider root.
type Provider interface {
	// List returns metadata for every tab file under dir.
	List(dir string) ([]FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}
