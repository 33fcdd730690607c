// Package storage defines access to the directory of container files the
// workbench serves.
package storage

import "time"

// FileInfo describes one container file.
type FileInfo struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for container file operations. Paths are
// relative to the data directory.
type Provider interface {
	// List returns metadata for every container file under dir.
	List(dir string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}
