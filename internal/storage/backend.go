package storage

import "io"

// Backend is the interface that wraps the basic file operations used to
// archive the uploaded files.
type Backend interface {
	// Name returns the name of the backend implementation.
	Name() string

	// Reader returns a ReadCloser of the file.
	Reader(bucket, name string) (io.ReadCloser, error)
	// Writer returns a WriteCloser of the file.
	Writer(bucket, name string) (io.WriteCloser, error)
	// Exist returns true if the file is present in the backend.
	Exist(bucket, name string) bool

	// Remove deletes the given file.
	Remove(bucket, name string) error
	// Cleanup cleans useless artifacts in storage.
	Cleanup() error
}
