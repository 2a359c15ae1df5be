package ledger

import (
	"context"
	"io/ioutil"
	"os"
	"strings"

	"google.golang.org/api/option"
)

// Storage holds the raw bytes of a ledger. Writes replace the whole content.
type Storage interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, buf []byte) error
	Close() error
	String() string
}

// FileStorage keeps the ledger in a file on the local filesystem
type FileStorage struct {
	Path string
}

func (s *FileStorage) Read(ctx context.Context) ([]byte, error) {
	return ioutil.ReadFile(s.Path)
}

// Write overwrites the file in place, keeping its permissions if it exists
func (s *FileStorage) Write(ctx context.Context, buf []byte) error {
	mode := os.FileMode(0644)
	if st, err := os.Stat(s.Path); err == nil {
		mode = st.Mode().Perm()
	}
	return ioutil.WriteFile(s.Path, buf, mode)
}

func (s *FileStorage) Close() error {
	return nil
}

func (s *FileStorage) String() string {
	return s.Path
}

// Open returns the storage for a ledger location. Locations of the form
// gs://bucket/object are kept in Google Cloud Storage; anything else is a
// local path. The client options are only used for cloud storage. Open does
// no I/O.
func Open(ctx context.Context, location string, opts ...option.ClientOption) (Storage, error) {
	if !strings.HasPrefix(location, bucketScheme) {
		return &FileStorage{Path: location}, nil
	}

	bucket, object, err := parseBucketURL(location)
	if err != nil {
		return nil, err
	}
	return NewBucketStorage(bucket, object, opts...), nil
}
