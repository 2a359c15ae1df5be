package ledger

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const bucketScheme = "gs://"

const csvContentType = "text/csv; charset=utf-8"

// object is the part of a cloud storage object handle that the ledger uses
type object interface {
	NewReader(ctx context.Context) (io.ReadCloser, error)
	NewWriter(ctx context.Context, contentType string) io.WriteCloser
}

// gcsObject adapts a storage.ObjectHandle to object
type gcsObject struct {
	h *storage.ObjectHandle
}

func (o gcsObject) NewReader(ctx context.Context) (io.ReadCloser, error) {
	return o.h.NewReader(ctx)
}

func (o gcsObject) NewWriter(ctx context.Context, contentType string) io.WriteCloser {
	wr := o.h.NewWriter(ctx)
	wr.ContentType = contentType
	return wr
}

// BucketStorage keeps the ledger as an object in a cloud storage bucket, so
// that scheduled runs on throwaway machines see each other's updates. The
// storage client is created on first use, so that opening the ledger does
// not look up cloud credentials.
type BucketStorage struct {
	bucket string
	name   string
	opts   []option.ClientOption
	client *storage.Client
	obj    object
}

// NewBucketStorage returns storage for gs://bucket/object
func NewBucketStorage(bucket, object string, opts ...option.ClientOption) *BucketStorage {
	return &BucketStorage{
		bucket: bucket,
		name:   object,
		opts:   opts,
	}
}

func (s *BucketStorage) handle(ctx context.Context) (object, error) {
	if s.obj != nil {
		return s.obj, nil
	}
	client, err := storage.NewClient(ctx, s.opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating storage client: %w", err)
	}
	s.client = client
	s.obj = gcsObject{h: client.Bucket(s.bucket).Object(s.name)}
	return s.obj, nil
}

func (s *BucketStorage) Read(ctx context.Context) ([]byte, error) {
	obj, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	r, err := obj.NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ioutil.ReadAll(r)
}

func (s *BucketStorage) Write(ctx context.Context, buf []byte) error {
	obj, err := s.handle(ctx)
	if err != nil {
		return err
	}
	wr := obj.NewWriter(ctx, csvContentType)

	_, err = wr.Write(buf)
	if err != nil {
		wr.Close()
		return fmt.Errorf("error writing to cloud storage: %w", err)
	}
	err = wr.Close()
	if err != nil {
		return fmt.Errorf("error writing to cloud storage: %w", err)
	}
	return nil
}

func (s *BucketStorage) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *BucketStorage) String() string {
	return bucketScheme + s.bucket + "/" + s.name
}

// parseBucketURL splits gs://bucket/path/to/object
func parseBucketURL(location string) (bucket, object string, err error) {
	rest := strings.TrimPrefix(location, bucketScheme)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid cloud storage location %q, expected gs://bucket/object", location)
	}
	return parts[0], parts[1], nil
}
