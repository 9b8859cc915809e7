package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Location is a parsed file location: either a local path or an object in
// an S3 bucket.
type Location struct {
	// Bucket is set for s3:// locations.
	Bucket string

	// Dir is the local directory or the key prefix inside the bucket.
	Dir string

	// Name is the file name within Dir.
	Name string
}

// IsS3 reports whether the location is in a bucket.
func (l Location) IsS3() bool { return l.Bucket != "" }

// String formats the location back to its textual form.
func (l Location) String() string {
	if l.IsS3() {
		return "s3://" + l.Bucket + "/" + path.Join(l.Dir, l.Name)
	}
	return filepath.Join(l.Dir, l.Name)
}

// Sibling returns the location of another file in the same directory.
func (l Location) Sibling(name string) Location {
	l.Name = name
	return l
}

// ParseLocation parses "s3://bucket/key" or a local filesystem path.
func ParseLocation(s string) (Location, error) {
	if s == "" {
		return Location{}, fmt.Errorf("storage: empty location")
	}
	if rest, ok := strings.CutPrefix(s, "s3://"); ok {
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
			return Location{}, fmt.Errorf("storage: invalid s3 location %q", s)
		}
		dir, name := path.Split(key)
		return Location{Bucket: bucket, Dir: strings.TrimSuffix(dir, "/"), Name: name}, nil
	}
	dir, name := filepath.Split(filepath.Clean(s))
	if name == "" || name == "." {
		return Location{}, fmt.Errorf("storage: location %q has no file name", s)
	}
	if dir == "" {
		dir = "."
	}
	return Location{Dir: dir, Name: name}, nil
}

// ParseDir parses a directory location, "s3://bucket/prefix" or a local
// path. The returned Location has an empty Name.
func ParseDir(s string) (Location, error) {
	if s == "" {
		return Location{}, fmt.Errorf("storage: empty location")
	}
	if rest, ok := strings.CutPrefix(s, "s3://"); ok {
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return Location{}, fmt.Errorf("storage: invalid s3 location %q", s)
		}
		return Location{Bucket: bucket, Dir: strings.Trim(prefix, "/")}, nil
	}
	return Location{Dir: filepath.Clean(s)}, nil
}

// Opener builds stores for locations. The S3 client is created lazily on
// the first s3:// location.
type Opener struct {
	S3 S3Config

	// NewClient overrides S3 client construction, for tests.
	NewClient func(ctx context.Context, cfg S3Config) (S3Client, error)

	client S3Client
}

// Open returns a store rooted at the location's directory; read the
// location's Name from it.
func (o *Opener) Open(ctx context.Context, loc Location) (FileStore, error) {
	if !loc.IsS3() {
		return NewLocal(loc.Dir)
	}
	if o.client == nil {
		newClient := o.NewClient
		if newClient == nil {
			newClient = func(ctx context.Context, cfg S3Config) (S3Client, error) {
				return NewS3Client(ctx, cfg)
			}
		}
		c, err := newClient(ctx, o.S3)
		if err != nil {
			return nil, err
		}
		o.client = c
	}
	return NewS3(o.client, loc.Bucket, loc.Dir), nil
}
