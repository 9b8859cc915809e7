// Package storage reads and writes the files the service depends on: model
// artifacts with their label sidecars, and the spectrogram images produced
// by the batch converter.
//
// A [FileStore] hides whether the files live on local disk or in an
// S3-compatible bucket. An [Opener] picks the backend from a location string
// such as "models/audio_v1.onnx" or "s3://hayat-models/audio_v1.onnx".
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// FileStore is a minimal interface for file-oriented storage.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Read opens the named file for reading. The caller must close the
	// returned ReadCloser. A missing file yields an error wrapping
	// os.ErrNotExist.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write opens the named file for writing, truncating any existing
	// content. The caller must close the WriteCloser to commit the data.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Delete removes the named file. Deleting a missing file is not an
	// error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, path string) (bool, error)
}

// ErrTooLarge is returned by [ReadFile] when a file exceeds the limit.
var ErrTooLarge = errors.New("storage: file too large")

// ReadFile reads a whole file. If limit is positive, files larger than
// limit bytes fail with ErrTooLarge.
func ReadFile(ctx context.Context, fs FileStore, path string, limit int64) ([]byte, error) {
	r, err := fs.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var src io.Reader = r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("storage: %s: %w (limit %d bytes)", path, ErrTooLarge, limit)
	}
	return data, nil
}

// WriteFile writes data to path, replacing any existing file.
func WriteFile(ctx context.Context, fs FileStore, path string, data []byte) error {
	w, err := fs.Write(ctx, path)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage: commit %s: %w", path, err)
	}
	return nil
}
