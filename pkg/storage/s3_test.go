package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// apiError implements smithy.APIError for test assertions.
type apiError struct {
	code string
	msg  string
}

func (e *apiError) Error() string                 { return e.msg }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.msg }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

var (
	errNoSuchKey = &apiError{code: "NoSuchKey", msg: "no such key"}
	errNotFound  = &apiError{code: "NotFound", msg: "not found"}
)

// mockS3 is a thread-safe in-memory S3 backend.
type mockS3 struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string

	getErr  error
	putErr  error
	headErr error
}

func newMockS3() *mockS3 {
	return &mockS3{objects: make(map[string][]byte), contentTypes: make(map[string]string)}
}

func (m *mockS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*in.Key]
	if !ok {
		return nil, errNoSuchKey
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*in.Key] = data
	if in.ContentType != nil {
		m.contentTypes[*in.Key] = *in.ContentType
	}
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if m.headErr != nil {
		return nil, m.headErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[*in.Key]; !ok {
		return nil, errNotFound
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestS3WriteAndRead(t *testing.T) {
	mock := newMockS3()
	store := NewS3(mock, "hayat-data", "spectrograms")
	ctx := context.Background()

	if err := WriteFile(ctx, store, "noise/rain.png", []byte("png")); err != nil {
		t.Fatal(err)
	}
	if _, ok := mock.objects["spectrograms/noise/rain.png"]; !ok {
		t.Fatalf("object not stored under prefix: %v", mock.objects)
	}
	if ct := mock.contentTypes["spectrograms/noise/rain.png"]; ct != "image/png" {
		t.Errorf("content type = %q, want image/png", ct)
	}

	got, err := ReadFile(ctx, store, "noise/rain.png", 0)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "png" {
		t.Fatalf("got %q", got)
	}
}

func TestS3ReadNotExist(t *testing.T) {
	store := NewS3(newMockS3(), "bucket", "")
	_, err := store.Read(context.Background(), "audio_v1.onnx")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestS3ReadOtherError(t *testing.T) {
	mock := newMockS3()
	mock.getErr = errors.New("network timeout")
	_, err := NewS3(mock, "bucket", "").Read(context.Background(), "x")
	if err == nil || errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want generic error", err)
	}
}

func TestS3Exists(t *testing.T) {
	mock := newMockS3()
	store := NewS3(mock, "bucket", "")
	ctx := context.Background()

	if ok, err := store.Exists(ctx, "missing"); err != nil || ok {
		t.Fatalf("Exists(missing) = %v, %v", ok, err)
	}
	mock.objects["present"] = []byte("data")
	if ok, err := store.Exists(ctx, "present"); err != nil || !ok {
		t.Fatalf("Exists(present) = %v, %v", ok, err)
	}

	mock.headErr = errors.New("network failure")
	if _, err := store.Exists(ctx, "present"); err == nil {
		t.Fatal("expected error")
	}
}

func TestS3WriteUploadError(t *testing.T) {
	mock := newMockS3()
	mock.putErr = errors.New("access denied")
	err := WriteFile(context.Background(), NewS3(mock, "bucket", ""), "x.png", []byte("data"))
	if err == nil {
		t.Fatal("expected upload error")
	}
}

func TestS3Delete(t *testing.T) {
	mock := newMockS3()
	mock.objects["k"] = []byte("v")
	store := NewS3(mock, "bucket", "")
	if err := store.Delete(context.Background(), "k"); err != nil {
		t.Fatal(err)
	}
	if _, ok := mock.objects["k"]; ok {
		t.Error("object not deleted")
	}
}
