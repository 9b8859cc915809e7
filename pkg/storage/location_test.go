package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in      string
		want    Location
		wantErr bool
	}{
		{in: "s3://hayat-models/v1/audio_v1.onnx", want: Location{Bucket: "hayat-models", Dir: "v1", Name: "audio_v1.onnx"}},
		{in: "s3://hayat-models/audio_v1.onnx", want: Location{Bucket: "hayat-models", Dir: "", Name: "audio_v1.onnx"}},
		{in: "models/hayat_v1.onnx", want: Location{Dir: "models" + string(filepath.Separator), Name: "hayat_v1.onnx"}},
		{in: "audio_v1.onnx", want: Location{Dir: ".", Name: "audio_v1.onnx"}},
		{in: "", wantErr: true},
		{in: "s3://bucket-only", wantErr: true},
		{in: "s3://bucket/dir/", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLocation(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseDir(t *testing.T) {
	tests := []struct {
		in      string
		want    Location
		wantErr bool
	}{
		{in: "s3://hayat-data/spectrograms/", want: Location{Bucket: "hayat-data", Dir: "spectrograms"}},
		{in: "s3://hayat-data", want: Location{Bucket: "hayat-data"}},
		{in: "data_spectrograms/", want: Location{Dir: "data_spectrograms"}},
		{in: "", wantErr: true},
		{in: "s3:///x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDir(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLocationSibling(t *testing.T) {
	loc, _ := ParseLocation("s3://b/models/audio_v1.onnx")
	side := loc.Sibling("audio_v1.labels.yaml")
	if got := side.String(); got != "s3://b/models/audio_v1.labels.yaml" {
		t.Errorf("sibling = %s", got)
	}
}

func TestOpenerLocal(t *testing.T) {
	dir := t.TempDir()
	loc, _ := ParseLocation(filepath.Join(dir, "audio_v1.onnx"))
	var o Opener
	fs, err := o.Open(context.Background(), loc)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := fs.(*Local); !ok {
		t.Errorf("store = %T, want *Local", fs)
	}
}

func TestOpenerS3(t *testing.T) {
	mock := newMockS3()
	mock.objects["models/audio_v1.onnx"] = []byte("weights")
	calls := 0
	o := Opener{NewClient: func(context.Context, S3Config) (S3Client, error) {
		calls++
		return mock, nil
	}}
	ctx := context.Background()
	loc, _ := ParseLocation("s3://b/models/audio_v1.onnx")
	for range 2 {
		fs, err := o.Open(ctx, loc)
		if err != nil {
			t.Fatal(err)
		}
		data, err := ReadFile(ctx, fs, loc.Name, 0)
		if err != nil || string(data) != "weights" {
			t.Fatalf("ReadFile = %q, %v", data, err)
		}
	}
	if calls != 1 {
		t.Errorf("client created %d times, want 1", calls)
	}

	failing := Opener{NewClient: func(context.Context, S3Config) (S3Client, error) {
		return nil, errors.New("no credentials")
	}}
	if _, err := failing.Open(ctx, loc); err == nil {
		t.Error("expected client error")
	}
}
