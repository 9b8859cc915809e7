// Package build holds version information injected at link time:
//
//	go build -ldflags "-X github.com/projecthayat/hayat/cmd/hayat/internal/build.Version=v1.0.0 \
//	  -X github.com/projecthayat/hayat/cmd/hayat/internal/build.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/projecthayat/hayat/cmd/hayat/internal/build.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package build

import (
	"fmt"
	"runtime"

	"github.com/projecthayat/hayat/pkg/onnx"
)

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String returns a one-line version string.
func String() string {
	return fmt.Sprintf("hayat %s (%s) built %s %s/%s",
		Version, Commit, Date, runtime.GOOS, runtime.GOARCH)
}

// Runtime describes the inference runtime compiled into the binary.
func Runtime() string {
	if !onnx.Built {
		return "onnxruntime: not built (rebuild with -tags onnxruntime)"
	}
	return "onnxruntime: " + onnx.Version()
}
