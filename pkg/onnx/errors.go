package onnx

import "errors"

var (
	// ErrNotBuilt is returned by every constructor when the binary was built
	// without the onnxruntime build tag.
	ErrNotBuilt = errors.New("onnx: built without ONNX Runtime support (rebuild with -tags onnxruntime)")

	// ErrClosed is returned when running a closed session or model.
	ErrClosed = errors.New("onnx: closed")
)

// SessionOptions tunes session creation.
type SessionOptions struct {
	// IntraOpThreads limits the threads used inside one operator. Zero
	// keeps the runtime default.
	IntraOpThreads int
}
