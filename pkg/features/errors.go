package features

import "fmt"

// DecodeError reports an audio payload that could not be decoded.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("features: decode audio: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ExtractionError reports a failure of the feature pipeline on audio that
// decoded successfully.
type ExtractionError struct {
	Stage string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("features: %s: %v", e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
