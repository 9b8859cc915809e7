package classifier

import "fmt"

// DecodeError reports an input payload that could not be decoded.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("classifier: decode input: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// InferenceError reports a failure inside or right after the model call.
type InferenceError struct {
	Modality Modality
	Err      error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("classifier: %s inference: %v", e.Modality.Lower(), e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// LabelOrderError reports model metadata whose class order does not match
// the order the adapter maps indices with.
type LabelOrderError struct {
	Modality Modality
	Got      []string
	Want     []string
}

func (e *LabelOrderError) Error() string {
	return fmt.Sprintf("classifier: %s labels %v do not match expected order %v", e.Modality.Lower(), e.Got, e.Want)
}
