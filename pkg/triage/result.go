package triage

import (
	"fmt"
	"net/http"

	"github.com/projecthayat/hayat/pkg/classifier"
)

// State is a step of the per-request pipeline.
type State string

const (
	StateReceived          State = "RECEIVED"
	StateSimulated         State = "SIMULATED"
	StateCheckAvailability State = "CHECK_AVAILABILITY"
	StateUnavailable       State = "UNAVAILABLE"
	StateExtract           State = "EXTRACT_IF_AUDIO"
	StateInfer             State = "INFER"
	StateNormalize         State = "NORMALIZE"
	StateRespond           State = "RESPOND"
)

// Mode tells clients whether a response came from a model.
type Mode string

const (
	ModeRealAI     Mode = "REAL_AI"
	ModeSimulation Mode = "SIMULATION"
)

// Kind classifies a Result.
type Kind int

const (
	KindOK Kind = iota
	KindBadRequest
	KindModelUnavailable
	KindDecodeError
	KindExtractionError
	KindInferenceError
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindBadRequest:
		return "bad_request"
	case KindModelUnavailable:
		return "model_unavailable"
	case KindDecodeError:
		return "decode_error"
	case KindExtractionError:
		return "extraction_error"
	case KindInferenceError:
		return "inference_error"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// HTTPStatus maps the kind to a response status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindOK:
		return http.StatusOK
	case KindBadRequest:
		return http.StatusBadRequest
	case KindModelUnavailable:
		return http.StatusServiceUnavailable
	case KindDecodeError, KindExtractionError:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// Response is the normalized success document, identical in shape for
// both modalities.
type Response struct {
	Type       classifier.Modality `json:"type"`
	Prediction string              `json:"prediction"`
	Confidence string              `json:"confidence"`
	Mode       Mode                `json:"mode"`
	Filename   string              `json:"filename,omitempty"`
	Note       string              `json:"note,omitempty"`

	// Probability is the raw confidence behind Confidence.
	Probability float32 `json:"-"`
}

// Result is the outcome of Handle. Exactly one of Response and Err is set.
type Result struct {
	Kind     Kind
	Modality classifier.Modality

	// State is the last pipeline state reached.
	State State

	Response *Response
	Err      error
}

// OK reports whether the request succeeded.
func (r Result) OK() bool { return r.Kind == KindOK }

// HTTPStatus returns the status code for the result.
func (r Result) HTTPStatus() int { return r.Kind.HTTPStatus() }

// Message returns a short client-facing error summary.
func (r Result) Message() string {
	switch r.Kind {
	case KindOK:
		return ""
	case KindBadRequest:
		return "bad request"
	case KindModelUnavailable:
		return fmt.Sprintf("%s model not loaded", r.Modality.Lower())
	case KindDecodeError:
		return "could not decode payload"
	case KindExtractionError:
		return "feature extraction failed"
	}
	return "inference failed"
}

// FormatConfidence renders a probability as a percentage with two
// decimals: 0.92 -> "92.00%".
func FormatConfidence(p float32) string {
	return fmt.Sprintf("%.2f%%", float64(p)*100)
}
