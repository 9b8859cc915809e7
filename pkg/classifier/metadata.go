package classifier

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/projecthayat/hayat/pkg/tensor"
)

// Metadata describes a model artifact. It is stored next to the weights as
// a YAML sidecar (model.onnx -> model.labels.yaml):
//
//	labels: [noise, scream]
//	input:
//	  name: input
//	  size: 224
//	  mean: [0.485, 0.456, 0.406]
//	  std: [0.229, 0.224, 0.225]
//	output:
//	  name: output
//	  softmax: true
type Metadata struct {
	Labels []string       `yaml:"labels"`
	Input  InputMetadata  `yaml:"input"`
	Output OutputMetadata `yaml:"output"`
}

// InputMetadata describes the model input.
type InputMetadata struct {
	Name string      `yaml:"name"`
	Size int         `yaml:"size"`
	Mean *[3]float32 `yaml:"mean"`
	Std  *[3]float32 `yaml:"std"`
}

// OutputMetadata describes the model output.
type OutputMetadata struct {
	Name    string `yaml:"name"`
	Softmax *bool  `yaml:"softmax"`
}

// AudioLabels is the class order of the audio model: ImageFolder sorts
// class directories alphabetically, so "noise" is 0 and "screams" is 1.
var AudioLabels = []string{"noise", "scream"}

// VisionLabels is the default class order of the vision model.
var VisionLabels = []string{"damaged", "undamaged"}

// DefaultMetadata returns the metadata assumed when no sidecar exists.
func DefaultMetadata(m Modality) Metadata {
	t := true
	f := false
	switch m {
	case Audio:
		mean, std := tensor.ImageNetMean, tensor.ImageNetStd
		return Metadata{
			Labels: append([]string(nil), AudioLabels...),
			Input:  InputMetadata{Size: 224, Mean: &mean, Std: &std},
			Output: OutputMetadata{Softmax: &t},
		}
	default:
		mean, std := [3]float32{0, 0, 0}, [3]float32{1, 1, 1}
		return Metadata{
			Labels: append([]string(nil), VisionLabels...),
			Input:  InputMetadata{Size: 224, Mean: &mean, Std: &std},
			Output: OutputMetadata{Softmax: &f},
		}
	}
}

// ParseMetadata parses a YAML sidecar.
func ParseMetadata(data []byte) (Metadata, error) {
	var md Metadata
	if err := yaml.Unmarshal(data, &md); err != nil {
		return Metadata{}, fmt.Errorf("classifier: parse metadata: %w", err)
	}
	return md, nil
}

// Marshal encodes the metadata as YAML.
func (md Metadata) Marshal() ([]byte, error) {
	return yaml.Marshal(md)
}

// Merge returns md with unset fields taken from def.
func (md Metadata) Merge(def Metadata) Metadata {
	if len(md.Labels) == 0 {
		md.Labels = def.Labels
	}
	if md.Input.Name == "" {
		md.Input.Name = def.Input.Name
	}
	if md.Input.Size == 0 {
		md.Input.Size = def.Input.Size
	}
	if md.Input.Mean == nil {
		md.Input.Mean = def.Input.Mean
	}
	if md.Input.Std == nil {
		md.Input.Std = def.Input.Std
	}
	if md.Output.Name == "" {
		md.Output.Name = def.Output.Name
	}
	if md.Output.Softmax == nil {
		md.Output.Softmax = def.Output.Softmax
	}
	return md
}

// Preprocess returns the tensor preprocessing described by the metadata.
func (md Metadata) Preprocess() tensor.Preprocess {
	p := tensor.Unit(md.Input.Size)
	if md.Input.Mean != nil {
		p.Mean = *md.Input.Mean
	}
	if md.Input.Std != nil {
		p.Std = *md.Input.Std
	}
	return p
}

func (md Metadata) softmax() bool {
	return md.Output.Softmax != nil && *md.Output.Softmax
}

// normalizeLabel lower-cases a label and strips a plural "s" so that
// "Screams" from a training directory name matches "scream".
func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimSuffix(s, "s")
}

// SameOrder reports whether labels match want position by position, after
// case and plural normalization.
func SameOrder(labels, want []string) bool {
	if len(labels) != len(want) {
		return false
	}
	for i := range labels {
		if normalizeLabel(labels[i]) != normalizeLabel(want[i]) {
			return false
		}
	}
	return true
}
