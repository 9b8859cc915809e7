package classifier

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/projecthayat/hayat/pkg/tensor"
)

// DecodeImage decodes an encoded image and converts it to the model input
// described by p. Errors are *DecodeError.
func DecodeImage(data []byte, p tensor.Preprocess) (*tensor.Tensor, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Err: errors.New("empty image")}
	}
	if !filetype.IsImage(data) {
		return nil, &DecodeError{Err: errors.New("payload is not an image")}
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	t, err := tensor.FromImage(img, p)
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("%s: %w", format, err)}
	}
	return t, nil
}
