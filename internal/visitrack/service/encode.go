package service

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"regexp"
	"strings"
)

// JPEGQuality is the encoder quality used for captured frames.
const JPEGQuality = 80

var ErrEncoding = errors.New("frame could not be encoded")

type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string        { return fmt.Sprintf("encode frame: %v", e.Err) }
func (e *EncodingError) Unwrap() error        { return e.Err }
func (e *EncodingError) Is(target error) bool { return target == ErrEncoding }

var dataURIPrefix = regexp.MustCompile(`^data:image/(png|jpeg|jpg);base64,`)

// Encoded is a captured frame ready for inference.
type Encoded struct {
	JPEG    []byte
	DataURI string
}

// EncodeFrame draws an encoded still onto an RGBA raster at its native
// size and re-encodes it as JPEG.
func EncodeFrame(data []byte) (Encoded, error) {
	if len(data) == 0 {
		return Encoded{}, &EncodingError{Err: errors.New("empty frame")}
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Encoded{}, &EncodingError{Err: err}
	}

	b := img.Bounds()
	if b.Empty() {
		return Encoded{}, &EncodingError{Err: errors.New("frame has no pixels")}
	}
	raster := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(raster, raster.Bounds(), img, b.Min, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, raster, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return Encoded{}, &EncodingError{Err: err}
	}
	out := buf.Bytes()
	return Encoded{
		JPEG:    out,
		DataURI: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(out),
	}, nil
}

// StripDataURIPrefix removes a leading image data-URI header, if any.
func StripDataURIPrefix(s string) string {
	return dataURIPrefix.ReplaceAllString(s, "")
}

// DecodeImageInput accepts a data URI or bare base64 payload and returns
// the image bytes.
func DecodeImageInput(s string) ([]byte, error) {
	payload := strings.TrimSpace(StripDataURIPrefix(strings.TrimSpace(s)))
	if payload == "" {
		return nil, &EncodingError{Err: errors.New("empty image")}
	}
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &EncodingError{Err: fmt.Errorf("base64: %w", err)}
	}
	return b, nil
}
