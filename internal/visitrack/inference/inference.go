// Package inference asks a generative model to describe a face image and
// parses its structured answer.
package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrInference = errors.New("inference failed")

const (
	ReasonUnavailable = "unavailable"
	ReasonTransport   = "transport"
	ReasonEmpty       = "empty_response"
	ReasonMalformed   = "malformed_response"
)

type InferenceError struct {
	Reason string
	Err    error
}

func (e *InferenceError) Error() string {
	if e.Err == nil {
		return "inference: " + e.Reason
	}
	return fmt.Sprintf("inference: %s: %v", e.Reason, e.Err)
}

func (e *InferenceError) Unwrap() error        { return e.Err }
func (e *InferenceError) Is(target error) bool { return target == ErrInference }

// Analysis is the model's description of one face.
type Analysis struct {
	AgeRange               string  `json:"age_range"`
	Gender                 string  `json:"gender"`
	Emotion                string  `json:"emotion"`
	WearingGlasses         bool    `json:"wearing_glasses"`
	DistinguishingFeatures string  `json:"distinguishing_features"`
	Confidence             float64 `json:"simulated_match_confidence"`
}

type Analyzer interface {
	Analyze(ctx context.Context, jpeg []byte) (Analysis, error)
}

// rawAnalysis detects absent fields; zero values are valid answers.
type rawAnalysis struct {
	AgeRange               *string  `json:"age_range"`
	Gender                 *string  `json:"gender"`
	Emotion                *string  `json:"emotion"`
	WearingGlasses         *bool    `json:"wearing_glasses"`
	DistinguishingFeatures *string  `json:"distinguishing_features"`
	Confidence             *float64 `json:"simulated_match_confidence"`
}

// ParseAnalysis decodes the model's JSON text. All six fields must be
// present and the confidence must lie in [0,1].
func ParseAnalysis(text string) (Analysis, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Analysis{}, &InferenceError{Reason: ReasonEmpty}
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Analysis{}, &InferenceError{Reason: ReasonMalformed, Err: err}
	}

	var missing []string
	if raw.AgeRange == nil {
		missing = append(missing, "age_range")
	}
	if raw.Gender == nil {
		missing = append(missing, "gender")
	}
	if raw.Emotion == nil {
		missing = append(missing, "emotion")
	}
	if raw.WearingGlasses == nil {
		missing = append(missing, "wearing_glasses")
	}
	if raw.DistinguishingFeatures == nil {
		missing = append(missing, "distinguishing_features")
	}
	if raw.Confidence == nil {
		missing = append(missing, "simulated_match_confidence")
	}
	if len(missing) > 0 {
		return Analysis{}, &InferenceError{
			Reason: ReasonMalformed,
			Err:    fmt.Errorf("missing fields: %s", strings.Join(missing, ", ")),
		}
	}

	c := *raw.Confidence
	if math.IsNaN(c) || c < 0 || c > 1 {
		return Analysis{}, &InferenceError{
			Reason: ReasonMalformed,
			Err:    fmt.Errorf("confidence %v outside [0,1]", c),
		}
	}

	return Analysis{
		AgeRange:               *raw.AgeRange,
		Gender:                 *raw.Gender,
		Emotion:                *raw.Emotion,
		WearingGlasses:         *raw.WearingGlasses,
		DistinguishingFeatures: *raw.DistinguishingFeatures,
		Confidence:             c,
	}, nil
}

// Unavailable fails every call. It stands in when no credential is set so
// the service can still start.
type Unavailable struct{}

func (Unavailable) Analyze(context.Context, []byte) (Analysis, error) {
	return Analysis{}, &InferenceError{Reason: ReasonUnavailable, Err: errors.New("no inference credential configured")}
}

// Available reports whether a is able to serve requests.
func Available(a Analyzer) bool {
	_, ok := a.(Unavailable)
	return a != nil && !ok
}
