package batch

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies why a job failed
type ErrorKind string

const (
	KindNone         ErrorKind = ""
	KindInvalidInput ErrorKind = "invalid_input"
	KindLoad         ErrorKind = "load"
	KindDetect       ErrorKind = "detect"
	KindNoFace       ErrorKind = "no_face"
	KindCrop         ErrorKind = "crop"
	KindEncode       ErrorKind = "encode"
	KindStore        ErrorKind = "store"
	KindCanceled     ErrorKind = "canceled"
)

// ErrNoFace is reported when a job requires a face and the detector found none
var ErrNoFace = errors.New("no face detected")

// Error is a job failure with its classification
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError wraps err, reclassifying it as canceled when the context is done
func newError(ctx context.Context, kind ErrorKind, err error) *Error {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		kind = KindCanceled
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the classification of err, or KindNone when err is not a job error
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNone
}
