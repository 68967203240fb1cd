package binder

import "errors"

var (
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrMissingContentType   = errors.New("missing content type")
	ErrInvalidJSON          = errors.New("invalid JSON body")
	ErrInvalidForm          = errors.New("invalid form data")
	ErrInvalidQuery         = errors.New("invalid query parameter")
	ErrInvalidPath          = errors.New("invalid path parameter")
	ErrBodyTooLarge         = errors.New("request body too large")

	// ErrBinderNotApplicable tells handler.Wrap to try the next binder.
	ErrBinderNotApplicable = errors.New("binder not applicable")
)
