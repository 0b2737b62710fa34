package app

import "errors"

// Error taxonomy mapped to HTTP statuses by the server layer. Wrap with
// fmt.Errorf("%w: detail", ...) to attach context.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")
)
