package services

import "errors"

// ErrInvalidInput is returned when a request fails validation.
// Specific rejections wrap it so callers can match the kind with errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// ErrNotAuthorized is returned when the acting user lacks the required role.
var ErrNotAuthorized = errors.New("not authorized")
