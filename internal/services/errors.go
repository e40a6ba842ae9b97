package services

import "errors"

// ErrValidation marks caller mistakes; handlers answer 400 for it.
var ErrValidation = errors.New("validation failed")
