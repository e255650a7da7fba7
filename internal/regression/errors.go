package regression

import "errors"

var (
	ErrUnsupportedModel = errors.New("regression: unsupported model type")
	ErrInvalidConfig    = errors.New("regression: invalid configuration")
	ErrInsufficientData = errors.New("regression: not enough usable rows")
	ErrNotFitted        = errors.New("regression: model has not been fitted")
)
