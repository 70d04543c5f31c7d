package domain

import "errors"

var (
	ErrJobNotFound          = errors.New("extraction job not found")
	ErrSchemaNotFound       = errors.New("category schema not found")
	ErrSchemaEmpty          = errors.New("category schema has no fields")
	ErrMissingImage         = errors.New("image payload is empty")
	ErrUnsupportedImageType = errors.New("unsupported image content type")
)
