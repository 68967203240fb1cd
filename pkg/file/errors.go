package file

import "errors"

var (
	ErrInvalidConfig      = errors.New("file: invalid storage configuration")
	ErrFailedToLoadConfig = errors.New("file: failed to load aws configuration")
	ErrInvalidKey         = errors.New("file: invalid key")
	ErrNotFound           = errors.New("file: object not found")
	ErrFailedToWrite      = errors.New("file: failed to write object")
	ErrFailedToRead       = errors.New("file: failed to read object")
)
