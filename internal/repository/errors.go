package repository

import "errors"

var (
	// ErrInvalidInput indicates a nil or empty argument
	ErrInvalidInput = errors.New("invalid input")

	// ErrPostNotFound indicates the requested post does not exist
	ErrPostNotFound = errors.New("post not found")
)
