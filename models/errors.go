package models

import "errors"

var (
	// ErrDataUnavailable means the source file or dataset is missing. Fatal at load time.
	ErrDataUnavailable = errors.New("dataset unavailable")
	// ErrNotFound means a listing id did not resolve.
	ErrNotFound = errors.New("listing not found")
	// ErrModelUnavailable means no regression model is loaded.
	ErrModelUnavailable = errors.New("model not loaded")
)
