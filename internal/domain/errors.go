package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrUnknownListing = errors.New("listing URL not recognized")
	ErrNoLocation     = errors.New("accommodation has no coordinates")
)
