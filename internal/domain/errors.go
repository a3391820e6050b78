package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrCloudUnavailable = errors.New("cloud store unavailable")
	ErrLocalIO          = errors.New("local store i/o")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrUnknownCleaner   = errors.New("unknown cleaner")
	ErrRunInProgress    = errors.New("ingestion run already in progress")
	ErrInvalidInput     = errors.New("invalid input")
)
