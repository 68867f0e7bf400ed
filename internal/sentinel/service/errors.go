package service

import "errors"

var (
	ErrInvalidCode       = errors.New("code is required")
	ErrAlreadyRunning    = errors.New("stream already running")
	ErrNotRunning        = errors.New("stream not running")
	ErrSourceUnavailable = errors.New("frame source unavailable")
)
