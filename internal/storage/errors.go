package storage

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrStorageInit     = errors.New("storage initialization failed")
)
