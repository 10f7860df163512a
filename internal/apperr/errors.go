package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")

	ErrStorageWrite  = errors.New("storage write failed")
	ErrContentUpload = errors.New("content upload failed")
	ErrSubmission    = errors.New("submission failed")
)
