package service

import "errors"

// Domain errors that carry their own error_type.
var (
	ErrSelfDelete       = errors.New("cannot_delete_self")
	ErrUnknownQuestion  = errors.New("unknown_question")
	ErrEmptySubmission  = errors.New("empty_submission")
	ErrUnsupportedMedia = errors.New("unsupported_media_type")
	ErrFileTooLarge     = errors.New("file_too_large")
)
