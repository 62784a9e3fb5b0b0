package domain

import "errors"

var (
	ErrInvalidID     = errors.New("invalid id")
	ErrInvalidSource = errors.New("invalid source id")
	ErrInvalidTitle  = errors.New("invalid title")
	ErrInvalidStatus = errors.New("invalid status")
)
