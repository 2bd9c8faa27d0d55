package entity

import "errors"

var (
	ErrNotFound         = errors.New("user not found")
	ErrAlreadyAdmitted  = errors.New("user already admitted")
	ErrCapacityExceeded = errors.New("admission capacity exceeded")
)
