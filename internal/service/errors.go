package service

import "errors"

var (
	ErrNotFound        = errors.New("error not found")
	ErrValidation      = errors.New("error validation")
	ErrConfiguration   = errors.New("error configuration")
	ErrCycleInProgress = errors.New("error daily cycle already in progress")
)
