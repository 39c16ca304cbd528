package license

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthorizationInvalid covers bad signatures, malformed tokens and
	// missing claims.
	ErrAuthorizationInvalid = errors.New("license: authorization invalid")
	// ErrAuthorizationExpired is returned for tokens past their expiry.
	ErrAuthorizationExpired = errors.New("license: authorization expired")
	// ErrQuotaExceeded is returned when no conversions remain.
	ErrQuotaExceeded = errors.New("license: conversion quota exceeded")
	// ErrFileTooLarge is returned when the input exceeds the licensed size.
	ErrFileTooLarge = errors.New("license: file too large")
	// ErrFormatNotPermitted is returned when the output format is not licensed.
	ErrFormatNotPermitted = errors.New("license: output format not permitted")
)

// SizeError reports the licensed limit and the offending size.
type SizeError struct {
	Limit  int64
	Actual int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("license: input is %d bytes, limit is %d bytes", e.Actual, e.Limit)
}

func (e *SizeError) Unwrap() error { return ErrFileTooLarge }
