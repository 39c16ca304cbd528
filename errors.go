package splatgo

import (
	"errors"
	"fmt"
)

// ErrNilInput is returned when Convert is called without data.
var ErrNilInput = errors.New("splatgo: nil input")

// Stage names a pipeline step.
type Stage string

const (
	StageAuthorize  Stage = "authorize"
	StageDecompress Stage = "decompress"
	StageDecode     Stage = "decode"
	StageClean      Stage = "clean"
	StageEncode     Stage = "encode"
	StageConsume    Stage = "consume"
)

// StageError records which pipeline step failed.
//
// The original error can be matched with errors.Is / errors.As.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("splatgo: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
