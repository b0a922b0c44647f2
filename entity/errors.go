package entity

import "errors"

// Business outcomes of marketplace writes, shown to users as ordinary replies.
var (
	ErrAlreadyApplied = errors.New("already applied to this job")
	ErrJobClosed      = errors.New("job is no longer open")
	ErrJobNotFound    = errors.New("job not found")
	ErrOwnJob         = errors.New("cannot apply to own job")
)
