package core

import (
	"github.com/cockroachdb/errors"
)

// Validation errors
var (
	ErrInvalidJobCode  = errors.New("cron: invalid job code (must be alphanumeric, start with letter)")
	ErrJobCodeTooLong  = errors.New("cron: job code too long")
	ErrJobArgsTooLarge = errors.New("cron: job arguments exceed size limit")
)

// Storage errors
var (
	ErrDuplicateInstance = errors.New("cron: instance already scheduled for this code and minute")
	ErrInstanceNotFound  = errors.New("cron: instance not found")
)

// Processing messages recorded on instances.
const (
	MsgMissedDeadline = "missed deadline"
	MsgAbandoned      = "running time exceeded, instance abandoned"
)
