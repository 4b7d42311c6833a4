package events

import "codeberg.org/mutker/opratectl/internal/errors"

const (
	ErrParseEvent     = errors.ErrParseEvent
	ErrUnknownCommand = errors.ErrorCode("events_unknown_command")
	ErrNoLumaSource   = errors.ErrorCode("events_no_luma_source")
	ErrDispatch       = errors.ErrorCode("events_dispatch_failed")
)
