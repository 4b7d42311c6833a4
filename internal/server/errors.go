package server

import "codeberg.org/mutker/opratectl/internal/errors"

const (
	ErrServerStart    = errors.ErrorCode("server_start_failed")
	ErrServerShutdown = errors.ErrShutdownFailed
	ErrEncodeResponse = errors.ErrorCode("server_encode_failed")
	ErrReadHistory    = errors.ErrorCode("server_read_history_failed")
)
