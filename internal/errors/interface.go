package errors

// ErrorCode identifies an error kind. Codes are compared, messages are not.
type ErrorCode string

// Error is a coded error. Two Errors match under Is when their codes match,
// so a bare factory error can serve as a sentinel.
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
	Is(target error) bool
}

// Factory creates coded errors.
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
