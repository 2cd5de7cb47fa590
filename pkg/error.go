package pkg

import "errors"

// Bridge and protocol errors.
var (
	// ErrBufferFull indicates a fixed-capacity buffer cannot accept more data.
	ErrBufferFull = errors.New("buffer full")

	// ErrBufferTooSmall indicates the provided buffer is too small.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrLinkDisabled indicates the link is disabled and cannot transfer data.
	ErrLinkDisabled = errors.New("link disabled")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidRegister indicates an unknown or reserved register address.
	ErrInvalidRegister = errors.New("invalid register")

	// ErrInvalidCommand indicates a malformed or unsupported command.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrInvalidReport indicates a malformed report payload.
	ErrInvalidReport = errors.New("invalid report")

	// ErrUnknownReportID indicates a report ID with no registered handler.
	ErrUnknownReportID = errors.New("unknown report ID")

	// ErrDescriptorTooShort indicates the descriptor data is too short.
	ErrDescriptorTooShort = errors.New("descriptor too short")

	// ErrCommandTooShort indicates the command data is too short.
	ErrCommandTooShort = errors.New("command too short")

	// ErrReportTooLong indicates a report exceeds the declared maximum length.
	ErrReportTooLong = errors.New("report too long")

	// ErrBusClosed indicates the register bus is closed.
	ErrBusClosed = errors.New("bus closed")

	// ErrInvalidResponse indicates a malformed bus response.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrRequestFailed indicates the device rejected a bus request
	// without further classification.
	ErrRequestFailed = errors.New("request failed")

	// ErrAlreadyRunning indicates the bridge is already running.
	ErrAlreadyRunning = errors.New("already running")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrCorruptSettings indicates stored settings failed to decode.
	ErrCorruptSettings = errors.New("corrupt settings")
)
