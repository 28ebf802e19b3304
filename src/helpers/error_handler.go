package helpers

import (
	"fmt"
	"market-flipper/src/logger"
	"runtime/debug"
	"time"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type MarketFlipperError struct {
	Message string
	Cause   error
}

func (e *MarketFlipperError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *MarketFlipperError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As checks
type ConfigurationError struct{ MarketFlipperError }
type NetworkError struct{ MarketFlipperError }
type DataSourceError struct{ MarketFlipperError }
type DatabaseError struct{ MarketFlipperError }
type ValidationError struct{ MarketFlipperError }

// PanicError wraps a value recovered from a panic.
type PanicError struct {
	MarketFlipperError
	Value interface{}
	Stack []byte
}

func NewNetworkError(msg string, cause error) error {
	return &NetworkError{MarketFlipperError{Message: msg, Cause: cause}}
}

func NewDataSourceError(msg string, cause error) error {
	return &DataSourceError{MarketFlipperError{Message: msg, Cause: cause}}
}

func NewDatabaseError(msg string, cause error) error {
	return &DatabaseError{MarketFlipperError{Message: msg, Cause: cause}}
}

func NewConfigurationError(msg string, cause error) error {
	return &ConfigurationError{MarketFlipperError{Message: msg, Cause: cause}}
}

func NewValidationError(msg string) error {
	return &ValidationError{MarketFlipperError{Message: msg}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts fn up to maxRetries times, doubling the delay after each failure.
func RetryWithBackoff[T any](log *logger.Logger, operation string, maxRetries int, baseDelay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	if maxRetries < 1 {
		maxRetries = 1
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		if log != nil {
			log.Debug("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, maxRetries, operation, err, delay)
		}
		time.Sleep(delay)
	}

	return zero, lastErr
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

type ErrorHandler struct {
	Logger     *logger.Logger
	ErrorCount int
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	if log == nil {
		log = logger.NewLogger(nil, "ErrorHandler")
	}
	return &ErrorHandler{Logger: log}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ResetErrorCount() {
	e.ErrorCount = 0
}

// -----------------------------------------------------------------------------

// Guard runs fn and turns a panic into a *PanicError so a failing
// computation cannot unwind past the caller.
func (e *ErrorHandler) Guard(operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{
				MarketFlipperError: MarketFlipperError{Message: fmt.Sprintf("%s panicked: %v", operation, r)},
				Value:              r,
				Stack:              debug.Stack(),
			}
		}
	}()
	return fn()
}

// -----------------------------------------------------------------------------

// Handle logs err (if any) with its context and counts it.
func (e *ErrorHandler) Handle(err error, context string) {
	if err != nil {
		e.ErrorCount++
		e.Logger.Error("Error in %s: %v", context, err)
	}
}
