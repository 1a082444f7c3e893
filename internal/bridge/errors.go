package bridge

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Sentinel errors for bridge operations.
var (
	ErrNoServerSelected     = errors.New("no server selected")
	ErrClientNotInitialized = errors.New("mcp client not initialized")
	ErrNotConnected         = errors.New("not connected to any server")
	ErrNoServersFound       = errors.New("no MCP servers found")
	ErrAlreadyConnected     = errors.New("already connected to a server")
)

// LogOnlyError marks a failure that is already surfaced elsewhere or is
// non-actionable: it is logged but never forwarded to the UI.
type LogOnlyError struct {
	Err error
}

func (e *LogOnlyError) Error() string {
	return e.Err.Error()
}

func (e *LogOnlyError) Unwrap() error {
	return e.Err
}

// LogOnly wraps err as log-only.
func LogOnly(err error) error {
	if err == nil {
		return nil
	}
	return &LogOnlyError{Err: err}
}

// IsLogOnly reports whether err is classified as log-only.
func IsLogOnly(err error) bool {
	var lo *LogOnlyError
	return errors.As(err, &lo)
}

// UserErrorFunc forwards a user-facing failure message to the UI.
type UserErrorFunc func(message string)

// ErrorHandler centralizes the recover-locally-vs-surface decision so
// callers never duplicate classification logic. It never panics.
type ErrorHandler struct {
	onUserError UserErrorFunc
	logger      zerolog.Logger
}

// NewErrorHandler creates an error handler forwarding user-visible
// failures to onUserError. A nil callback means log-only operation.
func NewErrorHandler(onUserError UserErrorFunc, logger zerolog.Logger) *ErrorHandler {
	return &ErrorHandler{
		onUserError: onUserError,
		logger:      logger.With().Str("component", "errors").Logger(),
	}
}

// Handle logs err with its context and, unless the error is log-only or
// logOnly is set, invokes the UI callback exactly once with userMsg (or a
// default derived from context when userMsg is empty).
func (h *ErrorHandler) Handle(err error, context, userMsg string, logOnly bool) {
	if err == nil {
		return
	}

	h.logger.Error().Err(err).Str("context", context).Msg("error handled")

	if IsLogOnly(err) || logOnly {
		return
	}

	if userMsg == "" {
		userMsg = fmt.Sprintf("%s failed: %s", context, err.Error())
	}

	if h.onUserError != nil {
		h.invoke(userMsg)
	}
}

// invoke calls the UI callback, recovering a panic so a broken callback
// can never take the bridge down.
func (h *ErrorHandler) invoke(msg string) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error().Interface("panic", r).Msg("user error callback panicked")
		}
	}()
	h.onUserError(msg)
}
