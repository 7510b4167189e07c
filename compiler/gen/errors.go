package gen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/casegen/model"
)

var (
	// ErrInvalidOption matches every *ConfigError.
	ErrInvalidOption = errors.New("casegen: invalid generator option")
	// ErrGenerationFailed matches every *GenerationError.
	ErrGenerationFailed = errors.New("casegen: code generation failed")
)

// ConfigError reports a rejected generator option.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

func (e *ConfigError) Error() string {
	var value string
	if e.Value != nil {
		value = fmt.Sprintf(" (value: %v)", e.Value)
	}
	return fmt.Sprintf("casegen: config error for %q%s: %s", e.Option, value, e.Message)
}

// Is matches ErrInvalidOption.
func (e *ConfigError) Is(target error) bool { return target == ErrInvalidOption }

// NewConfigError returns a ConfigError for option.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{Option: option, Value: value, Message: message}
}

// GenerationError is the failure of one unit or file. Phase is "render",
// "write" or "remove".
type GenerationError struct {
	Phase   string
	Unit    model.ID
	File    string
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	parts := []string{"casegen: generation error"}
	if e.Phase != "" {
		parts = append(parts, "in phase "+e.Phase)
	}
	if e.Unit != "" {
		parts = append(parts, fmt.Sprintf("for unit %q", e.Unit))
	}
	if e.File != "" {
		parts = append(parts, "(file: "+e.File+")")
	}
	msg := strings.Join(parts, " ")
	for _, s := range []string{e.Message, causeText(e.Cause)} {
		if s != "" {
			msg += ": " + s
		}
	}
	return msg
}

func causeText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Cause }

// Is matches ErrGenerationFailed.
func (e *GenerationError) Is(target error) bool { return target == ErrGenerationFailed }

// NewGenerationError returns a GenerationError.
func NewGenerationError(phase string, unit model.ID, file, message string, cause error) *GenerationError {
	return &GenerationError{Phase: phase, Unit: unit, File: file, Message: message, Cause: cause}
}

// IsConfigError reports whether err wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsGenerationError reports whether err wraps a *GenerationError.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
