package engine

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// ErrConfiguration marks errors detected before any listing call.
var ErrConfiguration = errors.New("configuration error")

// ErrDeclined is returned when the operator declines a live run.
var ErrDeclined = errors.New("live run declined")

// ErrPartialResult indicates the run completed but some items failed.
var ErrPartialResult = errors.New("run completed with failed items")

// ConfigError reports an invalid argument or setting. It matches
// ErrConfiguration under errors.Is.
type ConfigError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ConfigError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Field == "" {
		return "invalid configuration: " + msg
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, msg)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

// Configf builds a ConfigError for field.
func Configf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// ListingError is a fatal failure to enumerate the resources of a job.
type ListingError struct {
	Job string
	Err error
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("listing for %s failed: %v", e.Job, e.Err)
}

func (e *ListingError) Unwrap() error { return e.Err }

// ItemError is the failure of one action on one resource.
type ItemError struct {
	ID   string
	Kind ActionKind
	// Code is the provider error code, when the provider sent one.
	Code string
	Err  error
}

func newItemError(id string, kind ActionKind, err error) *ItemError {
	ie := &ItemError{ID: id, Kind: kind, Err: err}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		ie.Code = apiErr.ErrorCode()
	}
	return ie
}

func (e *ItemError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s %s failed [%s]: %v", e.Kind, e.ID, e.Code, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Kind, e.ID, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }
