package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}

// ErrorKind classifies the failures of the provisioning and notification pipelines.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindDuplicateIdentity
	KindStorage
	KindCredential
	KindExternalProvider
	KindTransport
	KindConfigurationDisabled
	KindNotFound
)

var kindNames = map[ErrorKind]string{
	KindUnknown:               "unknown",
	KindDuplicateIdentity:     "duplicate identity",
	KindStorage:               "storage",
	KindCredential:            "credential",
	KindExternalProvider:      "external provider",
	KindTransport:             "transport",
	KindConfigurationDisabled: "configuration disabled",
	KindNotFound:              "not found",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Fatal reports whether an error of this kind aborts the workflow it happens in.
// External provider, transport and configuration failures are only logged.
func (k ErrorKind) Fatal() bool {
	switch k {
	case KindExternalProvider, KindTransport, KindConfigurationDisabled:
		return false
	}
	return true
}

// Error is a classified pipeline error. Op names the step that failed.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func NewError(kind ErrorKind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Cause lets errors.Cause walk through an *Error down to the original failure.
func (e *Error) Cause() error { return e.Err }

// KindOf returns the kind of the first *Error found in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
