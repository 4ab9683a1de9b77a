package domain

import "errors"

// ErrorKind categorizes a failed conversion.
type ErrorKind uint8

const (
	InvalidFormat ErrorKind = iota + 1
	PayloadTooLarge
	RemoteFailure
	AuthFailure
	Timeout
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidFormat:
		return "invalid format"
	case PayloadTooLarge:
		return "payload too large"
	case RemoteFailure:
		return "remote failure"
	case AuthFailure:
		return "auth failure"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ConversionError is returned by every failed conversion.
type ConversionError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func NewError(kind ErrorKind, message string, err error) *ConversionError {
	return &ConversionError{Kind: kind, Message: message, Err: err}
}

func (e *ConversionError) Error() string {
	msg := e.Kind.String()
	if e.Message != "" {
		msg += ": " + e.Message
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Is matches any ConversionError of the same kind, so the sentinels below work with errors.Is.
func (e *ConversionError) Is(target error) bool {
	var t *ConversionError
	if !errors.As(target, &t) {
		return false
	}

	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

var (
	ErrInvalidFormat   = &ConversionError{Kind: InvalidFormat}
	ErrPayloadTooLarge = &ConversionError{Kind: PayloadTooLarge}
	ErrRemoteFailure   = &ConversionError{Kind: RemoteFailure}
	ErrAuthFailure     = &ConversionError{Kind: AuthFailure}
	ErrTimeout         = &ConversionError{Kind: Timeout}
)

// KindOf returns the kind of the first ConversionError in err's chain, or zero.
func KindOf(err error) ErrorKind {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Kind
	}

	return 0
}

var (
	ErrSendingReplyFailed = errors.New("failed to send reply")
	ErrMissingImage       = errors.New("reply to an image or send one with the command as caption")
)
