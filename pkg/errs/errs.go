package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies build failures
type Kind int

const (
	// KindConfiguration missing or invalid field, unresolved reference,
	// unresolved language, duplicate url
	KindConfiguration Kind = iota + 1
	// KindInvalidFile non text path component, empty resource name, malformed definition
	KindInvalidFile
	// KindIO unreadable source tree entry
	KindIO
	// KindCodec failures propagated from pipeline collaborators
	KindCodec
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindInvalidFile:
		return "invalid file"
	case KindIO:
		return "io"
	case KindCodec:
		return "codec"
	default:
		return "unknown"
	}
}

// Error a build error with the originating file path attached
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error in %q: %s", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Cause keeps github.com/pkg/errors.Cause working through our wrapper
func (e *Error) Cause() error {
	return e.Err
}

// ------------------------------------------------------------------------------------------------
// ~ Constructors
// ------------------------------------------------------------------------------------------------

func Configuration(format string, args ...interface{}) error {
	return &Error{Kind: KindConfiguration, Err: errors.Errorf(format, args...)}
}

func ConfigurationAt(path string, format string, args ...interface{}) error {
	return &Error{Kind: KindConfiguration, Path: path, Err: errors.Errorf(format, args...)}
}

func InvalidFile(path string, format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidFile, Path: path, Err: errors.Errorf(format, args...)}
}

func IO(path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindIO, Path: path, Err: errors.WithStack(err)}
}

func Codec(path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindCodec, Path: path, Err: errors.WithStack(err)}
}

// WithPath attaches a path to err unless it already carries one
func WithPath(path string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Path == "" {
			return &Error{Kind: e.Kind, Path: path, Err: e.Err}
		}
		return err
	}
	return &Error{Kind: KindCodec, Path: path, Err: err}
}

// Is reports whether any error in err's chain is of the given kind
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
