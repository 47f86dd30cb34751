package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which traversal pass the error occurred in
type Phase string

const (
	PhaseClassify Phase = "classify" // type classification
	PhaseReserve  Phase = "reserve"  // size computation
	PhaseWrite    Phase = "write"    // appending wire bytes
	PhaseRead     Phase = "read"     // consuming wire bytes
)

// Kind categorizes the error
type Kind string

const (
	KindUnsupportedType Kind = "unsupported_type"
	KindConstViolation  Kind = "const_violation"
	KindBoundsViolation Kind = "bounds_violation"
	KindNilPointer      Kind = "nil_pointer"
	KindInvalidData     Kind = "invalid_data"
	KindOverflow        Kind = "overflow"
	KindRegistration    Kind = "registration"
)

// Error is the structured error type used throughout binpack
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" {
		b.WriteString(": Go type ")
		b.WriteString(e.GoType)
	}

	if e.Detail != "" {
		if e.GoType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the element path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// UnsupportedType creates an error for a type outside the closed category set
func UnsupportedType(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupportedType,
		Path:   path,
		GoType: goType,
		Detail: "no category applies",
	}
}

// ConstViolation creates an error for a read bound to an immutable destination
func ConstViolation(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindConstViolation,
		Path:   path,
		GoType: goType,
		Detail: "read destination must be a settable pointer",
	}
}

// BoundsViolation creates an error for a cursor advancing past the buffer end
func BoundsViolation(phase Phase, path []string, need, remaining int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindBoundsViolation,
		Path:   path,
		Detail: fmt.Sprintf("need %d bytes, %d remaining", need, remaining),
		Value:  need,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		GoType: goType,
		Detail: "nil pointer",
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		Detail: detail,
		Value:  value,
	}
}

// Registration creates a hook registration error
func Registration(goType string, detail string) *Error {
	return &Error{
		Phase:  PhaseClassify,
		Kind:   KindRegistration,
		GoType: goType,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return New(phase, kind).Cause(cause).Detail("%s", detail).Build()
}
