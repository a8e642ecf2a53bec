// Package diag holds the generator's error taxonomy and the per-run
// diagnostics list.
package diag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var (
	ErrUnresolvableType        = errors.New("unresolvable type")
	ErrUnsupportedReturnLayout = errors.New("unsupported return layout")
	ErrParseFailure            = errors.New("parse failure")
)

type Kind int

const (
	UnresolvableType Kind = iota
	UnsupportedReturnLayout
	ParseFailure
)

func (k Kind) String() string {
	switch k {
	case UnresolvableType:
		return "UnresolvableType"
	case UnsupportedReturnLayout:
		return "UnsupportedReturnLayout"
	case ParseFailure:
		return "ParseFailure"
	default:
		panic("invalid diagnostic kind")
	}
}

// UnresolvableTypeError is returned when a type has neither an override
// nor a structural mapping.
type UnresolvableTypeError struct {
	Type   string
	Reason string
}

func (e *UnresolvableTypeError) Error() string {
	return fmt.Sprintf("cannot resolve %v: %v", e.Type, e.Reason)
}

func (e *UnresolvableTypeError) Is(target error) bool {
	return target == ErrUnresolvableType
}

// UnsupportedReturnLayoutError is returned when a by-value return cannot be
// rewritten into an output pointer.
type UnsupportedReturnLayoutError struct {
	Function string
	Reason   string
}

func (e *UnsupportedReturnLayoutError) Error() string {
	return fmt.Sprintf("cannot wrap by-value return of %v: %v", e.Function, e.Reason)
}

func (e *UnsupportedReturnLayoutError) Is(target error) bool {
	return target == ErrUnsupportedReturnLayout
}

// ParseFailureError wraps an error from the header parser.
type ParseFailureError struct {
	Header string
	Err    error
}

func (e *ParseFailureError) Error() string {
	return fmt.Sprintf("parse %v: %v", e.Header, e.Err)
}

func (e *ParseFailureError) Is(target error) bool {
	return target == ErrParseFailure
}

func (e *ParseFailureError) Unwrap() error {
	return e.Err
}

// KindOf classifies err, defaulting to UnresolvableType.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrUnsupportedReturnLayout):
		return UnsupportedReturnLayout
	case errors.Is(err, ErrParseFailure):
		return ParseFailure
	default:
		return UnresolvableType
	}
}

// Diagnostic names a skipped entity and the reason it was skipped.
type Diagnostic struct {
	Kind Kind
	// Entity is e.g. "struct ImDrawList" or "method ImDrawList::AddLine".
	Entity string
	Header string
	Err    error
}

func (d Diagnostic) String() string {
	return d.prefix() + d.Err.Error()
}

func (d Diagnostic) prefix() string {
	var b strings.Builder
	if d.Header != "" {
		b.WriteString(d.Header)
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "%v: skipped %v: ", d.Kind, d.Entity)
	return b.String()
}

// Policy decides what happens on an UnresolvableType.
type Policy int

const (
	// Lenient skips the declaration and records a diagnostic.
	Lenient Policy = iota
	// Strict aborts the run.
	Strict
)

func (p Policy) String() string {
	if p == Strict {
		return "strict"
	}
	return "lenient"
}

// List collects diagnostics in the order they were reported.
//
// The zero value is a lenient, empty list.
type List struct {
	Policy Policy

	items []Diagnostic
}

// Report records d. It returns a non-nil error if d must abort the run
// under the list's policy.
func (l *List) Report(d Diagnostic) error {
	l.items = append(l.items, d)
	if l.Policy == Strict && d.Kind == UnresolvableType {
		return fmt.Errorf("strict mode: %v%w", d.prefix(), d.Err)
	}
	return nil
}

func (l *List) Items() []Diagnostic {
	return l.items
}

// Join folds ds into one error, or returns nil if ds is empty. The result
// unwraps to every diagnostic's error.
func Join(ds []Diagnostic) error {
	var res *multierror.Error
	for _, d := range ds {
		res = multierror.Append(res, fmt.Errorf("%v: %w", d.Entity, d.Err))
	}
	if res != nil {
		res.ErrorFormat = func(errs []error) string {
			var b strings.Builder
			fmt.Fprintf(&b, "%v declarations skipped:", len(errs))
			for _, err := range errs {
				b.WriteString("\n  ")
				b.WriteString(err.Error())
			}
			return b.String()
		}
	}
	return res.ErrorOrNil()
}
