package diag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	require := require.New(t)

	require.Equal(UnresolvableType, KindOf(&UnresolvableTypeError{Type: "Foo", Reason: "unknown"}))
	require.Equal(UnsupportedReturnLayout, KindOf(&UnsupportedReturnLayoutError{Function: "F", Reason: "variadic"}))
	parseErr := &ParseFailureError{Header: "a.h", Err: errors.New("boom")}
	require.Equal(ParseFailure, KindOf(parseErr))
	require.ErrorIs(parseErr, ErrParseFailure)
	require.EqualError(parseErr, "parse a.h: boom")
}

func TestListLenient(t *testing.T) {
	require := require.New(t)

	var l List
	require.NoError(Join(l.Items()))
	require.NoError(l.Report(Diagnostic{
		Kind:   UnresolvableType,
		Entity: "struct Foo",
		Header: "foo.h",
		Err:    &UnresolvableTypeError{Type: "Bar", Reason: "incomplete type"},
	}))
	require.NoError(l.Report(Diagnostic{
		Kind:   UnsupportedReturnLayout,
		Entity: "function GetPos",
		Header: "foo.h",
		Err:    &UnsupportedReturnLayoutError{Function: "GetPos", Reason: "variadic"},
	}))
	require.Len(l.Items(), 2)
	require.Equal("foo.h: UnresolvableType: skipped struct Foo: cannot resolve Bar: incomplete type", l.Items()[0].String())

	err := Join(l.Items())
	require.ErrorIs(err, ErrUnresolvableType)
	require.ErrorIs(err, ErrUnsupportedReturnLayout)
	require.Equal(`2 declarations skipped:
  struct Foo: cannot resolve Bar: incomplete type
  function GetPos: cannot wrap by-value return of GetPos: variadic`, err.Error())
}

func TestListStrict(t *testing.T) {
	require := require.New(t)

	l := List{Policy: Strict}
	require.NoError(l.Report(Diagnostic{
		Kind:   UnsupportedReturnLayout,
		Entity: "function F",
		Err:    &UnsupportedReturnLayoutError{Function: "F", Reason: "no spelling"},
	}))
	err := l.Report(Diagnostic{
		Kind:   UnresolvableType,
		Entity: "struct S",
		Err:    &UnresolvableTypeError{Type: "T", Reason: "unknown"},
	})
	require.EqualError(err, "strict mode: UnresolvableType: skipped struct S: cannot resolve T: unknown")
	require.ErrorIs(err, ErrUnresolvableType)
	require.Len(l.Items(), 2)
}
