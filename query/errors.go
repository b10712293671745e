package query

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedOperator is returned for any $-key other than $in,
	// $regex and $or.
	ErrUnsupportedOperator = errors.New("unsupported filter operator")

	// ErrInvalidOperand is returned when a value has the wrong shape for
	// its position, e.g. $in given a string.
	ErrInvalidOperand = errors.New("invalid filter operand")

	// ErrInvalidAlias is returned when the node alias is not a plain
	// Cypher identifier.
	ErrInvalidAlias = errors.New("invalid node alias")
)

// FilterError pins a translation failure to the offending field path and
// operator. It unwraps to one of the sentinel errors above.
type FilterError struct {
	Path   string // dotted field path, empty for top-level problems
	Op     string // operator key, empty for plain values
	Reason string
	Err    error
}

func (e *FilterError) Error() string {
	msg := "query: " + e.Err.Error()
	switch {
	case e.Path != "" && e.Op != "":
		msg += fmt.Sprintf(" %s on field %q", e.Op, e.Path)
	case e.Op != "":
		msg += " " + e.Op
	case e.Path != "":
		msg += fmt.Sprintf(" on field %q", e.Path)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *FilterError) Unwrap() error { return e.Err }

func unsupported(path, op string) error {
	return &FilterError{Path: path, Op: op, Err: ErrUnsupportedOperator}
}

func invalid(path, op, format string, args ...any) error {
	return &FilterError{Path: path, Op: op, Reason: fmt.Sprintf(format, args...), Err: ErrInvalidOperand}
}
