// Package coreerr defines the error taxonomy shared by the schema,
// lifecycle, and router packages. Each Kind corresponds to exactly one
// outbound surface or admin-API return value.
package coreerr

import "fmt"

// Kind names one of the error categories the core raises.
type Kind string

const (
	KindWireFraming           Kind = "wire_framing"
	KindWireSchema            Kind = "wire_schema"
	KindDuplicateClOrdID      Kind = "duplicate_cl_ord_id"
	KindUnsupportedOrderType  Kind = "unsupported_order_type"
	KindIllegalTransition     Kind = "illegal_transition"
	KindLimitNotCrossed       Kind = "limit_not_crossed"
	KindSymbolUnknown         Kind = "symbol_unknown"
	KindFOKNotFullyFillable   Kind = "fok_not_fully_fillable"
	KindCancelTooLate         Kind = "cancel_too_late"
	KindCancelUnknown         Kind = "cancel_unknown"
)

// Error is a core-raised error tagged with a Kind, so callers can decide
// the right outbound surface without string matching (§7).
type Error struct {
	Kind Kind
	Text string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Text)
}

// New constructs an *Error of the given kind.
func New(kind Kind, text string) *Error {
	return &Error{Kind: kind, Text: text}
}

// Of extracts the Kind of err, if err is a *Error.
func Of(err error) (Kind, bool) {
	if ce, ok := err.(*Error); ok {
		return ce.Kind, true
	}
	return "", false
}
