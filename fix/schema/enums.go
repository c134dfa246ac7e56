package schema

// Side represents order side (tag 54).
type Side string

const (
	SideBuy  Side = "1"
	SideSell Side = "2"
)

// OrdType represents order type (tag 40). Stop and StopLimit are
// recognized on the wire but have no lifecycle semantics: the lifecycle
// engine rejects them with unsupported_order_type (§4.5, §9 Open
// Question).
type OrdType string

const (
	OrdTypeMarket    OrdType = "1"
	OrdTypeLimit     OrdType = "2"
	OrdTypeStop      OrdType = "3"
	OrdTypeStopLimit OrdType = "4"
)

// TimeInForce represents order time in force (tag 59).
type TimeInForce string

const (
	TimeInForceDay TimeInForce = "0"
	TimeInForceGTC TimeInForce = "1"
	TimeInForceIOC TimeInForce = "3"
	TimeInForceFOK TimeInForce = "4"
)

// ExecType represents the outbound execution type (tag 150).
type ExecType string

const (
	ExecTypeNew         ExecType = "0"
	ExecTypePartialFill ExecType = "1"
	ExecTypeFill        ExecType = "2"
	ExecTypeCanceled    ExecType = "4"
	ExecTypeRejected    ExecType = "8"
)

// OrdStatus represents the outbound order status (tag 39).
type OrdStatus string

const (
	OrdStatusNew             OrdStatus = "0"
	OrdStatusPartiallyFilled OrdStatus = "1"
	OrdStatusFilled          OrdStatus = "2"
	OrdStatusCanceled        OrdStatus = "4"
	OrdStatusRejected        OrdStatus = "8"
)

// CxlRejReason represents the reason an OrderCancelReject carries
// (tag 102), per §7.
type CxlRejReason string

const (
	CxlRejReasonTooLateToCancel CxlRejReason = "0"
	CxlRejReasonUnknownOrder    CxlRejReason = "1"
	CxlRejReasonOther           CxlRejReason = "4"
)
