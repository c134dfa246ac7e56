package schema

import (
	"time"

	"github.com/govalues/decimal"
)

// Logon is the inbound handshake message (MsgType=A). §4.3.
type Logon struct {
	SenderCompID  string
	TargetCompID  string
	MsgSeqNum     int
	EncryptMethod string
	HeartBtInt    int
}

// Heartbeat carries an optional TestReqID (tag 112). An empty TestReqID
// means this is a silent heartbeat, not a TestRequest reply (§4.3).
type Heartbeat struct {
	SenderCompID string
	TargetCompID string
	MsgSeqNum    int
	TestReqID    string
}

// NewOrderSingle is an inbound order instruction (MsgType=D). LimitPrice
// is only meaningful when HasLimitPrice is true; §3 invariant 8 requires
// it present iff OrdType=limit (and, per §9, stop-limit, though that
// order type is rejected before the price is ever consulted).
type NewOrderSingle struct {
	SenderCompID  string
	TargetCompID  string
	MsgSeqNum     int
	ClOrdID       string
	Symbol        string
	Side          Side
	OrderQty      int64
	OrdType       OrdType
	LimitPrice    decimal.Decimal
	HasLimitPrice bool
	TimeInForce   TimeInForce
	TransactTime  time.Time
}

// OrderCancelRequest is an inbound cancel request (MsgType=F).
type OrderCancelRequest struct {
	SenderCompID string
	TargetCompID string
	MsgSeqNum    int
	ClOrdID      string
	OrigClOrdID  string
	Symbol       string
	Side         Side
	TransactTime time.Time
}

// ExecutionReport is the outbound report of an order's current state
// (MsgType=8). LastQty/LastPx are only populated on fills (§4.2).
type ExecutionReport struct {
	SenderCompID string
	TargetCompID string
	MsgSeqNum    int
	ExecID       string
	ClOrdID      string
	Symbol       string
	Side         Side
	ExecType     ExecType
	OrdStatus    OrdStatus
	CumQty       int64
	LeavesQty    int64
	AvgPx        decimal.Decimal
	HasLastFill  bool
	LastQty      int64
	LastPx       decimal.Decimal
	Text         string
}

// OrderCancelReject is the outbound rejection of a cancel request
// (MsgType=9), per §4.5's cancel admission rules.
type OrderCancelReject struct {
	SenderCompID    string
	TargetCompID    string
	MsgSeqNum       int
	ClOrdID         string
	OrigClOrdID     string
	CxlRejReason    CxlRejReason
	CxlRejResponseTo string
	Text            string
}
