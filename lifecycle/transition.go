package lifecycle

import (
	"github.com/govalues/decimal"

	"github.com/rtxbroker/fixcore/fix/schema"
)

// Transition is one externally observable state change produced by the
// engine (§4.5, §4.6). The router (C7) turns each Transition into an
// ExecutionReport targeted at SenderID; it carries everything needed to
// build that report without requiring the order to have been persisted
// (a pre-persist rejection has OrderInternalID == 0).
type Transition struct {
	OrderInternalID int64
	SenderID        string
	ClOrdID         string
	Symbol          string
	Side            schema.Side

	ExecType  schema.ExecType
	OrdStatus schema.OrdStatus

	CumQty    int64
	LeavesQty int64
	AvgPx     decimal.Decimal

	HasLastFill bool
	LastQty     int64
	LastPx      decimal.Decimal

	Text string
}
