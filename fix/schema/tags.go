package schema

// FIX 4.2 tag numbers used by this broker. Only the tags needed for
// Logon, Heartbeat, NewOrderSingle, OrderCancelRequest, ExecutionReport
// and OrderCancelReject are defined; the wire protocol carries no repeating
// groups in this system.
const (
	TagBeginString  = 8
	TagBodyLength   = 9
	TagMsgType      = 35
	TagSenderCompID = 49
	TagTargetCompID = 56
	TagMsgSeqNum    = 34
	TagSendingTime  = 52
	TagCheckSum     = 10

	TagEncryptMethod = 98
	TagHeartBtInt    = 108
	TagTestReqID     = 112

	TagClOrdID      = 11
	TagOrigClOrdID  = 41
	TagSymbol       = 55
	TagSide         = 54
	TagOrderQty     = 38
	TagOrdType      = 40
	TagPrice        = 44
	TagTimeInForce  = 59
	TagTransactTime = 60

	TagExecID      = 17
	TagExecType    = 150
	TagOrdStatus   = 39
	TagCumQty      = 14
	TagLeavesQty   = 151
	TagAvgPx       = 6
	TagLastQty     = 32
	TagLastPx      = 31

	TagCxlRejReason     = 102
	TagCxlRejResponseTo = 434
	TagText             = 58
)

// MsgType values for the five message kinds this broker exchanges, plus
// OrderCancelReject which the session manager emits in response to a
// cancel request it cannot honor.
const (
	MsgTypeLogon               = "A"
	MsgTypeHeartbeat           = "0"
	MsgTypeNewOrderSingle      = "D"
	MsgTypeOrderCancelRequest  = "F"
	MsgTypeOrderCancelReject   = "9"
	MsgTypeExecutionReport     = "8"
)

// BeginString is the sole protocol version this broker accepts.
const BeginString = "FIX.4.2"

// SendingTime wire format, per §4.1.
const SendingTimeLayout = "20060102-15:04:05"
