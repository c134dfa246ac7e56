package schema

import (
	"strconv"
)

// EncodeLogon renders a Logon reply's body fields (everything after the
// standard header, which the codec encoder fills in separately).
func EncodeLogon(l *Logon) []TagValue {
	return []TagValue{
		{Tag: TagEncryptMethod, Value: l.EncryptMethod},
		{Tag: TagHeartBtInt, Value: strconv.Itoa(l.HeartBtInt)},
	}
}

// EncodeHeartbeat renders a Heartbeat's body fields. An empty TestReqID
// is omitted, matching a silent heartbeat rather than a TestRequest
// reply.
func EncodeHeartbeat(h *Heartbeat) []TagValue {
	if h.TestReqID == "" {
		return nil
	}
	return []TagValue{{Tag: TagTestReqID, Value: h.TestReqID}}
}

// EncodeExecutionReport renders an ExecutionReport's body fields (§4.2,
// §4.5, §4.6).
func EncodeExecutionReport(r *ExecutionReport) []TagValue {
	fields := []TagValue{
		{Tag: TagExecID, Value: r.ExecID},
		{Tag: TagClOrdID, Value: r.ClOrdID},
		{Tag: TagSymbol, Value: r.Symbol},
		{Tag: TagSide, Value: string(r.Side)},
		{Tag: TagExecType, Value: string(r.ExecType)},
		{Tag: TagOrdStatus, Value: string(r.OrdStatus)},
		{Tag: TagCumQty, Value: strconv.FormatInt(r.CumQty, 10)},
		{Tag: TagLeavesQty, Value: strconv.FormatInt(r.LeavesQty, 10)},
		{Tag: TagAvgPx, Value: r.AvgPx.String()},
	}
	if r.HasLastFill {
		fields = append(fields,
			TagValue{Tag: TagLastQty, Value: strconv.FormatInt(r.LastQty, 10)},
			TagValue{Tag: TagLastPx, Value: r.LastPx.String()},
		)
	}
	if r.Text != "" {
		fields = append(fields, TagValue{Tag: TagText, Value: r.Text})
	}
	return fields
}

// EncodeOrderCancelReject renders an OrderCancelReject's body fields
// (§4.5's cancel admission rules).
func EncodeOrderCancelReject(r *OrderCancelReject) []TagValue {
	fields := []TagValue{
		{Tag: TagClOrdID, Value: r.ClOrdID},
		{Tag: TagOrigClOrdID, Value: r.OrigClOrdID},
		{Tag: TagCxlRejResponseTo, Value: r.CxlRejResponseTo},
		{Tag: TagCxlRejReason, Value: string(r.CxlRejReason)},
	}
	if r.Text != "" {
		fields = append(fields, TagValue{Tag: TagText, Value: r.Text})
	}
	return fields
}
