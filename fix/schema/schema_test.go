package schema

import (
	"testing"
	"time"

	"github.com/govalues/decimal"

	"github.com/rtxbroker/fixcore/internal/coreerr"
)

func rawFrom(fields ...TagValue) *RawMessage {
	return &RawMessage{Fields: fields}
}

func baseNewOrderFields() []TagValue {
	return []TagValue{
		{Tag: TagSenderCompID, Value: "C1"},
		{Tag: TagTargetCompID, Value: "BROKER"},
		{Tag: TagMsgSeqNum, Value: "1"},
		{Tag: TagClOrdID, Value: "O1"},
		{Tag: TagSymbol, Value: "  aapl "},
		{Tag: TagSide, Value: string(SideBuy)},
		{Tag: TagOrderQty, Value: "100"},
		{Tag: TagOrdType, Value: string(OrdTypeMarket)},
		{Tag: TagTransactTime, Value: "20240102-03:04:05"},
	}
}

func TestDecodeNewOrderSingleMarket(t *testing.T) {
	msg := rawFrom(baseNewOrderFields()...)
	order, err := DecodeNewOrderSingle(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Symbol != "AAPL" {
		t.Errorf("Symbol normalization: got %q", order.Symbol)
	}
	if order.HasLimitPrice {
		t.Errorf("market order should not have a limit price")
	}
	if !order.TransactTime.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("TransactTime = %v", order.TransactTime)
	}
	if order.TimeInForce != TimeInForceDay {
		t.Errorf("default TimeInForce should be day, got %q", order.TimeInForce)
	}
}

func TestDecodeNewOrderSingleLimitMissingPriceIsWireSchema(t *testing.T) {
	fields := baseNewOrderFields()
	for i, f := range fields {
		if f.Tag == TagOrdType {
			fields[i].Value = string(OrdTypeLimit)
		}
	}
	_, err := DecodeNewOrderSingle(rawFrom(fields...))
	if err == nil {
		t.Fatal("expected an error for a limit order with no Price")
	}
	if kind, ok := coreerr.Of(err); !ok || kind != coreerr.KindWireSchema {
		t.Fatalf("expected wire_schema, got %v", err)
	}
}

func TestDecodeNewOrderSingleLimitWithPrice(t *testing.T) {
	fields := baseNewOrderFields()
	for i, f := range fields {
		if f.Tag == TagOrdType {
			fields[i].Value = string(OrdTypeLimit)
		}
	}
	fields = append(fields, TagValue{Tag: TagPrice, Value: "160.50"})

	order, err := DecodeNewOrderSingle(rawFrom(fields...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !order.HasLimitPrice {
		t.Fatal("expected HasLimitPrice")
	}
	want := decimal.MustParse("160.50")
	if order.LimitPrice.Cmp(want) != 0 {
		t.Errorf("LimitPrice = %v, want %v", order.LimitPrice, want)
	}
}

func TestDecodeNewOrderSingleMissingRequiredTag(t *testing.T) {
	fields := baseNewOrderFields()
	var trimmed []TagValue
	for _, f := range fields {
		if f.Tag == TagClOrdID {
			continue
		}
		trimmed = append(trimmed, f)
	}
	_, err := DecodeNewOrderSingle(rawFrom(trimmed...))
	if err == nil {
		t.Fatal("expected an error for missing ClOrdID")
	}
	if kind, ok := coreerr.Of(err); !ok || kind != coreerr.KindWireSchema {
		t.Fatalf("expected wire_schema, got %v", err)
	}
}

func TestDecodeOrderCancelRequest(t *testing.T) {
	msg := rawFrom(
		TagValue{Tag: TagSenderCompID, Value: "C1"},
		TagValue{Tag: TagTargetCompID, Value: "BROKER"},
		TagValue{Tag: TagMsgSeqNum, Value: "2"},
		TagValue{Tag: TagClOrdID, Value: "O1-CANCEL"},
		TagValue{Tag: TagOrigClOrdID, Value: "O1"},
		TagValue{Tag: TagSymbol, Value: "AAPL"},
		TagValue{Tag: TagSide, Value: string(SideBuy)},
		TagValue{Tag: TagTransactTime, Value: "20240102-03:04:06"},
	)
	req, err := DecodeOrderCancelRequest(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.OrigClOrdID != "O1" {
		t.Errorf("OrigClOrdID = %q", req.OrigClOrdID)
	}
}

func TestEncodeExecutionReportRoundTrip(t *testing.T) {
	report := &ExecutionReport{
		ExecID:      "E1",
		ClOrdID:     "O1",
		Symbol:      "AAPL",
		Side:        SideBuy,
		ExecType:    ExecTypeFill,
		OrdStatus:   OrdStatusFilled,
		CumQty:      100,
		LeavesQty:   0,
		AvgPx:       decimal.MustParse("150.00"),
		HasLastFill: true,
		LastQty:     100,
		LastPx:      decimal.MustParse("150.00"),
	}
	fields := EncodeExecutionReport(report)

	msg := rawFrom(fields...)
	if v, _ := msg.Get(TagExecID); v != "E1" {
		t.Errorf("ExecID = %q", v)
	}
	if v, _ := msg.Get(TagCumQty); v != "100" {
		t.Errorf("CumQty = %q", v)
	}
	if v, _ := msg.Get(TagLastPx); v != "150.00" {
		t.Errorf("LastPx = %q", v)
	}
}

func TestEncodeOrderCancelReject(t *testing.T) {
	reject := &OrderCancelReject{
		ClOrdID:          "O1-CANCEL",
		OrigClOrdID:      "O1",
		CxlRejResponseTo: string(MsgTypeOrderCancelRequest),
		CxlRejReason:     CxlRejReasonTooLateToCancel,
		Text:             "order already filled",
	}
	fields := EncodeOrderCancelReject(reject)
	msg := rawFrom(fields...)
	if v, _ := msg.Get(TagCxlRejReason); v != string(CxlRejReasonTooLateToCancel) {
		t.Errorf("CxlRejReason = %q", v)
	}
	if v, _ := msg.Get(TagText); v != "order already filled" {
		t.Errorf("Text = %q", v)
	}
}

func TestValidSymbol(t *testing.T) {
	cases := map[string]bool{
		"AAPL":        true,
		"A":           true,
		"":            false,
		"TOOLONGSYM1": false,
		"aapl":        false,
		"AA PL":       false,
	}
	for sym, want := range cases {
		if got := ValidSymbol(sym); got != want {
			t.Errorf("ValidSymbol(%q) = %v, want %v", sym, got, want)
		}
	}
}
