package schema

import (
	"strconv"
	"time"

	"github.com/govalues/decimal"

	"github.com/rtxbroker/fixcore/internal/coreerr"
)

func schemaErr(text string) error {
	return coreerr.New(coreerr.KindWireSchema, text)
}

func required(m *RawMessage, tag int) (string, error) {
	v, ok := m.Get(tag)
	if !ok || v == "" {
		return "", schemaErr("missing required tag " + strconv.Itoa(tag))
	}
	return v, nil
}

func requiredInt(m *RawMessage, tag int) (int, error) {
	v, err := required(m, tag)
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.Atoi(v)
	if convErr != nil {
		return 0, schemaErr("tag " + strconv.Itoa(tag) + " is not an integer")
	}
	return n, nil
}

// DecodeLogon decodes a Logon (MsgType=A), per §4.2.
func DecodeLogon(m *RawMessage) (*Logon, error) {
	sender, err := required(m, TagSenderCompID)
	if err != nil {
		return nil, err
	}
	target, err := required(m, TagTargetCompID)
	if err != nil {
		return nil, err
	}
	seq, err := requiredInt(m, TagMsgSeqNum)
	if err != nil {
		return nil, err
	}
	encrypt, err := required(m, TagEncryptMethod)
	if err != nil {
		return nil, err
	}
	heartBt, err := requiredInt(m, TagHeartBtInt)
	if err != nil {
		return nil, err
	}
	return &Logon{
		SenderCompID:  sender,
		TargetCompID:  target,
		MsgSeqNum:     seq,
		EncryptMethod: encrypt,
		HeartBtInt:    heartBt,
	}, nil
}

// DecodeHeartbeat decodes a Heartbeat (MsgType=0). TestReqID is optional.
func DecodeHeartbeat(m *RawMessage) (*Heartbeat, error) {
	sender, err := required(m, TagSenderCompID)
	if err != nil {
		return nil, err
	}
	target, err := required(m, TagTargetCompID)
	if err != nil {
		return nil, err
	}
	seq, err := requiredInt(m, TagMsgSeqNum)
	if err != nil {
		return nil, err
	}
	testReqID, _ := m.Get(TagTestReqID)
	return &Heartbeat{
		SenderCompID: sender,
		TargetCompID: target,
		MsgSeqNum:    seq,
		TestReqID:    testReqID,
	}, nil
}

// DecodeNewOrderSingle decodes a NewOrderSingle (MsgType=D). Price is
// required when OrdType is limit or stop-limit (§4.2 footnote); stop and
// stop-limit are decoded successfully here and rejected later by the
// lifecycle engine with unsupported_order_type (§9).
func DecodeNewOrderSingle(m *RawMessage) (*NewOrderSingle, error) {
	sender, err := required(m, TagSenderCompID)
	if err != nil {
		return nil, err
	}
	target, err := required(m, TagTargetCompID)
	if err != nil {
		return nil, err
	}
	seq, err := requiredInt(m, TagMsgSeqNum)
	if err != nil {
		return nil, err
	}
	clOrdID, err := required(m, TagClOrdID)
	if err != nil {
		return nil, err
	}
	symbol, err := required(m, TagSymbol)
	if err != nil {
		return nil, err
	}
	sideRaw, err := required(m, TagSide)
	if err != nil {
		return nil, err
	}
	qtyRaw, err := required(m, TagOrderQty)
	if err != nil {
		return nil, err
	}
	qty, convErr := strconv.ParseInt(qtyRaw, 10, 64)
	if convErr != nil || qty <= 0 {
		return nil, schemaErr("tag 38 (OrderQty) is not a positive integer")
	}
	ordTypeRaw, err := required(m, TagOrdType)
	if err != nil {
		return nil, err
	}
	ordType := OrdType(ordTypeRaw)

	var limitPrice decimal.Decimal
	hasLimitPrice := false
	if priceRaw, ok := m.Get(TagPrice); ok && priceRaw != "" {
		p, convErr := decimal.Parse(priceRaw)
		if convErr != nil || p.Sign() <= 0 {
			return nil, schemaErr("tag 44 (Price) is not a positive decimal")
		}
		limitPrice = p
		hasLimitPrice = true
	}
	if (ordType == OrdTypeLimit || ordType == OrdTypeStopLimit) && !hasLimitPrice {
		return nil, schemaErr("tag 44 (Price) required for OrdType " + string(ordType))
	}

	tif := TimeInForce(TimeInForceDay)
	if tifRaw, ok := m.Get(TagTimeInForce); ok && tifRaw != "" {
		tif = TimeInForce(tifRaw)
	}

	transactTime, err := decodeTransactTime(m, TagTransactTime)
	if err != nil {
		return nil, err
	}

	return &NewOrderSingle{
		SenderCompID:  sender,
		TargetCompID:  target,
		MsgSeqNum:     seq,
		ClOrdID:       clOrdID,
		Symbol:        normalizeSymbol(symbol),
		Side:          Side(sideRaw),
		OrderQty:      qty,
		OrdType:       ordType,
		LimitPrice:    limitPrice,
		HasLimitPrice: hasLimitPrice,
		TimeInForce:   tif,
		TransactTime:  transactTime,
	}, nil
}

// DecodeOrderCancelRequest decodes an OrderCancelRequest (MsgType=F).
func DecodeOrderCancelRequest(m *RawMessage) (*OrderCancelRequest, error) {
	sender, err := required(m, TagSenderCompID)
	if err != nil {
		return nil, err
	}
	target, err := required(m, TagTargetCompID)
	if err != nil {
		return nil, err
	}
	seq, err := requiredInt(m, TagMsgSeqNum)
	if err != nil {
		return nil, err
	}
	clOrdID, err := required(m, TagClOrdID)
	if err != nil {
		return nil, err
	}
	origClOrdID, err := required(m, TagOrigClOrdID)
	if err != nil {
		return nil, err
	}
	symbol, err := required(m, TagSymbol)
	if err != nil {
		return nil, err
	}
	sideRaw, err := required(m, TagSide)
	if err != nil {
		return nil, err
	}
	transactTime, err := decodeTransactTime(m, TagTransactTime)
	if err != nil {
		return nil, err
	}
	return &OrderCancelRequest{
		SenderCompID: sender,
		TargetCompID: target,
		MsgSeqNum:    seq,
		ClOrdID:      clOrdID,
		OrigClOrdID:  origClOrdID,
		Symbol:       normalizeSymbol(symbol),
		Side:         Side(sideRaw),
		TransactTime: transactTime,
	}, nil
}

func decodeTransactTime(m *RawMessage, tag int) (time.Time, error) {
	v, err := required(m, tag)
	if err != nil {
		return time.Time{}, err
	}
	t, convErr := time.Parse(SendingTimeLayout, v)
	if convErr != nil {
		return time.Time{}, schemaErr("tag " + strconv.Itoa(tag) + " is not a valid timestamp")
	}
	return t, nil
}
