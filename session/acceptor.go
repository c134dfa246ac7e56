package session

import (
	"net"

	"github.com/google/uuid"

	"github.com/rtxbroker/fixcore/fix/codec"
	"github.com/rtxbroker/fixcore/fix/schema"
	"github.com/rtxbroker/fixcore/internal/metrics"
	"github.com/rtxbroker/fixcore/logging"
)

// DefaultHeartBtInt is the heartbeat interval (seconds) offered at Logon
// (§6).
const DefaultHeartBtInt = 30

// OrderHandler receives successfully decoded order messages.
// router.Router implements this interface; the acceptor
// itself only handles framing, schema-level rejection, and the
// handshake (§4.3).
type OrderHandler interface {
	HandleNewOrderSingle(sess *Session, order *schema.NewOrderSingle)
	HandleOrderCancelRequest(sess *Session, req *schema.OrderCancelRequest)
}

// Acceptor binds a TCP listener and runs the accept loop (§4.3, §5).
type Acceptor struct {
	registry *Registry
	handler  OrderHandler
	brokerID string
	log      *logging.Logger
}

// NewAcceptor builds an Acceptor. brokerID is the single SenderCompID
// this broker presents to all peers (§6).
func NewAcceptor(registry *Registry, handler OrderHandler, brokerID string, log *logging.Logger) *Acceptor {
	return &Acceptor{
		registry: registry,
		handler:  handler,
		brokerID: brokerID,
		log:      log,
	}
}

// Serve accepts connections on ln until it returns an error (typically
// because ln was closed during shutdown).
func (a *Acceptor) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go a.handleConn(conn)
	}
}

func (a *Acceptor) handleConn(conn net.Conn) {
	dec := codec.NewDecoder()
	enc := codec.NewEncoder()
	sess := newSession(conn, enc, a.brokerID)
	defer conn.Close()

	buf := make([]byte, 4096)
	loggedIn := false

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			msgs, ferr := dec.Feed(buf[:n])
			for _, msg := range msgs {
				if !loggedIn {
					if !a.handshake(sess, msg) {
						a.registry.Remove(sess.PeerID, sess)
						metrics.SetLiveSessions(a.registry.Count())
						return
					}
					loggedIn = true
					continue
				}
				a.dispatch(sess, msg)
			}
			if ferr != nil {
				a.log.Warn("fix frame error, closing session", logging.SessionID(sess.PeerID), logging.String("error", ferr.Error()))
				a.registry.Remove(sess.PeerID, sess)
				metrics.SetLiveSessions(a.registry.Count())
				return
			}
		}
		if err != nil {
			a.registry.Remove(sess.PeerID, sess)
			metrics.SetLiveSessions(a.registry.Count())
			return
		}
	}
}

// handshake enforces that the first inbound message is a Logon (§4.3).
// It returns false when the session must be closed.
func (a *Acceptor) handshake(sess *Session, msg *schema.RawMessage) bool {
	msgType, _ := msg.Get(schema.TagMsgType)
	if msgType != schema.MsgTypeLogon {
		a.log.Warn("first message was not Logon, closing session", logging.String("msg_type", msgType))
		return false
	}
	logon, err := schema.DecodeLogon(msg)
	if err != nil {
		a.log.Warn("malformed Logon, closing session", logging.String("error", err.Error()))
		return false
	}

	sess.PeerID = logon.SenderCompID
	a.registry.Add(sess.PeerID, sess)
	metrics.SetLiveSessions(a.registry.Count())

	reply := &schema.Logon{EncryptMethod: "0", HeartBtInt: DefaultHeartBtInt}
	if err := sess.Send(schema.MsgTypeLogon, schema.EncodeLogon(reply)); err != nil {
		a.log.Warn("failed to send Logon reply", logging.SessionID(sess.PeerID), logging.String("error", err.Error()))
		return false
	}
	return true
}

func (a *Acceptor) dispatch(sess *Session, msg *schema.RawMessage) {
	msgType, _ := msg.Get(schema.TagMsgType)
	switch msgType {
	case schema.MsgTypeHeartbeat:
		a.handleHeartbeat(sess, msg)
	case schema.MsgTypeNewOrderSingle:
		a.handleNewOrderSingle(sess, msg)
	case schema.MsgTypeOrderCancelRequest:
		a.handleOrderCancelRequest(sess, msg)
	default:
		a.log.Info("ignoring unsupported message type", logging.SessionID(sess.PeerID), logging.String("msg_type", msgType))
	}
}

func (a *Acceptor) handleHeartbeat(sess *Session, msg *schema.RawMessage) {
	sess.touchHeartbeat()
	hb, err := schema.DecodeHeartbeat(msg)
	if err != nil {
		a.log.Info("dropping malformed heartbeat", logging.SessionID(sess.PeerID), logging.String("error", err.Error()))
		return
	}
	if hb.TestReqID == "" {
		return
	}
	reply := &schema.Heartbeat{TestReqID: hb.TestReqID}
	if err := sess.Send(schema.MsgTypeHeartbeat, schema.EncodeHeartbeat(reply)); err != nil {
		a.log.Warn("failed to send TestRequest reply", logging.SessionID(sess.PeerID), logging.String("error", err.Error()))
	}
}

func (a *Acceptor) handleNewOrderSingle(sess *Session, msg *schema.RawMessage) {
	order, err := schema.DecodeNewOrderSingle(msg)
	if err != nil {
		a.rejectUnparseableOrder(sess, msg, err)
		return
	}
	order.SenderCompID = sess.PeerID
	a.handler.HandleNewOrderSingle(sess, order)
}

func (a *Acceptor) handleOrderCancelRequest(sess *Session, msg *schema.RawMessage) {
	req, err := schema.DecodeOrderCancelRequest(msg)
	if err != nil {
		a.rejectUnparseableCancel(sess, msg, err)
		return
	}
	req.SenderCompID = sess.PeerID
	a.handler.HandleOrderCancelRequest(sess, req)
}

// rejectUnparseableOrder emits ExecutionReport(rejected) for a
// NewOrderSingle that failed schema decoding, per §7's wire_schema row.
func (a *Acceptor) rejectUnparseableOrder(sess *Session, msg *schema.RawMessage, cause error) {
	clOrdID, _ := msg.Get(schema.TagClOrdID)
	symbol, _ := msg.Get(schema.TagSymbol)
	side, _ := msg.Get(schema.TagSide)
	report := &schema.ExecutionReport{
		ExecID:    uuid.NewString(),
		ClOrdID:   clOrdID,
		Symbol:    symbol,
		Side:      schema.Side(side),
		ExecType:  schema.ExecTypeRejected,
		OrdStatus: schema.OrdStatusRejected,
		Text:      cause.Error(),
	}
	if err := sess.Send(schema.MsgTypeExecutionReport, schema.EncodeExecutionReport(report)); err != nil {
		a.log.Warn("failed to send ExecutionReport(rejected)", logging.SessionID(sess.PeerID), logging.String("error", err.Error()))
	}
}

func (a *Acceptor) rejectUnparseableCancel(sess *Session, msg *schema.RawMessage, cause error) {
	clOrdID, _ := msg.Get(schema.TagClOrdID)
	origClOrdID, _ := msg.Get(schema.TagOrigClOrdID)
	reject := &schema.OrderCancelReject{
		ClOrdID:          clOrdID,
		OrigClOrdID:      origClOrdID,
		CxlRejResponseTo: schema.MsgTypeOrderCancelRequest,
		CxlRejReason:     schema.CxlRejReasonOther,
		Text:             cause.Error(),
	}
	if err := sess.Send(schema.MsgTypeOrderCancelReject, schema.EncodeOrderCancelReject(reject)); err != nil {
		a.log.Warn("failed to send OrderCancelReject", logging.SessionID(sess.PeerID), logging.String("error", err.Error()))
	}
}

