// Package session implements the FIX session manager (C3): per-connection
// state, the Logon handshake, and per-session outbound sequencing across
// many concurrent TCP connections (§4.3).
package session

import (
	"net"
	"sync"
	"time"

	"github.com/rtxbroker/fixcore/fix/codec"
	"github.com/rtxbroker/fixcore/fix/schema"
)

// Session is the transient, per-connection state described in §3. Unlike
// the source this was distilled from, the outbound sequence counter
// lives on the session itself rather than on a single process-wide
// counter (§9 open question): it starts at 1 and is strictly monotonic
// per session, never shared across peers.
type Session struct {
	PeerID string

	brokerID string
	conn     net.Conn
	enc      *codec.Encoder

	mu            sync.Mutex
	outSeqNum     int
	lastHeartbeat time.Time
	closed        bool
}

func newSession(conn net.Conn, enc *codec.Encoder, brokerID string) *Session {
	return &Session{
		brokerID:  brokerID,
		conn:      conn,
		enc:       enc,
		outSeqNum: 1,
	}
}

// Send encodes and writes one message to the peer. The write and the
// sequence-number increment happen under the same lock so two
// concurrent senders (e.g. an admin fill and a heartbeat reply) cannot
// interleave bytes on the wire (§5).
func (s *Session) Send(msgType string, body []schema.TagValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return net.ErrClosed
	}
	seq := s.outSeqNum
	s.outSeqNum++

	wire := s.enc.Encode(codec.Header{
		MsgType:      msgType,
		SenderCompID: s.brokerID,
		TargetCompID: s.PeerID,
		MsgSeqNum:    seq,
	}, body)

	_, err := s.conn.Write(wire)
	return err
}

func (s *Session) touchHeartbeat() {
	s.mu.Lock()
	s.lastHeartbeat = time.Now()
	s.mu.Unlock()
}

// Close closes the underlying connection. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
