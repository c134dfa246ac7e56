package codec

import (
	"bytes"
	"fmt"
	"time"

	"github.com/rtxbroker/fixcore/fix/schema"
)

// Header carries the envelope fields every outbound message needs. The
// codec fills in BodyLength, CheckSum and SendingTime; the caller
// supplies everything else, including the already-incremented outbound
// sequence number (§4.1, §4.3).
type Header struct {
	MsgType      string
	SenderCompID string
	TargetCompID string
	MsgSeqNum    int
}

// Encoder renders typed fields into a complete, checksummed FIX 4.2
// wire message.
type Encoder struct {
	bufs *BufferPool
}

// NewEncoder returns an encoder backed by a fresh buffer pool.
func NewEncoder() *Encoder {
	return &Encoder{bufs: NewBufferPool()}
}

// Encode renders header and body fields (in the given order) into a
// complete wire message, computing BodyLength and CheckSum and
// stamping SendingTime at the current instant.
func (e *Encoder) Encode(h Header, body []schema.TagValue) []byte {
	return e.EncodeAt(h, body, time.Now())
}

// EncodeAt is Encode with an explicit SendingTime, for deterministic
// tests.
func (e *Encoder) EncodeAt(h Header, body []schema.TagValue, sendingTime time.Time) []byte {
	bodyBuf := e.bufs.Get()
	defer e.bufs.Put(bodyBuf)

	writeField(bodyBuf, schema.TagMsgType, h.MsgType)
	writeField(bodyBuf, schema.TagSenderCompID, h.SenderCompID)
	writeField(bodyBuf, schema.TagTargetCompID, h.TargetCompID)
	writeField(bodyBuf, schema.TagMsgSeqNum, fmt.Sprintf("%d", h.MsgSeqNum))
	writeField(bodyBuf, schema.TagSendingTime, sendingTime.UTC().Format(schema.SendingTimeLayout))
	for _, f := range body {
		writeField(bodyBuf, f.Tag, f.Value)
	}

	out := e.bufs.Get()
	defer e.bufs.Put(out)

	writeField(out, schema.TagBeginString, schema.BeginString)
	writeField(out, schema.TagBodyLength, fmt.Sprintf("%d", bodyBuf.Len()))
	out.Write(bodyBuf.Bytes())

	sum := checksum(out.Bytes())
	writeField(out, schema.TagCheckSum, fmt.Sprintf("%03d", sum))

	result := make([]byte, out.Len())
	copy(result, out.Bytes())
	return result
}

func writeField(buf *bytes.Buffer, tag int, value string) {
	fmt.Fprintf(buf, "%d=%s", tag, value)
	buf.WriteByte(SOH)
}
