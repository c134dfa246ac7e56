package schema

// TagValue is a single tag=value pair as it appears on the wire.
type TagValue struct {
	Tag   int
	Value string
}

// RawMessage is a parsed-but-untyped FIX message: the ordered tag=value
// pairs between BeginString and CheckSum, inclusive. Schema-level
// decoding (fix/schema) turns a RawMessage into one of the five typed
// message kinds this broker understands.
//
// This system uses no repeating groups, so first-occurrence semantics
// are sufficient: Get returns the first value seen for a tag and ignores
// any later duplicate.
type RawMessage struct {
	Fields []TagValue
}

// Get returns the first value for tag, and whether it was present.
func (m *RawMessage) Get(tag int) (string, bool) {
	for _, f := range m.Fields {
		if f.Tag == tag {
			return f.Value, true
		}
	}
	return "", false
}

// Set appends a tag=value pair. Used by the wire decoder (fix/codec),
// which adds fields one by one in wire order.
func (m *RawMessage) Set(tag int, value string) {
	m.Fields = append(m.Fields, TagValue{Tag: tag, Value: value})
}
