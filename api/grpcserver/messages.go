package grpcserver

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Messages are encoded by hand in protobuf wire format; the matching
// schema lives in ordered_map.proto next to this file. Byte fields keep
// presence: a nil key is omitted, an empty key is sent as a zero-length field.

type wireMessage interface {
	appendWire(b []byte) []byte
	parseWire(b []byte) error
}

type GetRequest struct {
	Key []byte // 1
}

type GetResponse struct {
	Value   []byte // 1
	Found   bool   // 2
	Version uint64 // 3
}

type PutRequest struct {
	Key   []byte // 1
	Value []byte // 2
}

type PutResponse struct {
	Version uint64 // 1
}

type StatsRequest struct{}

type StatsResponse struct {
	Entries     uint64 // 1
	LastVersion uint64 // 2
}

func (m *GetRequest) appendWire(b []byte) []byte {
	return appendBytesField(b, 1, m.Key)
}

func (m *GetRequest) parseWire(b []byte) error {
	*m = GetRequest{}
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 && typ == protowire.BytesType {
			return consumeBytesInto(b, &m.Key)
		}
		return skip
	})
}

func (m *GetResponse) appendWire(b []byte) []byte {
	b = appendBytesField(b, 1, m.Value)
	b = appendBoolField(b, 2, m.Found)
	return appendVarintField(b, 3, m.Version)
}

func (m *GetResponse) parseWire(b []byte) error {
	*m = GetResponse{}
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == 1 && typ == protowire.BytesType:
			return consumeBytesInto(b, &m.Value)
		case num == 2 && typ == protowire.VarintType:
			var v uint64
			n := consumeVarintInto(b, &v)
			m.Found = protowire.DecodeBool(v)
			return n
		case num == 3 && typ == protowire.VarintType:
			return consumeVarintInto(b, &m.Version)
		}
		return skip
	})
}

func (m *PutRequest) appendWire(b []byte) []byte {
	b = appendBytesField(b, 1, m.Key)
	return appendBytesField(b, 2, m.Value)
}

func (m *PutRequest) parseWire(b []byte) error {
	*m = PutRequest{}
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == 1 && typ == protowire.BytesType:
			return consumeBytesInto(b, &m.Key)
		case num == 2 && typ == protowire.BytesType:
			return consumeBytesInto(b, &m.Value)
		}
		return skip
	})
}

func (m *PutResponse) appendWire(b []byte) []byte {
	return appendVarintField(b, 1, m.Version)
}

func (m *PutResponse) parseWire(b []byte) error {
	*m = PutResponse{}
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 && typ == protowire.VarintType {
			return consumeVarintInto(b, &m.Version)
		}
		return skip
	})
}

func (m *StatsRequest) appendWire(b []byte) []byte { return b }

func (m *StatsRequest) parseWire(b []byte) error {
	return parseFields(b, func(protowire.Number, protowire.Type, []byte) int { return skip })
}

func (m *StatsResponse) appendWire(b []byte) []byte {
	b = appendVarintField(b, 1, m.Entries)
	return appendVarintField(b, 2, m.LastVersion)
}

func (m *StatsResponse) parseWire(b []byte) error {
	*m = StatsResponse{}
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == 1 && typ == protowire.VarintType:
			return consumeVarintInto(b, &m.Entries)
		case num == 2 && typ == protowire.VarintType:
			return consumeVarintInto(b, &m.LastVersion)
		}
		return skip
	})
}

// ---- wire helpers ----

// skip tells parseFields the field is unknown to the message.
const skip = -1 << 30

func parseFields(b []byte, field func(num protowire.Number, typ protowire.Type, b []byte) int) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		n = field(num, typ, b)
		if n == skip {
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return nil
}

func consumeBytesInto(b []byte, dst *[]byte) int {
	v, n := protowire.ConsumeBytes(b)
	if n >= 0 {
		*dst = append([]byte{}, v...)
	}
	return n
}

func consumeVarintInto(b []byte, dst *uint64) int {
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = v
	}
	return n
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBoolField(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return appendVarintField(b, num, protowire.EncodeBool(v))
}
