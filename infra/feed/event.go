package feed

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Event describes one accepted write. Events are encoded in protobuf wire
// format so consumers can decode them with a plain .proto definition:
//
//	message Event {
//	  uint64 version   = 1;
//	  bytes  key       = 2;
//	  bytes  value     = 3;
//	  int64  unix_nano = 4;
//	  bool   overwrite = 5;
//	}
type Event struct {
	Version   uint64
	Key       []byte
	Value     []byte
	Time      time.Time
	Overwrite bool
}

const (
	fieldVersion   protowire.Number = 1
	fieldKey       protowire.Number = 2
	fieldValue     protowire.Number = 3
	fieldUnixNano  protowire.Number = 4
	fieldOverwrite protowire.Number = 5
)

var ErrMalformedEvent = errors.New("feed: malformed event")

// AppendMarshal appends the wire encoding of e to b.
func (e *Event) AppendMarshal(b []byte) []byte {
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, e.Version)
	b = protowire.AppendTag(b, fieldKey, protowire.BytesType)
	b = protowire.AppendBytes(b, e.Key)
	b = protowire.AppendTag(b, fieldValue, protowire.BytesType)
	b = protowire.AppendBytes(b, e.Value)
	if !e.Time.IsZero() {
		b = protowire.AppendTag(b, fieldUnixNano, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e.Time.UnixNano()))
	}
	if e.Overwrite {
		b = protowire.AppendTag(b, fieldOverwrite, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	return b
}

func (e *Event) Marshal() []byte {
	return e.AppendMarshal(make([]byte, 0, 24+len(e.Key)+len(e.Value)))
}

// Unmarshal decodes b into e. Unknown fields are skipped.
func (e *Event) Unmarshal(b []byte) error {
	*e = Event{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformedEvent, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldVersion && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("%w: version: %v", ErrMalformedEvent, protowire.ParseError(n))
			}
			e.Version, b = v, b[n:]
		case num == fieldKey && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("%w: key: %v", ErrMalformedEvent, protowire.ParseError(n))
			}
			e.Key, b = append([]byte{}, v...), b[n:]
		case num == fieldValue && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("%w: value: %v", ErrMalformedEvent, protowire.ParseError(n))
			}
			e.Value, b = append([]byte{}, v...), b[n:]
		case num == fieldUnixNano && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("%w: time: %v", ErrMalformedEvent, protowire.ParseError(n))
			}
			e.Time, b = time.Unix(0, int64(v)), b[n:]
		case num == fieldOverwrite && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("%w: overwrite: %v", ErrMalformedEvent, protowire.ParseError(n))
			}
			e.Overwrite, b = protowire.DecodeBool(v), b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformedEvent, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}

// versionHeader carries the big-endian write version as a record header so
// consumers can order without decoding the payload.
const versionHeader = "rbstore-version"

func versionBytes(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}
