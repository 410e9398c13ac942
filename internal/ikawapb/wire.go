// Package ikawapb implements the Ikawa roaster message catalog: commands,
// responses, roast profiles and machine status, encoded as proto3 messages.
//
// Messages follow proto3 rules: zero-valued scalars are omitted on encode,
// unknown fields are skipped on decode, and repeated scalars accept both
// packed and unpacked encodings.
package ikawapb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// message is implemented by every type in the catalog.
type message interface {
	Marshal() []byte
}

// field is one decoded key/value pair. Varint holds the value of VarintType
// fields; Bytes holds the payload of BytesType fields.
type field struct {
	Num    protowire.Number
	Type   protowire.Type
	Varint uint64
	Bytes  []byte
}

func (f field) isVarint() bool { return f.Type == protowire.VarintType }
func (f field) isBytes() bool  { return f.Type == protowire.BytesType }

// walk calls fn for each varint or length-delimited field in b, skipping
// fields of any other wire type.
func walk(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("ikawapb: tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		f := field{Num: num, Type: typ}
		switch typ {
		case protowire.VarintType:
			f.Varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.Bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("ikawapb: field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]

		if typ != protowire.VarintType && typ != protowire.BytesType {
			continue
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// appendMessage encodes m as a nested message. Callers skip nil messages;
// an empty message is still emitted so presence survives a round trip.
func appendMessage(b []byte, num protowire.Number, m message) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m.Marshal())
}

// appendPackedVarints encodes vs as a packed repeated field.
func appendPackedVarints(b []byte, num protowire.Number, vs []uint32) []byte {
	if len(vs) == 0 {
		return b
	}
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, uint64(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

// consumePackedVarints appends the values of a packed or unpacked repeated
// varint field to dst.
func consumePackedVarints(dst []uint32, f field) ([]uint32, error) {
	if f.isVarint() {
		return append(dst, uint32(f.Varint)), nil
	}
	b := f.Bytes
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return dst, fmt.Errorf("ikawapb: packed field %d: %w", f.Num, protowire.ParseError(n))
		}
		dst = append(dst, uint32(v))
		b = b[n:]
	}
	return dst, nil
}

// unmarshalNested decodes f as a nested message with parse.
func unmarshalNested[T any](f field, parse func([]byte) (*T, error)) (*T, error) {
	if !f.isBytes() {
		return nil, fmt.Errorf("ikawapb: field %d: expected message, got wire type %d", f.Num, f.Type)
	}
	return parse(f.Bytes)
}
