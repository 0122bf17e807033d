package sql

import (
	"bytes"
	"fmt"
	"strings"
)

// Value is one column of a row image. The undo log never interprets a
// Value; it is opaque payload that the row codec knows how to serialize.
type Value interface {
	fmt.Stringer
}

type BoolValue bool

func (b BoolValue) String() string {
	if b {
		return "true"
	}
	return "false"
}

type Int64Value int64

func (i Int64Value) String() string {
	return fmt.Sprintf("%d", int64(i))
}

type Float64Value float64

func (d Float64Value) String() string {
	return fmt.Sprintf("%v", float64(d))
}

type StringValue string

func (s StringValue) String() string {
	return fmt.Sprintf("'%s'", string(s))
}

type BytesValue []byte

func (b BytesValue) String() string {
	var buf bytes.Buffer
	buf.WriteString("'\\x")
	const hexDigits = "0123456789abcdef"
	for _, v := range b {
		buf.WriteByte(hexDigits[v>>4])
		buf.WriteByte(hexDigits[v&0xF])
	}
	buf.WriteByte('\'')
	return buf.String()
}

// StreamValue stands in for a row column that references a transient,
// session-local resource (an open LOB stream, in H2's terms) which cannot
// be byte-round-tripped through a scratch file. Any row carrying one is
// ineligible for spill; see rowcodec.Codec.CanEncode.
type StreamValue struct {
	Name string
}

func (s StreamValue) String() string {
	return fmt.Sprintf("<stream %s>", s.Name)
}

// Format renders a row's values the way a REPL would print them.
func Format(row []Value) string {
	parts := make([]string, len(row))
	for i, v := range row {
		if v == nil {
			parts[i] = "NULL"
		} else {
			parts[i] = v.String()
		}
	}
	return strings.Join(parts, ", ")
}
