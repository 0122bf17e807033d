package rowcodec_test

import (
	"testing"

	"github.com/leftmike/mahoundo/internal/rowcodec"
	"github.com/leftmike/mahoundo/internal/session"
	isql "github.com/leftmike/mahoundo/internal/sql"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := rowcodec.Default{}
	table := isql.TableName{Database: isql.ID("db1"), Schema: isql.ID("public"), Table: isql.ID("accounts")}
	row := []isql.Value{
		isql.Int64Value(42),
		isql.StringValue("alice"),
		nil,
		isql.BoolValue(true),
		isql.Float64Value(3.5),
		isql.BytesValue([]byte{1, 2, 3}),
	}

	buf := codec.CreatePage(256)
	frame, err := codec.Encode(buf, rowcodec.UpdateNew, table, row)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if got := codec.SerializedLength(frame); got != len(frame) {
		t.Errorf("SerializedLength() = %d, want %d", got, len(frame))
	}

	ses := session.New("test", isql.ID("db1"))
	kind, gotTable, gotRow, err := codec.Decode(frame, ses)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if kind != rowcodec.UpdateNew {
		t.Errorf("kind = %v, want %v", kind, rowcodec.UpdateNew)
	}
	if gotTable != table {
		t.Errorf("table = %v, want %v", gotTable, table)
	}
	if len(gotRow) != len(row) {
		t.Fatalf("row length = %d, want %d", len(gotRow), len(row))
	}
	for i := range row {
		if row[i] == nil {
			if gotRow[i] != nil {
				t.Errorf("column %d = %v, want nil", i, gotRow[i])
			}
			continue
		}
		if row[i].String() != gotRow[i].String() {
			t.Errorf("column %d = %v, want %v", i, gotRow[i], row[i])
		}
	}
}

func TestEncodeDecodeWideRow(t *testing.T) {
	codec := rowcodec.Default{}
	table := isql.TableName{Table: isql.ID("wide")}

	// 20 columns exercises both the inline column-number nibble (0-14)
	// and the extended varint-encoded form (15 and up).
	row := make([]isql.Value, 20)
	for i := range row {
		row[i] = isql.Int64Value(int64(i))
	}

	frame, err := codec.Encode(codec.CreatePage(256), rowcodec.Insert, table, row)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	ses := session.New("test", isql.ID("db"))
	_, _, gotRow, err := codec.Decode(frame, ses)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(gotRow) != len(row) {
		t.Fatalf("row length = %d, want %d", len(gotRow), len(row))
	}
	for i := range row {
		if gotRow[i].String() != row[i].String() {
			t.Errorf("column %d = %v, want %v", i, gotRow[i], row[i])
		}
	}
}

func TestCanEncodeRefusesStreamValues(t *testing.T) {
	codec := rowcodec.Default{}

	plain := []isql.Value{isql.Int64Value(1), isql.StringValue("ok")}
	if !codec.CanEncode(plain) {
		t.Errorf("CanEncode(plain) = false, want true")
	}

	withStream := []isql.Value{isql.Int64Value(1), isql.StreamValue{Name: "blob"}}
	if codec.CanEncode(withStream) {
		t.Errorf("CanEncode(withStream) = true, want false")
	}
}

func TestEncodeRefusesIneligibleRow(t *testing.T) {
	codec := rowcodec.Default{}
	table := isql.TableName{Table: isql.ID("t")}
	row := []isql.Value{isql.StreamValue{Name: "blob"}}

	if _, err := codec.Encode(codec.CreatePage(64), rowcodec.Insert, table, row); err == nil {
		t.Errorf("Encode(ineligible row) succeeded, want error")
	}
}

func TestVarintRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 300, 1 << 20, 1 << 40, ^uint64(0)}
	for _, c := range cases {
		buf := rowcodec.EncodeVarint(nil, c)
		rest, got, ok := rowcodec.DecodeVarint(buf)
		if !ok {
			t.Errorf("DecodeVarint(%d) failed", c)
			continue
		}
		if len(rest) != 0 {
			t.Errorf("DecodeVarint(%d) left %d trailing bytes", c, len(rest))
		}
		if got != c {
			t.Errorf("DecodeVarint(%d) = %d", c, got)
		}
	}
}

func TestZigzagRoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 1000, -1000, 1 << 40, -(1 << 40)}
	for _, c := range cases {
		buf := rowcodec.EncodeZigzag64(nil, c)
		_, got, ok := rowcodec.DecodeZigzag64(buf)
		if !ok {
			t.Errorf("DecodeZigzag64(%d) failed", c)
			continue
		}
		if got != c {
			t.Errorf("DecodeZigzag64(%d) = %d", c, got)
		}
	}
}
