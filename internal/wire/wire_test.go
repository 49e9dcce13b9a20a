package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Olexandr88/indexreg/internal/registry"
)

func testOperator(b byte) registry.OperatorID {
	var id registry.OperatorID
	id[registry.OperatorIDLen-1] = b
	return id
}

func TestEncodeDecodeFieldsRoundTripPreservesUnknown(t *testing.T) {
	in := []Field{
		{ID: 1, Type: TypeString, Value: []byte("operator-1")},
		{ID: 9999, Type: TypeBytes, Value: []byte{0xAA, 0xBB}}, // unknown field id
	}
	b := EncodeFields(in)
	out, err := DecodeFields(b)
	if err != nil {
		t.Fatalf("decode fields: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(out))
	}
	if out[1].ID != 9999 || out[1].Type != TypeBytes || !bytes.Equal(out[1].Value, []byte{0xAA, 0xBB}) {
		t.Fatalf("unknown field not preserved: %+v", out[1])
	}
}

func TestDecodeFieldsMalformedHeaderIsDeterministic(t *testing.T) {
	_, err := DecodeFields([]byte{1, 2, 3})
	if !errors.Is(err, ErrShortFieldHeader) {
		t.Fatalf("expected ErrShortFieldHeader, got %v", err)
	}
}

func TestDecodeFieldsMalformedLengthIsDeterministic(t *testing.T) {
	// id=1, type=string, len=5, value only 2 bytes
	payload := []byte{0, 1, TypeString, 0, 0, 0, 5, 'a', 'b'}
	_, err := DecodeFields(payload)
	if !errors.Is(err, ErrShortFieldValue) {
		t.Fatalf("expected ErrShortFieldValue, got %v", err)
	}
}

func TestRecordRoundTripRegister(t *testing.T) {
	in := Record{
		Seq:      7,
		Type:     RecordRegister,
		Block:    1234,
		Operator: testOperator(1),
		Quorums:  []registry.QuorumNumber{0, 2, 5},
	}
	buf, err := EncodeRecord(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeRecord(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Seq != in.Seq || out.Type != in.Type || out.Block != in.Block || out.Operator != in.Operator {
		t.Fatalf("record mismatch: %+v", out)
	}
	if len(out.Quorums) != 3 || out.Quorums[2] != 5 {
		t.Fatalf("quorums mismatch: %v", out.Quorums)
	}
}

func TestRecordRoundTripDeregister(t *testing.T) {
	in := Record{
		Seq:           8,
		Type:          RecordDeregister,
		Block:         2000,
		Operator:      testOperator(1),
		Complete:      true,
		Quorums:       []registry.QuorumNumber{0, 1},
		SwapOperators: []registry.OperatorID{testOperator(2), testOperator(3)},
		GlobalIndex:   4,
	}
	buf, err := EncodeRecord(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeRecord(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Complete || out.GlobalIndex != 4 {
		t.Fatalf("deregister fields mismatch: %+v", out)
	}
	if len(out.SwapOperators) != 2 || out.SwapOperators[1] != testOperator(3) {
		t.Fatalf("swap operators mismatch: %v", out.SwapOperators)
	}
}

func TestDecodeRecordRejectsCorruption(t *testing.T) {
	buf, err := EncodeRecord(Record{
		Seq:      1,
		Type:     RecordRegister,
		Block:    10,
		Operator: testOperator(1),
		Quorums:  []registry.QuorumNumber{0},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	t.Run("flipped payload byte", func(t *testing.T) {
		bad := append([]byte(nil), buf...)
		bad[HeaderLen] ^= 0xFF
		if _, err := DecodeRecord(bad); !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("expected ErrChecksumMismatch, got %v", err)
		}
	})

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte(nil), buf...)
		bad[0] = 0
		if _, err := DecodeRecord(bad); !errors.Is(err, ErrBadMagic) {
			t.Fatalf("expected ErrBadMagic, got %v", err)
		}
	})

	t.Run("truncated", func(t *testing.T) {
		if _, err := DecodeRecord(buf[:HeaderLen-1]); !errors.Is(err, ErrShortRecord) {
			t.Fatalf("expected ErrShortRecord, got %v", err)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := EncodeRecord(Record{Type: 99}); !errors.Is(err, ErrUnknownRecordType) {
			t.Fatalf("expected ErrUnknownRecordType, got %v", err)
		}
	})
}
