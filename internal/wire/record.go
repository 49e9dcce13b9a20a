package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/Olexandr88/indexreg/internal/registry"
)

const (
	Magic   uint32 = 0x49585247 // "IXRG"
	Version uint16 = 1

	// HeaderLen is magic + version + record type + sequence + payload length.
	HeaderLen = 4 + 2 + 2 + 8 + 4
	// TrailerLen is the CRC32 over header and payload.
	TrailerLen = 4

	MaxPayloadBytes uint32 = 1 << 20
)

// Record type IDs.
const (
	RecordRegister   uint16 = 1
	RecordDeregister uint16 = 2
)

// Payload field IDs.
const (
	fieldBlock       uint16 = 1
	fieldOperator    uint16 = 2
	fieldQuorums     uint16 = 3
	fieldComplete    uint16 = 4
	fieldSwaps       uint16 = 5
	fieldGlobalIndex uint16 = 6
)

var (
	ErrBadMagic          = errors.New("wire: bad record magic")
	ErrVersionMismatch   = errors.New("wire: unsupported record version")
	ErrShortRecord       = errors.New("wire: short record")
	ErrPayloadTooLarge   = errors.New("wire: payload too large")
	ErrChecksumMismatch  = errors.New("wire: record checksum mismatch")
	ErrUnknownRecordType = errors.New("wire: unknown record type")
)

// Record is one journaled registry mutation.
type Record struct {
	Seq           uint64
	Type          uint16
	Block         registry.BlockNumber
	Operator      registry.OperatorID
	Quorums       []registry.QuorumNumber
	Complete      bool
	SwapOperators []registry.OperatorID
	GlobalIndex   uint32
}

// EncodeRecord renders the record as header, TLV payload, CRC32 trailer.
func EncodeRecord(rec Record) ([]byte, error) {
	fields := []Field{
		U64Field(fieldBlock, uint64(rec.Block)),
		BytesField(fieldOperator, rec.Operator[:]),
		BytesField(fieldQuorums, encodeQuorums(rec.Quorums)),
	}
	switch rec.Type {
	case RecordRegister:
	case RecordDeregister:
		fields = append(fields,
			BoolField(fieldComplete, rec.Complete),
			BytesField(fieldSwaps, encodeOperators(rec.SwapOperators)),
			U32Field(fieldGlobalIndex, rec.GlobalIndex),
		)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownRecordType, rec.Type)
	}
	payload := EncodeFields(fields)
	if uint32(len(payload)) > MaxPayloadBytes {
		return nil, ErrPayloadTooLarge
	}

	buf := make([]byte, HeaderLen+len(payload)+TrailerLen)
	binary.BigEndian.PutUint32(buf[0:4], Magic)
	binary.BigEndian.PutUint16(buf[4:6], Version)
	binary.BigEndian.PutUint16(buf[6:8], rec.Type)
	binary.BigEndian.PutUint64(buf[8:16], rec.Seq)
	binary.BigEndian.PutUint32(buf[16:20], uint32(len(payload)))
	copy(buf[HeaderLen:], payload)
	sum := crc32.ChecksumIEEE(buf[:HeaderLen+len(payload)])
	binary.BigEndian.PutUint32(buf[HeaderLen+len(payload):], sum)
	return buf, nil
}

// DecodeRecord parses and checksum-verifies one encoded record.
func DecodeRecord(buf []byte) (Record, error) {
	if len(buf) < HeaderLen+TrailerLen {
		return Record{}, ErrShortRecord
	}
	if binary.BigEndian.Uint32(buf[0:4]) != Magic {
		return Record{}, ErrBadMagic
	}
	if v := binary.BigEndian.Uint16(buf[4:6]); v != Version {
		return Record{}, fmt.Errorf("%w: %d", ErrVersionMismatch, v)
	}
	recType := binary.BigEndian.Uint16(buf[6:8])
	seq := binary.BigEndian.Uint64(buf[8:16])
	payloadLen := binary.BigEndian.Uint32(buf[16:20])
	if payloadLen > MaxPayloadBytes {
		return Record{}, ErrPayloadTooLarge
	}
	if uint32(len(buf)) != HeaderLen+payloadLen+TrailerLen {
		return Record{}, ErrShortRecord
	}
	body := buf[:HeaderLen+payloadLen]
	want := binary.BigEndian.Uint32(buf[HeaderLen+payloadLen:])
	if crc32.ChecksumIEEE(body) != want {
		return Record{}, ErrChecksumMismatch
	}

	fields, err := DecodeFields(buf[HeaderLen : HeaderLen+payloadLen])
	if err != nil {
		return Record{}, err
	}

	rec := Record{Seq: seq, Type: recType}

	blockField, ok := GetField(fields, fieldBlock)
	if !ok {
		return Record{}, fmt.Errorf("%w: block", ErrMissingField)
	}
	block, err := U64FromBytes(blockField.Value)
	if err != nil {
		return Record{}, err
	}
	rec.Block = registry.BlockNumber(block)

	opField, ok := GetField(fields, fieldOperator)
	if !ok {
		return Record{}, fmt.Errorf("%w: operator", ErrMissingField)
	}
	rec.Operator, err = registry.OperatorIDFromBytes(opField.Value)
	if err != nil {
		return Record{}, err
	}

	quorumField, ok := GetField(fields, fieldQuorums)
	if !ok {
		return Record{}, fmt.Errorf("%w: quorums", ErrMissingField)
	}
	rec.Quorums = decodeQuorums(quorumField.Value)

	switch recType {
	case RecordRegister:
		return rec, nil
	case RecordDeregister:
		completeField, ok := GetField(fields, fieldComplete)
		if !ok {
			return Record{}, fmt.Errorf("%w: complete", ErrMissingField)
		}
		rec.Complete, err = BoolFromBytes(completeField.Value)
		if err != nil {
			return Record{}, err
		}
		swapsField, ok := GetField(fields, fieldSwaps)
		if !ok {
			return Record{}, fmt.Errorf("%w: swap operators", ErrMissingField)
		}
		rec.SwapOperators, err = decodeOperators(swapsField.Value)
		if err != nil {
			return Record{}, err
		}
		indexField, ok := GetField(fields, fieldGlobalIndex)
		if !ok {
			return Record{}, fmt.Errorf("%w: global index", ErrMissingField)
		}
		rec.GlobalIndex, err = U32FromBytes(indexField.Value)
		if err != nil {
			return Record{}, err
		}
		return rec, nil
	default:
		return Record{}, fmt.Errorf("%w: %d", ErrUnknownRecordType, recType)
	}
}

func encodeQuorums(quorums []registry.QuorumNumber) []byte {
	out := make([]byte, len(quorums))
	for i, q := range quorums {
		out[i] = byte(q)
	}
	return out
}

func decodeQuorums(raw []byte) []registry.QuorumNumber {
	out := make([]registry.QuorumNumber, len(raw))
	for i, b := range raw {
		out[i] = registry.QuorumNumber(b)
	}
	return out
}

func encodeOperators(ops []registry.OperatorID) []byte {
	out := make([]byte, 0, len(ops)*registry.OperatorIDLen)
	for _, op := range ops {
		out = append(out, op[:]...)
	}
	return out
}

func decodeOperators(raw []byte) ([]registry.OperatorID, error) {
	if len(raw)%registry.OperatorIDLen != 0 {
		return nil, fmt.Errorf("wire: swap operator bytes not a multiple of %d: %d", registry.OperatorIDLen, len(raw))
	}
	out := make([]registry.OperatorID, 0, len(raw)/registry.OperatorIDLen)
	for i := 0; i < len(raw); i += registry.OperatorIDLen {
		op, err := registry.OperatorIDFromBytes(raw[i : i+registry.OperatorIDLen])
		if err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	return out, nil
}
