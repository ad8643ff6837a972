// Package wire implements the framing used by gc_save/gc_load (spec §6):
// a four-byte magic word, a four-byte big-endian length, then a sequence of
// object records (one-byte type tag, four-byte size, payload), with
// internal references encoded as four-byte offsets into the same buffer.
package wire

import (
	"encoding/binary"
	"fmt"
)

// Magic is the four-byte word that opens every saved buffer, in network
// (big-endian) byte order.
const Magic uint32 = 0x871F54AB

// ErrBadMagic is returned by Split when buf does not start with Magic.
var ErrBadMagic = fmt.Errorf("wire: bad magic word, want %#x", Magic)

// Frame wraps payload with the magic word and a big-endian length prefix.
func Frame(payload []byte) []byte {
	out := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint32(out[0:4], Magic)
	binary.BigEndian.PutUint32(out[4:8], uint32(len(payload)))
	copy(out[8:], payload)
	return out
}

// Split validates the magic word and length prefix and returns the payload
// slice (a sub-slice of buf, not a copy).
func Split(buf []byte) ([]byte, error) {
	if len(buf) < 8 {
		return nil, fmt.Errorf("wire: buffer too short (%d bytes)", len(buf))
	}
	if got := binary.BigEndian.Uint32(buf[0:4]); got != Magic {
		return nil, ErrBadMagic
	}
	n := binary.BigEndian.Uint32(buf[4:8])
	if uint32(len(buf)-8) < n {
		return nil, fmt.Errorf("wire: truncated payload, want %d got %d", n, len(buf)-8)
	}
	return buf[8 : 8+n], nil
}

// Record is one serialized object: its type tag, and its raw payload bytes
// (with internal references still encoded as 4-byte offsets, not yet
// resolved to in-process addresses).
type Record struct {
	Tag     byte
	Payload []byte
}

// RecordHeaderSize is the byte length of a record's tag+size prefix.
const RecordHeaderSize = 1 + 4

// AppendRecord appends one record (tag, 4-byte BE size, payload) to buf and
// returns the new slice along with the record's starting offset.
func AppendRecord(buf []byte, tag byte, payload []byte) (out []byte, offset int) {
	offset = len(buf)
	rec := make([]byte, RecordHeaderSize+len(payload))
	rec[0] = tag
	binary.BigEndian.PutUint32(rec[1:5], uint32(len(payload)))
	copy(rec[5:], payload)
	return append(buf, rec...), offset
}

// ReadRecord reads one record at offset, returning it and the offset of the
// next record.
func ReadRecord(buf []byte, offset int) (Record, int, error) {
	if offset+RecordHeaderSize > len(buf) {
		return Record{}, 0, fmt.Errorf("wire: truncated record header at %d", offset)
	}
	tag := buf[offset]
	size := binary.BigEndian.Uint32(buf[offset+1 : offset+5])
	start := offset + RecordHeaderSize
	end := start + int(size)
	if end > len(buf) {
		return Record{}, 0, fmt.Errorf("wire: truncated record payload at %d", offset)
	}
	return Record{Tag: tag, Payload: buf[start:end]}, end, nil
}

// PutOffset and GetOffset encode/decode a 4-byte BE internal reference.
func PutOffset(b []byte, off int)  { binary.BigEndian.PutUint32(b, uint32(off)) }
func GetOffset(b []byte) int       { return int(binary.BigEndian.Uint32(b)) }
