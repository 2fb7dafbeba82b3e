package stream

import (
	"encoding/binary"
	"math"
	"unicode/utf16"

	"github.com/pkg/errors"

	"github.com/mirozey/animvault/utils"
)

// ReadStream is a cursor over an in-memory little-endian byte block.
type ReadStream struct {
	buf []byte
	pos int
}

func NewReadStream(b []byte) *ReadStream {
	return &ReadStream{buf: b}
}

func (s *ReadStream) Position() int { return s.pos }

func (s *ReadStream) Length() int { return len(s.buf) }

func (s *ReadStream) Remaining() int { return len(s.buf) - s.pos }

func (s *ReadStream) take(n int) ([]byte, error) {
	if n < 0 || s.pos+n > len(s.buf) {
		return nil, errors.Errorf("Unexpected end of stream (pos %d, want %d, len %d)", s.pos, n, len(s.buf))
	}
	b := s.buf[s.pos : s.pos+n]
	s.pos += n
	return b, nil
}

func (s *ReadStream) ReadBytes(n int) ([]byte, error) {
	b, err := s.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

func (s *ReadStream) ReadUint8() (byte, error) {
	b, err := s.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (s *ReadStream) ReadBool() (bool, error) {
	b, err := s.ReadUint8()
	return b != 0, err
}

func (s *ReadStream) ReadInt32() (int32, error) {
	b, err := s.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

func (s *ReadStream) ReadUint32() (uint32, error) {
	b, err := s.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (s *ReadStream) ReadFloat32() (float32, error) {
	v, err := s.ReadUint32()
	return math.Float32frombits(v), err
}

func (s *ReadStream) ReadFloat64() (float64, error) {
	b, err := s.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// PeekInt32 reads the next int32 without advancing the cursor.
func (s *ReadStream) PeekInt32() (int32, error) {
	if s.pos+4 > len(s.buf) {
		return 0, errors.Errorf("Unexpected end of stream (pos %d, len %d)", s.pos, len(s.buf))
	}
	return int32(binary.LittleEndian.Uint32(s.buf[s.pos:])), nil
}

// ReadString reads an int32 code-unit count followed by UTF-16 units
// XORed with lock.
func (s *ReadStream) ReadString(lock int16) (string, error) {
	count, err := s.ReadInt32()
	if err != nil {
		return "", err
	}
	if count < 0 || int(count)*2 > s.Remaining() {
		return "", errors.Errorf("Invalid string length %d", count)
	}
	raw, _ := s.take(int(count) * 2)
	units := make([]uint16, count)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(raw[i*2:]) ^ uint16(lock)
	}
	return string(utf16.Decode(units)), nil
}

// ReadStringANSI reads an int32 byte count followed by single-byte
// characters XORed with lock.
func (s *ReadStream) ReadStringANSI(lock byte) (string, error) {
	count, err := s.ReadInt32()
	if err != nil {
		return "", err
	}
	if count < 0 || int(count) > s.Remaining() {
		return "", errors.Errorf("Invalid ansi string length %d", count)
	}
	raw, _ := s.take(int(count))
	bs := make([]byte, count)
	for i, b := range raw {
		bs[i] = b ^ lock
	}
	return utils.DecodeANSI(bs), nil
}

// ReadBlob reads an int32 length followed by that many raw bytes.
// A zero length yields nil.
func (s *ReadStream) ReadBlob() ([]byte, error) {
	count, err := s.ReadInt32()
	if err != nil {
		return nil, err
	}
	if count < 0 || int(count) > s.Remaining() {
		return nil, errors.Errorf("Invalid blob length %d", count)
	}
	if count == 0 {
		return nil, nil
	}
	return s.ReadBytes(int(count))
}
