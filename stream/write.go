package stream

import (
	"bytes"
	"encoding/binary"
	"math"
	"unicode/utf16"

	"github.com/mirozey/animvault/utils"
)

// WriteStream builds an in-memory little-endian byte block.
// Writes never fail; call Bytes when done.
type WriteStream struct {
	buf bytes.Buffer
}

func NewWriteStream() *WriteStream {
	return &WriteStream{}
}

func (s *WriteStream) Bytes() []byte { return s.buf.Bytes() }

func (s *WriteStream) Position() int { return s.buf.Len() }

func (s *WriteStream) WriteBytes(b []byte) {
	s.buf.Write(b)
}

func (s *WriteStream) WriteUint8(b byte) {
	s.buf.WriteByte(b)
}

func (s *WriteStream) WriteBool(v bool) {
	if v {
		s.buf.WriteByte(1)
	} else {
		s.buf.WriteByte(0)
	}
}

func (s *WriteStream) WriteInt32(v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	s.buf.Write(b[:])
}

func (s *WriteStream) WriteUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	s.buf.Write(b[:])
}

func (s *WriteStream) WriteFloat32(v float32) {
	s.WriteUint32(math.Float32bits(v))
}

func (s *WriteStream) WriteFloat64(v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	s.buf.Write(b[:])
}

// WriteString writes an int32 code-unit count followed by UTF-16 units
// XORed with lock.
func (s *WriteStream) WriteString(v string, lock int16) {
	units := utf16.Encode([]rune(v))
	s.WriteInt32(int32(len(units)))
	var b [2]byte
	for _, u := range units {
		binary.LittleEndian.PutUint16(b[:], u^uint16(lock))
		s.buf.Write(b[:])
	}
}

// WriteStringANSI writes an int32 byte count followed by single-byte
// characters XORed with lock.
func (s *WriteStream) WriteStringANSI(v string, lock byte) {
	bs := utils.EncodeANSI(v)
	s.WriteInt32(int32(len(bs)))
	for _, b := range bs {
		s.buf.WriteByte(b ^ lock)
	}
}

// WriteBlob writes an int32 length followed by the raw bytes.
func (s *WriteStream) WriteBlob(b []byte) {
	s.WriteInt32(int32(len(b)))
	s.buf.Write(b)
}
