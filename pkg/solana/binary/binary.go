// Package binary reads and writes the fixed little endian layouts of program
// accounts and instruction payloads.
//
// Neither Writer nor Reader check bounds. Callers size the buffer up front
// and validate the length of data before decoding it.
package binary

import (
	"crypto/ed25519"
	"encoding/binary"
)

// COption tags are four bytes, as in the SPL token layouts.
const OptionSize = 4

type Writer struct {
	buf    []byte
	offset int
}

// NewWriter returns a Writer over a zeroed buffer of size bytes.
func NewWriter(size int) *Writer {
	return &Writer{buf: make([]byte, size)}
}

func (w *Writer) Key(key ed25519.PublicKey) *Writer {
	copy(w.buf[w.offset:], key)
	w.offset += ed25519.PublicKeySize
	return w
}

// OptionalKey writes an OptionSize tag followed by key, leaving both zero when
// key is empty.
func (w *Writer) OptionalKey(key ed25519.PublicKey) *Writer {
	if len(key) > 0 {
		w.buf[w.offset] = 1
		copy(w.buf[w.offset+OptionSize:], key)
	}
	w.offset += OptionSize + ed25519.PublicKeySize
	return w
}

func (w *Writer) Uint64(v uint64) *Writer {
	binary.LittleEndian.PutUint64(w.buf[w.offset:], v)
	w.offset += 8
	return w
}

func (w *Writer) OptionalUint64(v *uint64) *Writer {
	if v != nil {
		w.buf[w.offset] = 1
		binary.LittleEndian.PutUint64(w.buf[w.offset+OptionSize:], *v)
	}
	w.offset += OptionSize + 8
	return w
}

func (w *Writer) Uint8(v uint8) *Writer {
	w.buf[w.offset] = v
	w.offset++
	return w
}

func (w *Writer) Bool(v bool) *Writer {
	if v {
		return w.Uint8(1)
	}
	return w.Uint8(0)
}

// Bytes returns the whole buffer, including any unwritten tail.
func (w *Writer) Bytes() []byte {
	return w.buf
}

type Reader struct {
	data   []byte
	offset int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Key returns a copy of the next 32 bytes.
func (r *Reader) Key() ed25519.PublicKey {
	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(key, r.data[r.offset:])
	r.offset += ed25519.PublicKeySize
	return key
}

// OptionalKey returns nil when the option tag is unset.
func (r *Reader) OptionalKey() ed25519.PublicKey {
	var key ed25519.PublicKey
	if r.data[r.offset] == 1 {
		key = make(ed25519.PublicKey, ed25519.PublicKeySize)
		copy(key, r.data[r.offset+OptionSize:])
	}
	r.offset += OptionSize + ed25519.PublicKeySize
	return key
}

func (r *Reader) Uint64() uint64 {
	v := binary.LittleEndian.Uint64(r.data[r.offset:])
	r.offset += 8
	return v
}

func (r *Reader) OptionalUint64() *uint64 {
	var v *uint64
	if r.data[r.offset] == 1 {
		val := binary.LittleEndian.Uint64(r.data[r.offset+OptionSize:])
		v = &val
	}
	r.offset += OptionSize + 8
	return v
}

func (r *Reader) Uint8() uint8 {
	v := r.data[r.offset]
	r.offset++
	return v
}

func (r *Reader) Bool() bool {
	return r.Uint8() != 0
}

// Offset is the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.offset
}
