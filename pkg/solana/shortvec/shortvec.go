// Package shortvec implements the compact-u16 length prefix used by the
// Solana wire format.
package shortvec

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

const maxEncodedBytes = 3

var ErrInvalidEncoding = errors.New("invalid shortvec encoding")

// EncodeLen writes l as a compact-u16 into w.
//
// If l > math.MaxUint16, an error is returned.
func EncodeLen(w io.Writer, l int) (n int, err error) {
	if l < 0 || l > math.MaxUint16 {
		return 0, errors.Errorf("len %d outside of [0, %d]", l, math.MaxUint16)
	}

	var encoded [maxEncodedBytes]byte
	size := 0
	for {
		encoded[size] = byte(l & 0x7f)
		l >>= 7
		if l == 0 {
			size++
			break
		}

		encoded[size] |= 0x80
		size++
	}

	return w.Write(encoded[:size])
}

// DecodeLen reads a compact-u16 from r.
func DecodeLen(r io.Reader) (int, error) {
	var val int
	var b [1]byte

	for i := 0; i < maxEncodedBytes; i++ {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}

		val |= int(b[0]&0x7f) << (i * 7)
		if b[0]&0x80 == 0 {
			if val > math.MaxUint16 {
				return 0, ErrInvalidEncoding
			}
			return val, nil
		}
	}

	return 0, errors.Wrapf(ErrInvalidEncoding, "more than %d bytes", maxEncodedBytes)
}
