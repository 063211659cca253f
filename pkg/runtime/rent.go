package runtime

import (
	"math"
	"math/bits"
)

// AccountStorageOverhead is the number of bytes charged for every account on
// top of its data.
const AccountStorageOverhead = 128

// Rent holds the parameters for the rent-exempt minimum balance.
type Rent struct {
	LamportsPerByteYear     uint64
	ExemptionThresholdYears uint64
}

// MinimumBalance returns the balance an account of size bytes needs to be
// exempt from rent. It saturates at math.MaxUint64.
func (r Rent) MinimumBalance(size uint64) uint64 {
	bytes, carry := bits.Add64(size, AccountStorageOverhead, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return saturatingMul(saturatingMul(bytes, r.LamportsPerByteYear), r.ExemptionThresholdYears)
}

func saturatingMul(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

// IsExempt reports whether balance covers the rent-exempt minimum for size.
func (r Rent) IsExempt(balance, size uint64) bool {
	return balance >= r.MinimumBalance(size)
}
