package account

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/mr-tron/base58"
)

var (
	ErrAccountNotFound = errors.New("account not found")
)

// Record is the persisted state of a single account. Addresses are stored in
// their base58 form.
type Record struct {
	Id uint64

	Address string
	Owner   string

	Lamports   uint64
	Data       []byte
	Executable bool

	// Slot is the bank slot of the transaction that last wrote the account.
	Slot uint64

	LastUpdatedAt time.Time
}

func (r *Record) GetAddress() (ed25519.PublicKey, error) {
	return base58.Decode(r.Address)
}

func (r *Record) GetOwner() (ed25519.PublicKey, error) {
	return base58.Decode(r.Owner)
}

// IsDeleted reports whether saving the record removes the account. The bank
// reclaims every account left with a zero balance.
func (r *Record) IsDeleted() bool {
	return r.Lamports == 0
}

func (r *Record) Clone() Record {
	var data []byte
	if len(r.Data) > 0 {
		data = make([]byte, len(r.Data))
		copy(data, r.Data)
	}

	return Record{
		Id:            r.Id,
		Address:       r.Address,
		Owner:         r.Owner,
		Lamports:      r.Lamports,
		Data:          data,
		Executable:    r.Executable,
		Slot:          r.Slot,
		LastUpdatedAt: r.LastUpdatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	cloned := r.Clone()
	*dst = cloned
}

func (r *Record) Validate() error {
	if len(r.Address) == 0 {
		return errors.New("address is required")
	}

	if len(r.Owner) == 0 && !r.IsDeleted() {
		return errors.New("owner is required")
	}

	for _, key := range []string{r.Address, r.Owner} {
		if len(key) == 0 {
			continue
		}

		decoded, err := base58.Decode(key)
		if err != nil || len(decoded) != ed25519.PublicKeySize {
			return errors.New("invalid account key")
		}
	}

	return nil
}
