// Package query holds the paging options shared by list style reads.
package query

import (
	"encoding/binary"
	"errors"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

var (
	ErrInvalidOption = errors.New("invalid query option")
)

// Ordering of a returned page, by insertion order.
type Ordering uint8

const (
	Ascending Ordering = iota
	Descending
)

func (o Ordering) String() string {
	switch o {
	case Ascending:
		return "asc"
	case Descending:
		return "desc"
	default:
		return "unknown"
	}
}

// Cursor is an opaque position within a paged result. An empty cursor starts
// from the beginning.
type Cursor []byte

var EmptyCursor = Cursor{}

func ToCursor(id uint64) Cursor {
	c := make(Cursor, 8)
	binary.BigEndian.PutUint64(c, id)
	return c
}

func (c Cursor) ToUint64() uint64 {
	if len(c) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(c)
}

// Request is a resolved set of paging options.
type Request struct {
	Limit     uint64
	Direction Ordering
	Cursor    Cursor
}

type Option func(*Request) error

// WithLimit caps the page size. It must be between 1 and MaxLimit.
func WithLimit(limit uint64) Option {
	return func(r *Request) error {
		if limit == 0 || limit > MaxLimit {
			return ErrInvalidOption
		}
		r.Limit = limit
		return nil
	}
}

func WithDirection(direction Ordering) Option {
	return func(r *Request) error {
		if direction != Ascending && direction != Descending {
			return ErrInvalidOption
		}
		r.Direction = direction
		return nil
	}
}

// WithCursor continues a previous query after the record the cursor was
// issued for.
func WithCursor(cursor []byte) Option {
	return func(r *Request) error {
		if len(cursor) != 0 && len(cursor) != 8 {
			return ErrInvalidOption
		}
		r.Cursor = cursor
		return nil
	}
}

// NewRequest applies opts over an ascending request of DefaultLimit records.
func NewRequest(opts ...Option) (*Request, error) {
	r := &Request{
		Limit:     DefaultLimit,
		Direction: Ascending,
		Cursor:    EmptyCursor,
	}
	for _, o := range opts {
		if err := o(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}
