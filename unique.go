package csvpave

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/zeebo/xxh3"
)

var (
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrColumnOutOfRange = errors.New("column index out of range")
)

// Unique wraps inner and rejects any row whose key columns repeat the key of
// an earlier row in the same parse. With no columns the whole row is the key.
//
// Each key part is length-prefixed, so no two distinct key tuples share a
// key. Keys are bucketed by their XXH3 digest and compared in full, so
// digest collisions never cause false rejections.
func Unique[T any](inner RowValidator[T], columns ...int) RowValidator[T] {
	return &uniqueValidator[T]{inner: inner, columns: columns}
}

type uniqueValidator[T any] struct {
	inner   RowValidator[T]
	columns []int

	// seen maps key digests to the keys and their row numbers. Only set on
	// validators returned by BindHeader.
	seen map[uint64][]seenKey
	rows int
}

type seenKey struct {
	key string
	row int
}

func (u *uniqueValidator[T]) BindHeader(header []string) (RowValidator[T], error) {
	inner, err := bindValidator(u.inner, header)
	if err != nil {
		return nil, err
	}
	return &uniqueValidator[T]{
		inner:   inner,
		columns: u.columns,
		seen:    make(map[uint64][]seenKey),
	}, nil
}

func (u *uniqueValidator[T]) ValidateRow(fields []string) (T, error) {
	var zero T

	if u.seen == nil {
		// Used without a projector; keep state on this instance.
		u.seen = make(map[uint64][]seenKey)
	}
	u.rows++

	key, err := u.keyOf(fields)
	if err != nil {
		return zero, err
	}

	digest := xxh3.HashString(key)
	for _, prev := range u.seen[digest] {
		if prev.key == key {
			return zero, fmt.Errorf("%w: data row %d repeats data row %d", ErrDuplicateKey, u.rows, prev.row)
		}
	}

	value, err := u.inner.ValidateRow(fields)
	if err != nil {
		return zero, err
	}

	u.seen[digest] = append(u.seen[digest], seenKey{key: key, row: u.rows})
	return value, nil
}

// keyOf encodes the key columns of fields as "<len>:<field>" parts.
func (u *uniqueValidator[T]) keyOf(fields []string) (string, error) {
	var key []byte

	if len(u.columns) == 0 {
		for _, field := range fields {
			key = appendKeyPart(key, field)
		}
		return string(key), nil
	}

	for _, col := range u.columns {
		if col < 0 || col >= len(fields) {
			return "", fmt.Errorf("%w: key column %d, row has %d fields", ErrColumnOutOfRange, col, len(fields))
		}
		key = appendKeyPart(key, fields[col])
	}
	return string(key), nil
}

func appendKeyPart(key []byte, part string) []byte {
	key = strconv.AppendInt(key, int64(len(part)), 10)
	key = append(key, ':')
	return append(key, part...)
}
