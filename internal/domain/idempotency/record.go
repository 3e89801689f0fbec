package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidKey rejects idempotency tokens that do not parse as UUIDs.
var ErrInvalidKey = errors.New("idempotency key must be a valid UUID")

// Record maps a client-supplied idempotency key to the transaction it
// produced. Created exactly once per key, never updated or deleted.
type Record struct {
	Key           uuid.UUID `json:"key"`
	TransactionID uuid.UUID `json:"transaction_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// Repository defines idempotency key persistence. Register is create-only:
// the caller always looks up first, so a duplicate registration is a bug
// and fails loudly instead of overwriting.
type Repository interface {
	Lookup(ctx context.Context, key uuid.UUID) (*Record, error)
	Register(ctx context.Context, key, transactionID uuid.UUID) error
}

// ParseKey validates a client-supplied token.
func ParseKey(raw string) (uuid.UUID, error) {
	key, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrInvalidKey
	}
	return key, nil
}

// ErrKeyNotFound indicates the key has not been used yet
type ErrKeyNotFound struct {
	Key uuid.UUID
}

func (e ErrKeyNotFound) Error() string {
	return "idempotency key not found: " + e.Key.String()
}

// Is matches any ErrKeyNotFound when the target carries a nil key
func (e ErrKeyNotFound) Is(target error) bool {
	t, ok := target.(ErrKeyNotFound)
	if !ok {
		return false
	}
	if t.Key == uuid.Nil {
		return true
	}
	return e.Key == t.Key
}

// ErrKeyAlreadyRegistered indicates a create-only violation
type ErrKeyAlreadyRegistered struct {
	Key uuid.UUID
}

func (e ErrKeyAlreadyRegistered) Error() string {
	return "idempotency key already registered: " + e.Key.String()
}

// Is matches any ErrKeyAlreadyRegistered when the target carries a nil key
func (e ErrKeyAlreadyRegistered) Is(target error) bool {
	t, ok := target.(ErrKeyAlreadyRegistered)
	if !ok {
		return false
	}
	if t.Key == uuid.Nil {
		return true
	}
	return e.Key == t.Key
}
