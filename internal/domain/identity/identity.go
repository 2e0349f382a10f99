package identity

import (
	"errors"

	"github.com/google/uuid"
)

// ErrUnauthorized indicates a request without a resolvable identity. Token
// debits must be attributable to a durable account, so anonymous callers are
// rejected before any write.
var ErrUnauthorized = errors.New("request has no authenticated identity")

// Identity is the resolved caller of a request. BalanceHint is whatever the
// identity provider last knew about the balance; it is advisory only and the
// ledger always re-reads the authoritative balance from the record store.
type Identity struct {
	AccountID   uuid.UUID
	DisplayName string
	BalanceHint int64
}

// IsAnonymous reports whether the identity resolves to no durable account
func (i Identity) IsAnonymous() bool {
	return i.AccountID == uuid.Nil
}
