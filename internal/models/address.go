package models

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress rejects inputs that are not hex account addresses.
var ErrInvalidAddress = errors.New("invalid wallet address")

// CanonicalAddress lowercases a wallet address so the store, cache and ledger
// all key on the same textual form. Callers are not trusted to pre-normalize.
func CanonicalAddress(address string) (string, error) {
	trimmed := strings.TrimSpace(address)
	if !common.IsHexAddress(trimmed) {
		return "", ErrInvalidAddress
	}
	return strings.ToLower(trimmed), nil
}
