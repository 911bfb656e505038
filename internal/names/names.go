// Package names holds the name-ownership registry's character rule and name ids.
// The registrar checks names with the same function the registry uses, so a
// name rejected here is never sent to the registry.
package names

import (
	"github.com/GoPolymarket/namegate/internal/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Validate accepts non-empty names made of a-z and 0-9.
func Validate(name string) error {
	if name == "" {
		return ledger.ErrInvalidCharacters.Withf("empty name")
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			continue
		}
		return ledger.ErrInvalidCharacters.Withf("%q", name)
	}
	return nil
}

// ID is keccak256 of the UTF-8 name, the registry's token id for it.
func ID(name string) common.Hash {
	return crypto.Keccak256Hash([]byte(name))
}
