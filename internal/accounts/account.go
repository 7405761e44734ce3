package accounts

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Account is a single signing identity. The private key is only reachable
// through PrivateKey so that formatting an Account never prints it.
type Account struct {
	Index   int
	Path    string // empty for accounts built from raw keys
	Address common.Address

	key *ecdsa.PrivateKey
}

func newAccount(index int, path string, key *ecdsa.PrivateKey) Account {
	return Account{
		Index:   index,
		Path:    path,
		Address: crypto.PubkeyToAddress(key.PublicKey),
		key:     key,
	}
}

// PrivateKey returns the signing key for handing to a transaction signer.
func (a Account) PrivateKey() *ecdsa.PrivateKey {
	return a.key
}

// String implements fmt.Stringer without exposing key material.
func (a Account) String() string {
	if a.Path == "" {
		return fmt.Sprintf("account[%d] %s", a.Index, a.Address.Hex())
	}
	return fmt.Sprintf("account[%d] %s (%s)", a.Index, a.Address.Hex(), a.Path)
}

// GoString keeps %#v from dumping the embedded key.
func (a Account) GoString() string {
	return fmt.Sprintf("accounts.Account{Index:%d, Path:%q, Address:%s}", a.Index, a.Path, a.Address.Hex())
}

// Addresses projects a slice of accounts onto their addresses.
func Addresses(list []Account) []common.Address {
	out := make([]common.Address, len(list))
	for i, acc := range list {
		out[i] = acc.Address
	}
	return out
}
