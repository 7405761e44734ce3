// Package accounts turns credential material into ordered signing accounts.
// Mnemonic phrases are expanded with BIP-39 and walked along a BIP-44 path;
// raw private keys are parsed one account per key. Derivation never touches
// the network and is fully deterministic.
package accounts
