package ledger

import (
	"encoding/binary"
	"fmt"
)

// Storage key prefixes.
const (
	prefixVault        = "vlt:" // vlt:<vault id> -> Vault
	prefixWhitelist    = "wl:"  // wl:<vault id> -> Whitelist
	prefixRequest      = "wdr:" // wdr:<request id> -> WithdrawalRequest
	prefixRequestIndex = "wdx:" // wdx:<vault id><epoch be><request id> -> empty
	prefixEvent        = "evt:" // evt:<vault id><seq be> -> Event (JSON)
)

func vaultKey(id Hash) []byte {
	return append([]byte(prefixVault), id[:]...)
}

func whitelistKey(id Hash) []byte {
	return append([]byte(prefixWhitelist), id[:]...)
}

func requestKey(id Hash) []byte {
	return append([]byte(prefixRequest), id[:]...)
}

func requestIndexKey(vaultID Hash, epoch uint64, reqID Hash) []byte {
	key := make([]byte, 0, len(prefixRequestIndex)+32+8+32)
	key = append(key, prefixRequestIndex...)
	key = append(key, vaultID[:]...)
	key = binary.BigEndian.AppendUint64(key, epoch)

	return append(key, reqID[:]...)
}

// loadVault reads a vault record.
func (l *Ledger) loadVault(id Hash) (*Vault, error) {
	data, err := l.db.Get(vaultKey(id))
	if err != nil {
		return nil, fmt.Errorf("read vault %s:\n%w", id, err)
	}

	if data == nil {
		return nil, ErrVaultNotFound
	}

	return decodeVault(data)
}

// loadWhitelist reads a whitelist record.
func (l *Ledger) loadWhitelist(id Hash) (*Whitelist, error) {
	data, err := l.db.Get(whitelistKey(id))
	if err != nil {
		return nil, fmt.Errorf("read whitelist %s:\n%w", id, err)
	}

	if data == nil {
		return nil, ErrVaultNotFound
	}

	return decodeWhitelist(data)
}

// loadRequest reads a withdrawal request, nil when absent.
func (l *Ledger) loadRequest(id Hash) (*WithdrawalRequest, error) {
	data, err := l.db.Get(requestKey(id))
	if err != nil {
		return nil, fmt.Errorf("read withdrawal request %s:\n%w", id, err)
	}

	if data == nil {
		return nil, nil
	}

	return decodeRequest(data)
}

// vaultExists reports whether a vault record is stored.
func (l *Ledger) vaultExists(id Hash) (bool, error) {
	return l.db.Has(vaultKey(id))
}
