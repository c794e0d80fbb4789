// Package transfer defines the value-transfer collaborator the ledger drives
// and a pebble-backed reference implementation.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"EpochVault/internal/storage"
)

// Capability is an opaque token presented when moving custodial funds.
type Capability [32]byte

// Account identifies one balance: an owner's holding of one asset.
type Account struct {
	Owner string `json:"owner"` // Owner is the holder identity
	Asset string `json:"asset"` // Asset is the asset identifier
}

// String returns "owner/asset".
func (a Account) String() string {
	return a.Owner + "/" + a.Asset
}

// validate rejects accounts that cannot be encoded as storage keys.
func (a Account) validate() error {
	if a.Owner == "" || a.Asset == "" {
		return fmt.Errorf("%w: empty account field in %q", ErrInvalidOp, a.String())
	}

	if strings.ContainsRune(a.Owner, 0) || strings.ContainsRune(a.Asset, 0) {
		return fmt.Errorf("%w: NUL byte in %q", ErrInvalidOp, a.String())
	}

	return nil
}

// Signer authorizes an operation. Capability is only checked for
// identities whose accounts are held in custody.
type Signer struct {
	Identity   string
	Capability Capability
}

// OpKind selects what an Op does.
type OpKind uint8

const (
	// OpTransfer moves Amount from From to To.
	OpTransfer OpKind = iota + 1
	// OpMint creates Amount in To.
	OpMint
	// OpBurn destroys Amount from From.
	OpBurn
)

// String returns the operation name.
func (k OpKind) String() string {
	switch k {
	case OpTransfer:
		return "transfer"
	case OpMint:
		return "mint"
	case OpBurn:
		return "burn"
	default:
		return fmt.Sprintf("op(%d)", uint8(k))
	}
}

// Op is one balance mutation.
type Op struct {
	Kind   OpKind
	From   Account
	To     Account
	Amount uint64
	Signer Signer
}

// Transfer builds a transfer signed by signer.
func Transfer(signer Signer, from, to Account, amount uint64) Op {
	return Op{Kind: OpTransfer, From: from, To: to, Amount: amount, Signer: signer}
}

// Mint builds a mint into to, signed by the asset's mint authority.
func Mint(authority Signer, to Account, amount uint64) Op {
	return Op{Kind: OpMint, To: to, Amount: amount, Signer: authority}
}

// Burn builds a burn from from, signed by its owner.
func Burn(authority Signer, from Account, amount uint64) Op {
	return Op{Kind: OpBurn, From: from, Amount: amount, Signer: authority}
}

// Collaborator moves balances and verifies authorization.
// Apply executes every op or none of them.
type Collaborator interface {
	Apply(ctx context.Context, ops ...Op) error
	Balance(ctx context.Context, acct Account) (uint64, error)
}

// Stager is a Collaborator that can write its balances into a caller's
// storage batch, so both commit together. The collaborator stays locked
// until release is called.
type Stager interface {
	Stage(ctx context.Context, batch *storage.Batch, ops ...Op) (release func(), err error)
}

// Custodian tells the collaborator which owners are held in custody and how
// to authenticate operations on their behalf.
type Custodian interface {
	// Manages reports whether owner's funds move only with a capability.
	Manages(owner string) bool
	// VerifyCapability reports whether capability authorizes owner.
	VerifyCapability(owner string, capability Capability) bool
	// MintAuthority returns the identity allowed to mint and burn asset.
	MintAuthority(asset string) (string, bool)
}

var (
	// ErrInsufficientFunds is returned when a debit exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUnauthorized is returned when the signer may not perform an op.
	ErrUnauthorized = errors.New("unauthorized signer")

	// ErrOverflow is returned when a credit would wrap a balance or supply.
	ErrOverflow = errors.New("balance overflow")

	// ErrInvalidOp is returned for malformed operations.
	ErrInvalidOp = errors.New("invalid operation")

	// ErrForeignBatch is returned by Stage for a batch of another store.
	ErrForeignBatch = errors.New("batch belongs to another store")
)
