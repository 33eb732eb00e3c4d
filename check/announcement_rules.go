package check

import (
	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/yuvprotocol/node/announcement"
	"github.com/yuvprotocol/node/yuvtx"
)

const (
	minNameLen   = 3
	maxNameLen   = 32
	minSymbolLen = 3
	maxSymbolLen = 16
	maxDecimals  = 18
)

// checkChromaMetadata applies the Chroma-metadata rules: name and symbol
// length bounds, decimals bound, and rejection of duplicate registration.
func checkChromaMetadata(a announcement.Announcement, deps Dependencies) (*Result, *Error) {
	if len(a.Name) < minNameLen || len(a.Name) > maxNameLen {
		return nil, newError(Structural, ReasonInvalidMetadata, "name length %d outside [%d,%d]", len(a.Name), minNameLen, maxNameLen)
	}
	if len(a.Symbol) < minSymbolLen || len(a.Symbol) > maxSymbolLen {
		return nil, newError(Structural, ReasonInvalidMetadata, "symbol length %d outside [%d,%d]", len(a.Symbol), minSymbolLen, maxSymbolLen)
	}
	if a.Decimals > maxDecimals {
		return nil, newError(Structural, ReasonInvalidMetadata, "decimals %d exceeds %d", a.Decimals, maxDecimals)
	}
	if _, exists := deps.Chroma.ChromaMetadata(a.Chroma); exists {
		return nil, newError(Authorization, ReasonDuplicateRegistration, "chroma %s is already registered", a.Chroma)
	}

	return &Result{ChromaRegistration: &ChromaRegistration{
		Chroma:      a.Chroma,
		Name:        a.Name,
		Symbol:      a.Symbol,
		Decimals:    a.Decimals,
		MaxSupply:   a.MaxSupply,
		IsFreezable: a.IsFreezable,
	}}, nil
}

// checkFreeze applies the Freeze rules: the signing Bitcoin input must
// resolve to the targeted chroma's issuer key, and the chroma's metadata
// must mark it freezable. A chroma with no recorded metadata is
// freezable by default, authorized by its own x-only key.
func checkFreeze(sdkTx *transaction.Transaction, a announcement.Announcement, deps Dependencies) (*Result, *Error) {
	info, ok := deps.Chroma.ChromaMetadata(a.Chroma)
	if ok && !info.IsFreezable {
		return nil, newError(Authorization, ReasonNotFreezable, "chroma %s is not freezable", a.Chroma)
	}
	if !authorizedAsIssuer(sdkTx, a.Chroma, info.IssuerKey) {
		return nil, newError(Authorization, ReasonFreezeUnauthorized, "no input signed by chroma %s issuer key", a.Chroma)
	}

	target := yuvtx.Outpoint{TxID: a.TargetTxID, Vout: a.TargetVout}
	if deps.Frozen.IsFrozen(target) {
		return nil, newError(Authorization, ReasonFrozen, "outpoint %x:%d is already frozen", target.TxID, target.Vout)
	}

	return &Result{FreezeTarget: &target}, nil
}

// checkTransferOwnership applies the Transfer-ownership rule: the current
// issuer key, not the proposed new key, must have signed the transaction.
// A chroma with no recorded metadata is owned by itself.
func checkTransferOwnership(sdkTx *transaction.Transaction, a announcement.Announcement, deps Dependencies) (*Result, *Error) {
	info, _ := deps.Chroma.ChromaMetadata(a.Chroma)
	if !authorizedAsIssuer(sdkTx, a.Chroma, info.IssuerKey) {
		return nil, newError(Authorization, ReasonOwnershipUnauthorized, "no input signed by chroma %s's current issuer key", a.Chroma)
	}

	return &Result{OwnershipTransfer: &OwnershipTransfer{Chroma: a.Chroma, NewIssuerKey: a.NewIssuerPubKey}}, nil
}
