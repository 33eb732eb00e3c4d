package chainclient

import (
	"context"

	"github.com/yuvprotocol/node/confirm"
)

// TrackerAdapter implements confirm.ChainClient against a Client, filtering
// each block's transactions down to the set the confirmation tracker
// actually cares about: those the mempool currently holds in WaitingMined
// or Mined. Full blocks can carry thousands of ordinary Bitcoin
// transactions the tracker has no reason to see.
type TrackerAdapter struct {
	client    *Client
	ctx       context.Context
	isTracked func(txid [32]byte) bool
}

// NewTrackerAdapter builds a TrackerAdapter. isTracked reports whether a
// txid is currently tracked by the mempool; ctx bounds every RPC call the
// adapter makes on the tracker's behalf.
func NewTrackerAdapter(ctx context.Context, client *Client, isTracked func([32]byte) bool) *TrackerAdapter {
	return &TrackerAdapter{client: client, ctx: ctx, isTracked: isTracked}
}

// BlockByHash resolves a block by hash for the tracker's reorg walk-back.
func (a *TrackerAdapter) BlockByHash(hash [32]byte) (*confirm.BlockInfo, error) {
	b, err := a.client.GetBlock(a.ctx, hash)
	if err != nil {
		return nil, err
	}
	return toBlockInfo(b, a.isTracked), nil
}

func toBlockInfo(b *Block, isTracked func([32]byte) bool) *confirm.BlockInfo {
	info := &confirm.BlockInfo{Hash: b.Hash, PrevHash: b.PrevHash, Height: b.Height}
	for _, txid := range b.TxIDs {
		if isTracked == nil || isTracked(txid) {
			info.TxIDs = append(info.TxIDs, txid)
		}
	}
	return info
}
