package chainclient

import (
	"context"
	"encoding/hex"
	"fmt"
)

// Block is the client's view of a Bitcoin block, as decoded from
// `getblock <hash> 1` (verbose level 1: headers plus the flat list of
// transaction ids it contains, not full transaction bodies).
type Block struct {
	Hash     [32]byte
	PrevHash [32]byte
	Height   uint64
	TxIDs    [][32]byte
}

type getBlockResult struct {
	Hash          string   `json:"hash"`
	PreviousHash  string   `json:"previousblockhash"`
	Height        uint64   `json:"height"`
	Tx            []string `json:"tx"`
	Confirmations int64    `json:"confirmations"`
}

func decodeTxidHex(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return out, fmt.Errorf("%w: invalid 32-byte hex %q", ErrInvalidResponse, s)
	}
	// Bitcoin RPC hex fields for hashes are big-endian display order;
	// internal representation here is little-endian.
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	copy(out[:], b)
	return out, nil
}

// GetBlock fetches a block by its internal-order 32-byte hash.
func (c *Client) GetBlock(ctx context.Context, hash [32]byte) (*Block, error) {
	hashHex := reverseHex(hash)
	params := []interface{}{hashHex, 1}
	var result getBlockResult
	if err := c.Call(ctx, "getblock", params, &result); err != nil {
		return nil, err
	}

	b := &Block{Height: result.Height}
	h, err := decodeTxidHex(result.Hash)
	if err != nil {
		return nil, err
	}
	b.Hash = h

	if result.PreviousHash != "" {
		p, err := decodeTxidHex(result.PreviousHash)
		if err != nil {
			return nil, err
		}
		b.PrevHash = p
	}

	b.TxIDs = make([][32]byte, len(result.Tx))
	for i, txHex := range result.Tx {
		txid, err := decodeTxidHex(txHex)
		if err != nil {
			return nil, err
		}
		b.TxIDs[i] = txid
	}
	return b, nil
}

// GetBlockHash returns the hash of the block at height.
func (c *Client) GetBlockHash(ctx context.Context, height uint64) ([32]byte, error) {
	params := []interface{}{height}
	var hashHex string
	if err := c.Call(ctx, "getblockhash", params, &hashHex); err != nil {
		var zero [32]byte
		return zero, err
	}
	return decodeTxidHex(hashHex)
}

// GetBestBlockHeight returns the height of the current chain tip.
func (c *Client) GetBestBlockHeight(ctx context.Context) (uint64, error) {
	var height uint64
	if err := c.Call(ctx, "getblockcount", nil, &height); err != nil {
		return 0, err
	}
	return height, nil
}

// BroadcastTx submits a raw transaction to the network and returns its
// txid. RPC-level rejection is wrapped with ErrBroadcastRejected.
func (c *Client) BroadcastTx(ctx context.Context, rawTx []byte) ([32]byte, error) {
	params := []interface{}{hex.EncodeToString(rawTx)}
	var txidHex string
	if err := c.Call(ctx, "sendrawtransaction", params, &txidHex); err != nil {
		var zero [32]byte
		return zero, fmt.Errorf("%w: %v", ErrBroadcastRejected, err)
	}
	return decodeTxidHex(txidHex)
}

// GetRawTx returns the raw transaction bytes for txid.
func (c *Client) GetRawTx(ctx context.Context, txid [32]byte) ([]byte, error) {
	params := []interface{}{reverseHex(txid), false}
	var rawHex string
	if err := c.Call(ctx, "getrawtransaction", params, &rawHex); err != nil {
		return nil, err
	}
	data, err := hex.DecodeString(rawHex)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid tx hex: %v", ErrInvalidResponse, err)
	}
	return data, nil
}

// reverseHex renders a 32-byte internal-order hash as the big-endian hex
// string Bitcoin RPC methods expect.
func reverseHex(h [32]byte) string {
	rev := make([]byte, 32)
	for i := range h {
		rev[i] = h[31-i]
	}
	return hex.EncodeToString(rev)
}
