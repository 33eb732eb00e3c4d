package chainclient

import (
	"context"
	"errors"
	"time"

	"github.com/yuvprotocol/node/confirm"
	"github.com/yuvprotocol/node/log"
)

// Watcher polls a Client for new blocks and feeds them to a confirm.Tracker.
// It is the node's only source of block-arrival events for a standalone
// deployment that has no external poller feeding the tracker.
type Watcher struct {
	client       *Client
	tracker      *confirm.Tracker
	isTracked    func(txid [32]byte) bool
	pollInterval time.Duration
	retryBudget  int

	// onFatal is invoked, once, when the tracker reports a condition the
	// operator must intervene on (a reorg deeper than the configured
	// window) rather than one the next poll tick can recover from on its
	// own. Defaults to a no-op; SetFatalHandler overrides it.
	onFatal func(error)

	height uint64
}

// NewWatcher constructs a Watcher. pollInterval bounds how often it asks
// the node for its best height; isTracked filters each fetched block down
// to the txids the tracker should see.
func NewWatcher(client *Client, tracker *confirm.Tracker, isTracked func([32]byte) bool, pollInterval time.Duration, retryBudget int) *Watcher {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	if retryBudget <= 0 {
		retryBudget = 3
	}
	return &Watcher{
		client:       client,
		tracker:      tracker,
		isTracked:    isTracked,
		pollInterval: pollInterval,
		retryBudget:  retryBudget,
		onFatal:      func(error) {},
	}
}

// SetFatalHandler installs the callback pollOnce invokes when the tracker
// reports a fatal, unrecoverable condition (confirm.ErrReorgTooDeep).
// The node's main package wires this to log the error and cancel the
// root context; it does not exit the process itself.
func (w *Watcher) SetFatalHandler(onFatal func(error)) {
	w.onFatal = onFatal
}

// Run blocks, polling for new blocks until ctx is cancelled. It is meant
// to be started in its own goroutine by the node's main package.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollOnce(ctx)
		}
	}
}

// pollOnce fetches every block between the watcher's last-seen height and
// the node's current tip, observing each one in order. A block that fails
// to fetch after retryBudget attempts is skipped for this tick; the next
// tick retries it, since the watcher's height only advances on success.
func (w *Watcher) pollOnce(ctx context.Context) {
	tip, err := w.client.GetBestBlockHeight(ctx)
	if err != nil {
		log.Chain.Warn().Err(err).Msg("chainclient: failed to fetch best height")
		return
	}

	for h := w.height + 1; h <= tip; h++ {
		block, err := w.fetchWithRetry(ctx, h)
		if err != nil {
			log.Chain.Warn().Err(err).Uint64("height", h).Msg("chainclient: failed to fetch block, will retry next tick")
			return
		}
		if err := w.tracker.Observe(*toBlockInfo(block, w.isTracked)); err != nil {
			if errors.Is(err, confirm.ErrReorgTooDeep) {
				log.Chain.Error().Err(err).Uint64("height", h).Msg("chainclient: reorg exceeds window depth, halting")
				w.onFatal(err)
				return
			}
			log.Chain.Error().Err(err).Uint64("height", h).Msg("chainclient: tracker rejected block")
			return
		}
		w.height = h
	}
}

func (w *Watcher) fetchWithRetry(ctx context.Context, height uint64) (*Block, error) {
	var lastErr error
	backoff := 500 * time.Millisecond
	for attempt := 0; attempt < w.retryBudget; attempt++ {
		hash, err := w.client.GetBlockHash(ctx, height)
		if err == nil {
			block, err := w.client.GetBlock(ctx, hash)
			if err == nil {
				return block, nil
			}
			lastErr = err
		} else {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, lastErr
}
