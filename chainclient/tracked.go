package chainclient

import "github.com/yuvprotocol/node/mempool"

// MempoolTracked builds the isTracked predicate TrackerAdapter and Watcher
// need from a live mempool.Store: a txid is tracked while it sits in
// WaitingMined or Mined, the two states the confirmation tracker drives.
func MempoolTracked(store mempool.Store) func(txid [32]byte) bool {
	return func(txid [32]byte) bool {
		if _, ok, _ := entryInState(store, txid, mempool.WaitingMined); ok {
			return true
		}
		_, ok, _ := entryInState(store, txid, mempool.Mined)
		return ok
	}
}

func entryInState(store mempool.Store, txid [32]byte, state mempool.State) (mempool.Entry, bool, error) {
	e, ok, err := store.Get(txid)
	if err != nil || !ok || e.State != state {
		return mempool.Entry{}, false, err
	}
	return e, true, nil
}
