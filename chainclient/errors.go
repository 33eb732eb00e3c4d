package chainclient

import "errors"

var (
	// ErrConnectionFailed indicates the client could not reach the node.
	ErrConnectionFailed = errors.New("chainclient: connection failed")

	// ErrInvalidResponse indicates the node returned a malformed or
	// unexpected response.
	ErrInvalidResponse = errors.New("chainclient: invalid response")

	// ErrBroadcastRejected indicates the node rejected a broadcast
	// transaction.
	ErrBroadcastRejected = errors.New("chainclient: broadcast rejected")

	// ErrBlockNotFound indicates the requested block hash is unknown to
	// the node.
	ErrBlockNotFound = errors.New("chainclient: block not found")
)
