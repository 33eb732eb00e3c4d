package yuvtx

import "errors"

var (
	// ErrNilRawTx indicates a TokenTx was constructed with no underlying
	// Bitcoin transaction bytes.
	ErrNilRawTx = errors.New("yuvtx: raw bitcoin transaction is empty")

	// ErrParseBitcoinTx indicates the raw bytes did not parse as a valid
	// Bitcoin transaction.
	ErrParseBitcoinTx = errors.New("yuvtx: failed to parse bitcoin transaction")

	// ErrProofCountMismatch indicates the number of supplied proofs does
	// not match the transaction's input or output count.
	ErrProofCountMismatch = errors.New("yuvtx: proof count does not match transaction inputs/outputs")

	// ErrUnknownKind indicates a TokenTx's Kind tag is unrecognized.
	ErrUnknownKind = errors.New("yuvtx: unrecognized transaction kind")
)
