package rpcserver

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/yuvprotocol/node/announcement"
	"github.com/yuvprotocol/node/controller"
	"github.com/yuvprotocol/node/mempool"
	"github.com/yuvprotocol/node/pixel"
	"github.com/yuvprotocol/node/proof"
	"github.com/yuvprotocol/node/yuvtx"
)

var txTypes = map[string]yuvtx.Kind{
	"issue":        yuvtx.KindIssue,
	"transfer":     yuvtx.KindTransfer,
	"announcement": yuvtx.KindAnnouncement,
}

func decodeTxID(s string) ([32]byte, *Error) {
	var txid [32]byte
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return txid, &Error{Code: CodeInvalidParams, Message: "invalid txid: must be 32-byte hex"}
	}
	copy(txid[:], b)
	return txid, nil
}

func decodeTxType(s string) (yuvtx.Kind, *Error) {
	kind, ok := txTypes[s]
	if !ok {
		return 0, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("unknown tx_type %q", s)}
	}
	return kind, nil
}

func decodeProofList(hexList []string) ([]proof.Proof, *Error) {
	out := make([]proof.Proof, len(hexList))
	for i, h := range hexList {
		b, err := hex.DecodeString(h)
		if err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("output_proofs[%d]: invalid hex", i)}
		}
		p, err := proof.Decode(b)
		if err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("output_proofs[%d]: %v", i, err)}
		}
		out[i] = p
	}
	return out, nil
}

func decodeLuma(s string) (pixel.Luma, *Error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return pixel.Luma{}, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid decimal amount %q", s)}
	}
	l, err := pixel.LumaFromBigInt(v)
	if err != nil {
		return pixel.Luma{}, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	return l, nil
}

func decodeChroma(s string) (pixel.Chroma, *Error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return pixel.Chroma{}, &Error{Code: CodeInvalidParams, Message: "invalid chroma hex"}
	}
	c, err := pixel.ChromaFromBytes(b)
	if err != nil {
		return pixel.Chroma{}, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	return c, nil
}

func decodeAnnouncementHex(s string) (announcement.Announcement, *Error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return announcement.Announcement{}, &Error{Code: CodeInvalidParams, Message: "invalid announcement hex"}
	}
	ann, err := announcement.Decode(b)
	if err != nil {
		return announcement.Announcement{}, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	return ann, nil
}

// buildTokenTx assembles a yuvtx.TokenTx from the hex/decimal wire fields
// shared by sendrawyuvtransaction and emulateyuvtransaction.
func buildTokenTx(rawTxHex, txType string, outputProofsHex []string, issueChroma, issueAmount, announcementHex string) (*yuvtx.TokenTx, *Error) {
	rawTx, err := hex.DecodeString(rawTxHex)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "invalid raw_tx hex"}
	}
	kind, rpcErr := decodeTxType(txType)
	if rpcErr != nil {
		return nil, rpcErr
	}

	outputProofs, rpcErr := decodeProofList(outputProofsHex)
	if rpcErr != nil {
		return nil, rpcErr
	}

	var issueAnn yuvtx.IssueAnnouncement
	if kind == yuvtx.KindIssue {
		chroma, rpcErr := decodeChroma(issueChroma)
		if rpcErr != nil {
			return nil, rpcErr
		}
		amount, rpcErr := decodeLuma(issueAmount)
		if rpcErr != nil {
			return nil, rpcErr
		}
		issueAnn = yuvtx.IssueAnnouncement{Chroma: chroma, Amount: amount}
	}

	var ann announcement.Announcement
	if kind == yuvtx.KindAnnouncement && announcementHex != "" {
		ann, rpcErr = decodeAnnouncementHex(announcementHex)
		if rpcErr != nil {
			return nil, rpcErr
		}
	}

	tx, err := yuvtx.New(rawTx, kind, outputProofs, issueAnn, ann)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	return tx, nil
}

func toTxStatusResult(v controller.TxView) TxStatusResult {
	return TxStatusResult{
		TxID:   hex.EncodeToString(v.TxID[:]),
		Status: string(v.Status),
		RawTx:  hex.EncodeToString(v.RawTx),
	}
}

// handleSendRawTx answers sendrawyuvtransaction: builds a TokenTx from the
// wire payload and admits it to the mempool.
func (s *Server) handleSendRawTx(req *Request) (interface{}, *Error) {
	var params SendRawTxParam
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}

	tx, rpcErr := buildTokenTx(params.RawTx, params.TxType, params.OutputProofs, params.IssueChroma, params.IssueAmount, params.Announcement)
	if rpcErr != nil {
		return nil, rpcErr
	}

	var maxBurn *pixel.Luma
	if params.MaxBurnAmount != "" {
		l, rpcErr := decodeLuma(params.MaxBurnAmount)
		if rpcErr != nil {
			return nil, rpcErr
		}
		maxBurn = &l
	}

	accepted, err := s.ctrl.SubmitTransaction(tx, maxBurn)
	if err != nil {
		if errors.Is(err, mempool.ErrAlreadyExists) {
			return nil, &Error{Code: CodeRejected, Message: "transaction already known"}
		}
		return nil, &Error{Code: CodeRejected, Message: err.Error()}
	}
	return &SendRawTxResult{Accepted: accepted, TxID: hex.EncodeToString(tx.TxID[:])}, nil
}

// handleProvideProof answers provideyuvproof.
func (s *Server) handleProvideProof(req *Request) (interface{}, *Error) {
	var params ProvideProofParam
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	return s.provideProof(params)
}

func (s *Server) provideProof(params ProvideProofParam) (interface{}, *Error) {
	txid, rpcErr := decodeTxID(params.TxID)
	if rpcErr != nil {
		return nil, rpcErr
	}
	outputProofs, rpcErr := decodeProofList(params.OutputProofs)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.ctrl.ProvideProof(txid, outputProofs); err != nil {
		if errors.Is(err, mempool.ErrNotFound) {
			return nil, &Error{Code: CodeNotFound, Message: "unknown transaction"}
		}
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return &AcceptedResult{Accepted: true}, nil
}

// handleProvideListProofs answers providelistyuvproofs, stopping at the
// first item that fails.
func (s *Server) handleProvideListProofs(req *Request) (interface{}, *Error) {
	var params ProvideListProofsParam
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	for _, item := range params.Items {
		if _, rpcErr := s.provideProof(item); rpcErr != nil {
			return nil, rpcErr
		}
	}
	return &AcceptedResult{Accepted: true}, nil
}

// handleGetRawTx answers getrawyuvtransaction.
func (s *Server) handleGetRawTx(req *Request) (interface{}, *Error) {
	var params TxIDParam
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	txid, rpcErr := decodeTxID(params.TxID)
	if rpcErr != nil {
		return nil, rpcErr
	}
	view, err := s.ctrl.GetTransactionStatus(txid)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	result := toTxStatusResult(view)
	return &result, nil
}

// handleGetListRawTx answers getlistrawyuvtransactions: txids unknown to
// the node are silently skipped from the result, per §6.
func (s *Server) handleGetListRawTx(req *Request) (interface{}, *Error) {
	var params TxIDListParam
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	txids := make([][32]byte, len(params.TxIDs))
	for i, h := range params.TxIDs {
		txid, rpcErr := decodeTxID(h)
		if rpcErr != nil {
			return nil, rpcErr
		}
		txids[i] = txid
	}
	views, err := s.ctrl.GetListTransactionStatus(txids)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}

	result := TxStatusListResult{Transactions: make([]TxStatusResult, 0, len(views))}
	for _, v := range views {
		if v.Status == controller.StatusNone {
			continue
		}
		result.Transactions = append(result.Transactions, toTxStatusResult(v))
	}
	return &result, nil
}

// handleListTransactions answers listyuvtransactions.
func (s *Server) handleListTransactions(req *Request) (interface{}, *Error) {
	var params PageParam
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	views, err := s.ctrl.ListTransactions(params.Page)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}

	result := TxStatusListResult{Transactions: make([]TxStatusResult, len(views))}
	for i, v := range views {
		result.Transactions[i] = toTxStatusResult(v)
	}
	return &result, nil
}

// handleIsOutputFrozen answers isyuvtxoutfrozen.
func (s *Server) handleIsOutputFrozen(req *Request) (interface{}, *Error) {
	var params OutpointParam
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	txid, rpcErr := decodeTxID(params.TxID)
	if rpcErr != nil {
		return nil, rpcErr
	}
	frozen := s.ctrl.IsOutputFrozen(yuvtx.Outpoint{TxID: txid, Vout: params.Vout})
	return &FrozenResult{Frozen: frozen}, nil
}

// handleEmulateTx answers emulateyuvtransaction: it runs the isolated
// checker synchronously without touching the mempool or any store.
func (s *Server) handleEmulateTx(req *Request) (interface{}, *Error) {
	var params EmulateParam
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}

	tx, rpcErr := buildTokenTx(params.RawTx, params.TxType, params.OutputProofs, params.IssueChroma, params.IssueAmount, params.Announcement)
	if rpcErr != nil {
		return nil, rpcErr
	}
	inputProofs, rpcErr := decodeProofList(params.InputProofs)
	if rpcErr != nil {
		return nil, rpcErr
	}

	_, cerr := s.ctrl.EmulateTransaction(tx, inputProofs)
	if cerr != nil {
		return &EmulateResult{
			Status:   "invalid",
			Category: cerr.Category.String(),
			Reason:   string(cerr.Reason),
			Message:  cerr.Message,
		}, nil
	}
	return &EmulateResult{Status: "valid"}, nil
}
