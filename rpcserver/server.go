// Package rpcserver implements the node's JSON-RPC 2.0 API: the thin HTTP
// surface through which wallets, indexers, and other nodes submit and
// query token transactions by calling into a controller.Controller.
package rpcserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/yuvprotocol/node/controller"
	"github.com/yuvprotocol/node/log"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// Server is the JSON-RPC 2.0 HTTP server fronting a Controller.
type Server struct {
	addr   string
	ctrl   *controller.Controller
	server *http.Server
	ln     net.Listener
}

// New creates a new RPC server bound to addr, dispatching into ctrl.
func New(addr string, ctrl *controller.Controller) *Server {
	s := &Server{addr: addr, ctrl: ctrl}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start begins listening and serving in a background goroutine. It
// returns immediately once the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("rpcserver: listen: %w", err)
	}
	s.ln = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.RPC.Error().Err(err).Msg("rpc server error")
		}
	}()
	return nil
}

// Addr returns the listener's bound address, useful when addr was ":0".
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, nil, CodeInvalidRequest, "only POST method is allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		writeError(w, nil, CodeParseError, "failed to read request body")
		return
	}
	if len(body) > maxBodySize {
		writeError(w, nil, CodeInvalidRequest, "request body too large")
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, nil, CodeParseError, "invalid JSON")
		return
	}
	if req.JSONRPC != "2.0" {
		writeError(w, req.ID, CodeInvalidRequest, `jsonrpc must be "2.0"`)
		return
	}

	result, rpcErr := s.dispatch(&req)
	if rpcErr != nil {
		writeJSON(w, Response{JSONRPC: "2.0", Error: rpcErr, ID: req.ID})
		return
	}
	writeJSON(w, Response{JSONRPC: "2.0", Result: result, ID: req.ID})
}

// dispatch routes a request to the handler named by the §6 method table.
func (s *Server) dispatch(req *Request) (interface{}, *Error) {
	switch req.Method {
	case "sendrawyuvtransaction":
		return s.handleSendRawTx(req)
	case "provideyuvproof":
		return s.handleProvideProof(req)
	case "providelistyuvproofs":
		return s.handleProvideListProofs(req)
	case "getrawyuvtransaction":
		return s.handleGetRawTx(req)
	case "getlistrawyuvtransactions":
		return s.handleGetListRawTx(req)
	case "listyuvtransactions":
		return s.handleListTransactions(req)
	case "isyuvtxoutfrozen":
		return s.handleIsOutputFrozen(req)
	case "emulateyuvtransaction":
		return s.handleEmulateTx(req)
	default:
		return nil, &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
	}
}

func writeJSON(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	writeJSON(w, Response{JSONRPC: "2.0", Error: &Error{Code: code, Message: message}, ID: id})
}

// parseParams unmarshals the request params into target.
func parseParams(req *Request, target interface{}) *Error {
	if req.Params == nil {
		return &Error{Code: CodeInvalidParams, Message: "params required"}
	}
	data, err := json.Marshal(req.Params)
	if err != nil {
		return &Error{Code: CodeInvalidParams, Message: "invalid params"}
	}
	if err := json.Unmarshal(data, target); err != nil {
		return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	return nil
}
