package testutil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// RPCHandler computes the answer to one JSON-RPC call from its params.
// Returning an *RPCError sends that code, message and data to the client.
type RPCHandler func(params []json.RawMessage) (interface{}, error)

// EthRPC is an in-process JSON-RPC node for driving a real ethclient.
// Methods map to a static result, an *RPCError or an RPCHandler.
type EthRPC struct {
	URL string

	mu      sync.Mutex
	methods map[string]interface{}
	calls   []string
}

type rpcRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     json.RawMessage   `json:"id"`
}

type rpcErrorBody struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type rpcResponse struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      json.RawMessage  `json:"id"`
	Result  *json.RawMessage `json:"result,omitempty"`
	Error   *rpcErrorBody    `json:"error,omitempty"`
}

// StartMockEthRPC serves methods until the test ends. Unknown methods
// answer with -32601.
func StartMockEthRPC(t *testing.T, methods map[string]interface{}) *EthRPC {
	t.Helper()

	node := &EthRPC{methods: methods}
	srv := httptest.NewServer(http.HandlerFunc(node.serve))
	t.Cleanup(srv.Close)
	node.URL = srv.URL
	return node
}

// Calls returns the method names received so far, in order.
func (n *EthRPC) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

func (n *EthRPC) serve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPC(w, rpcResponse{ID: json.RawMessage(`null`), Error: &rpcErrorBody{Code: -32700, Message: "parse error"}})
		return
	}

	n.mu.Lock()
	n.calls = append(n.calls, req.Method)
	answer, ok := n.methods[req.Method]
	n.mu.Unlock()

	resp := rpcResponse{ID: req.ID}
	if !ok {
		resp.Error = &rpcErrorBody{Code: -32601, Message: "method not found: " + req.Method}
		writeRPC(w, resp)
		return
	}

	var err error
	if handler, isHandler := answer.(RPCHandler); isHandler {
		answer, err = handler(req.Params)
	} else if rpcErr, isErr := answer.(*RPCError); isErr {
		err = rpcErr
	}

	var rpcErr *RPCError
	switch {
	case errors.As(err, &rpcErr):
		resp.Error = &rpcErrorBody{Code: rpcErr.Code, Message: rpcErr.Message, Data: rpcErr.Data}
	case err != nil:
		resp.Error = &rpcErrorBody{Code: -32000, Message: err.Error()}
	default:
		result, err := json.Marshal(answer)
		if err != nil {
			resp.Error = &rpcErrorBody{Code: -32603, Message: err.Error()}
			break
		}
		raw := json.RawMessage(result)
		resp.Result = &raw
	}
	writeRPC(w, resp)
}

func writeRPC(w http.ResponseWriter, resp rpcResponse) {
	resp.JSONRPC = "2.0"
	_ = json.NewEncoder(w).Encode(resp)
}
