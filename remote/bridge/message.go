package bridge

import (
	"encoding/json"
	"fmt"
)

// Method names understood by the bridge. They match the provider calls of
// browser wallets.
const (
	MethodGetAccounts = "getAccounts"
	MethodSignMessage = "signMessage"
	MethodSignPsbt    = "signPsbt"
	MethodSignPsbts   = "signPsbts"
	MethodGetNetwork  = "getNetwork"
)

// JSON-RPC error codes used by the server.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeSigningFailed  = -32000
)

// request is a single bridge call.
type request struct {
	ID     uint64            `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// response answers the request with the same ID.
type response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

// RPCError is the error object of a failed bridge call.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return fmt.Sprintf("bridge error %d: %s", e.Code, e.Message)
}

// ErrorCode returns the numeric code of the error.
func (e *RPCError) ErrorCode() int {
	return e.Code
}

// marshalParams encodes each positional parameter.
func marshalParams(params ...any) ([]json.RawMessage, error) {
	raw := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		b, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}

		raw = append(raw, b)
	}

	return raw, nil
}
