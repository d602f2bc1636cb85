package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// Version is the supported JSON-RPC protocol version.
const Version = "2.0"

// Request is an incoming JSON-RPC request or notification. The two are
// discriminated structurally: a nil ID means the message is a notification
// and no response may ever be produced for it.
//
// Decoding is deliberately lenient. Anything that is syntactically valid JSON
// decodes into a Request; missing or unexpected fields are routing concerns,
// not parse errors.
type Request struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Method         string          `json:"method,omitempty"`
	Params         json.RawMessage `json:"params,omitempty"`
	ID             *RequestID      `json:"id,omitempty"`
}

// IsNotification reports whether the request carries no ID, either because the
// field was absent or because it was an explicit JSON null.
func (r *Request) IsNotification() bool {
	return r.ID.IsNil()
}

// Response is an outgoing JSON-RPC response. The ID field is always emitted;
// it serializes as null when the originating ID could not be recovered.
type Response struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          *Error          `json:"error,omitempty"`
	ID             *RequestID      `json:"id"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Data    any       `json:"data,omitempty"`
}

// NewResultResponse builds a successful response carrying the marshaled result.
func NewResultResponse(id *RequestID, result any) (*Response, error) {
	resultBytes, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &Response{
		JSONRPCVersion: Version,
		Result:         resultBytes,
		ID:             id,
	}, nil
}

// NewErrorResponse builds an error response with the given code and message.
func NewErrorResponse(id *RequestID, code ErrorCode, message string) *Response {
	return &Response{
		JSONRPCVersion: Version,
		Error: &Error{
			Code:    code,
			Message: message,
		},
		ID: id,
	}
}
