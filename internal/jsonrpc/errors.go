package jsonrpc

// ErrorCode is a JSON-RPC 2.0 error code.
type ErrorCode int

// The server collapses every failure into three codes. A line that fails to
// parse gets ErrorCodeParseError (the only case where the request id is
// unrecoverable), an unroutable method or tool name gets
// ErrorCodeMethodNotFound, and everything else that goes wrong while serving
// a request gets ErrorCodeInternalError.
const (
	ErrorCodeParseError     ErrorCode = -32700
	ErrorCodeMethodNotFound ErrorCode = -32601
	ErrorCodeInternalError  ErrorCode = -32603
)
