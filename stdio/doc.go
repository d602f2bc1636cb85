// Package stdio implements the newline-delimited JSON-RPC transport over
// stdin/stdout. One process serves one client: lines are read, dispatched and
// answered strictly in order, and the loop ends cleanly on end-of-stream or
// context cancellation.
//
// Characteristics
//
//	Connection model : 1 process <-> 1 client
//	Transport        : line-oriented JSON-RPC over stdin/stdout
//	Diagnostics      : stderr only; stdout carries protocol data exclusively
//
// Options allow supplying alternate io.Reader / io.Writer or a custom logger.
package stdio
