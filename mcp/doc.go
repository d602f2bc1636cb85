// Package mcp defines the wire-level types for the subset of the Model
// Context Protocol this server speaks: the initialize handshake and the
// tools surface (listing and invocation). Types here carry no behavior
// beyond JSON serialization.
package mcp
