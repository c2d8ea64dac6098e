// Package mcp implements the client side of the Model Context Protocol (MCP),
// connecting a host application to an external MCP server over a JSON-RPC 2.0
// transport. It follows the protocol specification at
// https://spec.modelcontextprotocol.io/specification/2024-11-05/.
//
// A Client is constructed with NewClient, connected to a server with Connect,
// and used through its typed methods (ListTools, CallTool, ReadResource, and
// so on) until Close. The server's side of the protocol is out of scope for
// this package.
package mcp
