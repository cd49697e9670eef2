// Package rpc exposes validation, linting and bundling to editors as a
// JSON-RPC 2.0 service. Messages are framed with Content-Length headers, the
// way language servers talk over stdio.
package rpc
