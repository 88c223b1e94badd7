// Package client fetches metadata and storage from a node over its
// websocket JSON-RPC endpoint. It covers the read-only surface the
// codec needs and caches decoded metadata per block hash.
package client
