package client

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/wippyai/scale-codec/errors"
	"github.com/wippyai/scale-codec/metadata"
)

// metadataCacheSize bounds the per-block metadata cache. Metadata only
// changes on runtime upgrades, so a handful of entries covers any
// realistic working set.
const metadataCacheSize = 16

// RuntimeVersion identifies the runtime a node is executing.
type RuntimeVersion struct {
	SpecName           string `json:"specName"`
	ImplName           string `json:"implName"`
	SpecVersion        uint32 `json:"specVersion"`
	ImplVersion        uint32 `json:"implVersion"`
	TransactionVersion uint32 `json:"transactionVersion"`
}

// Client is a JSON-RPC 2.0 client over a websocket connection, covering
// the read-only calls the codec needs: metadata, storage and runtime
// version. Transaction submission and subscriptions are out of scope.
type Client struct {
	conn *websocket.Conn
	url  string

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan rpcResult
	closed  bool
	readErr error

	metaCache *lru.Cache
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcResult struct {
	raw json.RawMessage
	err error
}

// Dial connects to a node's websocket endpoint.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseFetch, errors.KindTransport, err, "dial "+url)
	}

	cache, err := lru.New(metadataCacheSize)
	if err != nil {
		conn.Close()
		return nil, err
	}

	c := &Client{
		conn:      conn,
		url:       url,
		pending:   map[uint64]chan rpcResult{},
		metaCache: cache,
	}
	go c.readLoop()

	Logger().Debug("connected", zap.String("url", url))
	return c, nil
}

// Close tears down the connection. In-flight calls fail with a
// transport error.
func (c *Client) Close() error {
	c.failPending(errors.New(errors.PhaseFetch, errors.KindTransport).Detail("connection closed").Build())
	return c.conn.Close()
}

func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.failPending(errors.Wrap(errors.PhaseFetch, errors.KindTransport, err, "read"))
			return
		}

		var resp rpcResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			Logger().Warn("discarding unparseable message", zap.Error(err))
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if !ok {
			Logger().Debug("response for unknown id", zap.Uint64("id", resp.ID))
			continue
		}

		if resp.Error != nil {
			ch <- rpcResult{err: errors.New(errors.PhaseFetch, errors.KindRPC).
				Detail("%s (code %d)", resp.Error.Message, resp.Error.Code).
				Build()}
			continue
		}
		ch <- rpcResult{raw: resp.Result}
	}
}

func (c *Client) failPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.readErr = err
	for id, ch := range c.pending {
		delete(c.pending, id)
		ch <- rpcResult{err: err}
	}
}

// call performs one request/response round trip.
func (c *Client) call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}

	c.mu.Lock()
	if c.closed {
		err := c.readErr
		c.mu.Unlock()
		return nil, err
	}
	c.nextID++
	id := c.nextID
	ch := make(chan rpcResult, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	c.writeMu.Lock()
	err := c.conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, errors.Wrap(errors.PhaseFetch, errors.KindTransport, err, "write "+method)
	}

	select {
	case res := <-ch:
		return res.raw, res.err
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

// hexBytes unwraps a JSON "0x..." string into raw bytes. A JSON null
// yields nil, which callers treat as absence.
func hexBytes(raw json.RawMessage) ([]byte, error) {
	if string(raw) == "null" {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.Wrap(errors.PhaseFetch, errors.KindInvalidData, err, "non-string result")
	}
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseFetch, errors.KindInvalidData, err, "bad hex result")
	}
	return b, nil
}

// Metadata fetches and decodes the node's current metadata.
func (c *Client) Metadata(ctx context.Context) (*metadata.Metadata, error) {
	return c.metadataAt(ctx, "")
}

// MetadataAt fetches and decodes the metadata as of a block hash.
// Snapshots are cached per hash.
func (c *Client) MetadataAt(ctx context.Context, blockHash string) (*metadata.Metadata, error) {
	if blockHash == "" {
		return nil, errors.InvalidData(errors.PhaseFetch, nil, "empty block hash")
	}
	return c.metadataAt(ctx, blockHash)
}

func (c *Client) metadataAt(ctx context.Context, blockHash string) (*metadata.Metadata, error) {
	if blockHash != "" {
		if cached, ok := c.metaCache.Get(blockHash); ok {
			return cached.(*metadata.Metadata), nil
		}
	}

	params := []any{}
	if blockHash != "" {
		params = append(params, blockHash)
	}
	raw, err := c.call(ctx, "state_getMetadata", params...)
	if err != nil {
		return nil, err
	}
	b, err := hexBytes(raw)
	if err != nil {
		return nil, err
	}

	m, err := metadata.Decode(b)
	if err != nil {
		return nil, err
	}
	if blockHash != "" {
		c.metaCache.Add(blockHash, m)
	}
	Logger().Debug("metadata fetched",
		zap.String("block", blockHash),
		zap.Int("pallets", len(m.Pallets)),
		zap.Int("types", m.Types.Len()))
	return m, nil
}

// Storage fetches the raw value under a storage key, or nil when the
// key holds nothing.
func (c *Client) Storage(ctx context.Context, key []byte) ([]byte, error) {
	raw, err := c.call(ctx, "state_getStorage", "0x"+hex.EncodeToString(key))
	if err != nil {
		return nil, err
	}
	return hexBytes(raw)
}

// StorageAt is Storage as of a block hash.
func (c *Client) StorageAt(ctx context.Context, key []byte, blockHash string) ([]byte, error) {
	raw, err := c.call(ctx, "state_getStorage", "0x"+hex.EncodeToString(key), blockHash)
	if err != nil {
		return nil, err
	}
	return hexBytes(raw)
}

// RuntimeVersion fetches the node's runtime version.
func (c *Client) RuntimeVersion(ctx context.Context) (RuntimeVersion, error) {
	var v RuntimeVersion
	raw, err := c.call(ctx, "state_getRuntimeVersion")
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, errors.Wrap(errors.PhaseFetch, errors.KindInvalidData, err, "bad runtime version")
	}
	return v, nil
}
