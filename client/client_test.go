package client

import (
	"context"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wippyai/scale-codec/errors"
)

// testNode is a one-connection JSON-RPC server backed by httptest. The
// handler maps a method name to the raw JSON to return as result, or to
// an *rpcError.
type testNode struct {
	srv      *httptest.Server
	requests atomic.Int64
	handle   func(method string, params []json.RawMessage) (json.RawMessage, *rpcError)
}

func newTestNode(t *testing.T, handle func(method string, params []json.RawMessage) (json.RawMessage, *rpcError)) *testNode {
	t.Helper()
	n := &testNode{handle: handle}
	up := websocket.Upgrader{}
	n.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var req struct {
				ID     uint64            `json:"id"`
				Method string            `json:"method"`
				Params []json.RawMessage `json:"params"`
			}
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			n.requests.Add(1)

			resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
			result, rpcErr := n.handle(req.Method, req.Params)
			if rpcErr != nil {
				resp["error"] = rpcErr
			} else {
				resp["result"] = result
			}
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	}))
	t.Cleanup(n.srv.Close)
	return n
}

func (n *testNode) url() string {
	return "ws" + strings.TrimPrefix(n.srv.URL, "http")
}

func dialTestNode(t *testing.T, n *testNode) *Client {
	t.Helper()
	c, err := Dial(context.Background(), n.url())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestStorage(t *testing.T) {
	node := newTestNode(t, func(method string, params []json.RawMessage) (json.RawMessage, *rpcError) {
		if method != "state_getStorage" {
			t.Errorf("unexpected method %q", method)
		}
		var key string
		if err := json.Unmarshal(params[0], &key); err != nil {
			t.Errorf("bad key param: %v", err)
			return json.RawMessage(`null`), nil
		}
		if key == "0xdead" {
			return json.RawMessage(`"0x0102"`), nil
		}
		return json.RawMessage(`null`), nil
	})
	c := dialTestNode(t, node)

	got, err := c.Storage(context.Background(), []byte{0xde, 0xad})
	if err != nil {
		t.Fatalf("Storage: %v", err)
	}
	if len(got) != 2 || got[0] != 0x01 || got[1] != 0x02 {
		t.Errorf("Storage = %x, want 0102", got)
	}

	got, err = c.Storage(context.Background(), []byte{0xbe, 0xef})
	if err != nil {
		t.Fatalf("Storage (missing): %v", err)
	}
	if got != nil {
		t.Errorf("missing key yielded %x, want nil", got)
	}
}

func TestStorageAt(t *testing.T) {
	node := newTestNode(t, func(method string, params []json.RawMessage) (json.RawMessage, *rpcError) {
		if len(params) != 2 {
			t.Errorf("StorageAt sent %d params, want 2", len(params))
		}
		return json.RawMessage(`"0xff"`), nil
	})
	c := dialTestNode(t, node)

	got, err := c.StorageAt(context.Background(), []byte{0x00}, "0xabcd")
	if err != nil {
		t.Fatalf("StorageAt: %v", err)
	}
	if len(got) != 1 || got[0] != 0xff {
		t.Errorf("StorageAt = %x, want ff", got)
	}
}

func TestRuntimeVersion(t *testing.T) {
	node := newTestNode(t, func(method string, params []json.RawMessage) (json.RawMessage, *rpcError) {
		return json.RawMessage(`{"specName":"westend","implName":"parity-westend","specVersion":1021000,"implVersion":0,"transactionVersion":26}`), nil
	})
	c := dialTestNode(t, node)

	v, err := c.RuntimeVersion(context.Background())
	if err != nil {
		t.Fatalf("RuntimeVersion: %v", err)
	}
	if v.SpecName != "westend" || v.SpecVersion != 1021000 || v.TransactionVersion != 26 {
		t.Errorf("unexpected version: %+v", v)
	}
}

func TestRPCError(t *testing.T) {
	node := newTestNode(t, func(method string, params []json.RawMessage) (json.RawMessage, *rpcError) {
		return nil, &rpcError{Code: -32601, Message: "Method not found"}
	})
	c := dialTestNode(t, node)

	_, err := c.RuntimeVersion(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("error is %T, want *errors.Error", err)
	}
	if e.Kind != errors.KindRPC {
		t.Errorf("kind = %s, want %s", e.Kind, errors.KindRPC)
	}
	if !strings.Contains(e.Detail, "Method not found") || !strings.Contains(e.Detail, "-32601") {
		t.Errorf("detail %q should carry message and code", e.Detail)
	}
}

// minimalMetadata is a well-formed V15 blob with no types and no
// pallets: magic, version, then empty or zero-valued sections.
func minimalMetadata() []byte {
	return []byte{
		0x6d, 0x65, 0x74, 0x61, // magic "meta"
		15,
		0x00, // types
		0x00, // pallets
		4,    // extrinsic version
		0x00, 0x00, 0x00, 0x00, // address, call, signature, extra
		0x00,             // signed extensions
		0x00,             // runtime type
		0x00,             // apis
		0x00, 0x00, 0x00, // outer enums
		0x00, // custom values
	}
}

func TestMetadataAtCaching(t *testing.T) {
	blob := minimalMetadata()
	hexBlob, _ := json.Marshal("0x" + hex.EncodeToString(blob))

	node := newTestNode(t, func(method string, params []json.RawMessage) (json.RawMessage, *rpcError) {
		if method != "state_getMetadata" {
			t.Errorf("unexpected method %q", method)
		}
		return json.RawMessage(hexBlob), nil
	})
	c := dialTestNode(t, node)

	m, err := c.MetadataAt(context.Background(), "0x1111")
	if err != nil {
		t.Fatalf("MetadataAt: %v", err)
	}
	if m.Version != 15 {
		t.Errorf("version = %d, want 15", m.Version)
	}

	// Same hash again: served from cache, no second request.
	if _, err := c.MetadataAt(context.Background(), "0x1111"); err != nil {
		t.Fatalf("MetadataAt (cached): %v", err)
	}
	if got := node.requests.Load(); got != 1 {
		t.Errorf("server saw %d metadata requests, want 1", got)
	}

	// A different hash misses the cache.
	if _, err := c.MetadataAt(context.Background(), "0x2222"); err != nil {
		t.Fatalf("MetadataAt (other block): %v", err)
	}
	if got := node.requests.Load(); got != 2 {
		t.Errorf("server saw %d metadata requests, want 2", got)
	}

	// Head metadata is never cached.
	if _, err := c.Metadata(context.Background()); err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if _, err := c.Metadata(context.Background()); err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if got := node.requests.Load(); got != 4 {
		t.Errorf("server saw %d metadata requests, want 4", got)
	}
}

func TestMetadataAt_EmptyHash(t *testing.T) {
	node := newTestNode(t, func(method string, params []json.RawMessage) (json.RawMessage, *rpcError) {
		return json.RawMessage(`null`), nil
	})
	c := dialTestNode(t, node)

	if _, err := c.MetadataAt(context.Background(), ""); err == nil {
		t.Fatal("empty block hash should be rejected")
	}
}

func TestClosedClient(t *testing.T) {
	node := newTestNode(t, func(method string, params []json.RawMessage) (json.RawMessage, *rpcError) {
		return json.RawMessage(`null`), nil
	})
	c := dialTestNode(t, node)
	c.Close()

	_, err := c.RuntimeVersion(context.Background())
	if err == nil {
		t.Fatal("call after Close should fail")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("error is %T, want *errors.Error", err)
	}
	if e.Kind != errors.KindTransport {
		t.Errorf("kind = %s, want %s", e.Kind, errors.KindTransport)
	}
}

func TestCallContextCancelled(t *testing.T) {
	// A slow server: the call must unblock on the context instead.
	node := newTestNode(t, func(method string, params []json.RawMessage) (json.RawMessage, *rpcError) {
		time.Sleep(200 * time.Millisecond)
		return json.RawMessage(`null`), nil
	})
	c := dialTestNode(t, node)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.RuntimeVersion(ctx)
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
