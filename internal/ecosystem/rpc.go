// Package ecosystem wires the orchestrator into the running network it
// just spawned: submitting register_parachain/authorize_upgrade extrinsics
// and reading chain state over JSON-RPC (component J, spec.md §4.J),
// modeled on internal/hostctl/client.go's request/response envelope but
// over a websocket transport instead of REST-over-HTTP.
package ecosystem

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
)

// Client is a minimal JSON-RPC 2.0 client over a single websocket
// connection to a node's `ws` endpoint.
type Client struct {
	conn   *websocket.Conn
	nextID atomic.Int64
}

// Dial opens a JSON-RPC connection to a node's ws:// endpoint.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying websocket connection.
func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type response struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Call issues one JSON-RPC request and waits for its matching response,
// unmarshaling the result into out (which may be nil).
func (c *Client) Call(ctx context.Context, method string, params any, out any) error {
	paramsRaw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params for %s: %w", method, err)
	}

	id := c.nextID.Add(1)
	req := request{JSONRPC: "2.0", ID: id, Method: method, Params: paramsRaw}
	reqBytes, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request for %s: %w", method, err)
	}

	if err := c.conn.Write(ctx, websocket.MessageText, reqBytes); err != nil {
		return fmt.Errorf("write %s: %w", method, err)
	}

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read response to %s: %w", method, err)
		}
		var resp response
		if err := json.Unmarshal(data, &resp); err != nil {
			return fmt.Errorf("parse response to %s: %w", method, err)
		}
		if resp.ID != id {
			// A subscription notification or a stale reply; keep reading.
			continue
		}
		if resp.Error != nil {
			return resp.Error
		}
		if out == nil || len(resp.Result) == 0 {
			return nil
		}
		return json.Unmarshal(resp.Result, out)
	}
}

// CallWithTimeout is Call with a bounded context, for call sites that
// don't already carry a deadline (e.g. workflow activities).
func (c *Client) CallWithTimeout(timeout time.Duration, method string, params any, out any) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return c.Call(ctx, method, params, out)
}
