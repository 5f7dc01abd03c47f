package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) call(method string, req, resp any) error {
	return c.client.Call(serviceName+"."+method, req, resp)
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SuggestionList returns pending suggestions oldest first.
func (c *Client) SuggestionList() (*SuggestionListResponse, error) {
	var resp SuggestionListResponse
	if err := c.call("SuggestionList", SuggestionListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SuggestionDelete removes a suggestion by id.
func (c *Client) SuggestionDelete(id int64) (*SuggestionDeleteResponse, error) {
	var resp SuggestionDeleteResponse
	if err := c.call("SuggestionDelete", SuggestionDeleteRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SuggestionAccept commits a suggestion to destination through the organizer.
func (c *Client) SuggestionAccept(id int64, destination string) (*SuggestionAcceptResponse, error) {
	var resp SuggestionAcceptResponse
	req := SuggestionAcceptRequest{ID: id, Destination: destination}
	if err := c.call("SuggestionAccept", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DatabaseHealth retrieves detailed database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	var resp DatabaseHealthResponse
	if err := c.call("DatabaseHealth", DatabaseHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.call("TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
