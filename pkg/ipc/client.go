package ipc

import (
	"encoding/json"
	"net"

	"github.com/pkg/errors"

	"github.com/FranBarInstance/neutral-ipc/pkg/types"
)

// Client performs the client half of the protocol. The protocol is
// strictly one exchange per connection, so a Client is good for a
// single ParseTemplate call; the server closes the connection after
// responding.
type Client struct {
	wire     *Wire
	peerAddr string
}

func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", addr)
	}
	return NewClient(conn), nil
}

func NewClient(conn net.Conn) *Client {
	return &Client{
		wire:     NewWire(conn),
		peerAddr: conn.RemoteAddr().String(),
	}
}

// ParseTemplate sends a parse-template request and waits for the
// response. A transport failure on the server side surfaces here as
// a closed connection, not as a structured error.
func (c *Client) ParseTemplate(schema, source string, kind types.SourceKind) (string, types.RenderStatus, error) {
	format2 := uint8(ContentText)
	if kind == types.SourcePath {
		format2 = ContentPath
	}

	request := Header{
		Control:        ControlParseTemplate,
		ContentFormat1: ContentJSON,
		ContentLength1: uint32(len(schema)),
		ContentFormat2: format2,
		ContentLength2: uint32(len(source)),
	}
	if err := c.wire.WriteMessage(request, []byte(schema), []byte(source)); err != nil {
		return "", types.RenderStatus{}, errors.Wrapf(err, "failed to send request to %s", c.peerAddr)
	}

	response, err := c.wire.ReadHeader()
	if err != nil {
		return "", types.RenderStatus{}, errors.Wrapf(err, "no response from %s", c.peerAddr)
	}
	if response.Control != ControlStatusOK {
		return "", types.RenderStatus{}, errors.Errorf("server reported status %d", response.Control)
	}

	body, err := c.wire.ReadContent(response.ContentLength1)
	if err != nil {
		return "", types.RenderStatus{}, errors.Wrap(err, "failed to read status body")
	}
	text, err := c.wire.ReadContent(response.ContentLength2)
	if err != nil {
		return "", types.RenderStatus{}, errors.Wrap(err, "failed to read rendered text")
	}

	var status types.RenderStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return "", types.RenderStatus{}, errors.Wrap(err, "malformed status body")
	}
	return string(text), status, nil
}

func (c *Client) Close() error {
	return c.wire.Close()
}
