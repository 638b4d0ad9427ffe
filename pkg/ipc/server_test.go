package ipc

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	. "gopkg.in/check.v1"

	"github.com/FranBarInstance/neutral-ipc/pkg/types"
)

type echoRenderer struct{}

func (echoRenderer) Render(schema, source string, kind types.SourceKind) (string, types.RenderStatus) {
	return "rendered:" + source, types.RenderStatus{StatusCode: 200, StatusText: "OK"}
}

func (s *TestSuite) startServer(c *C) *Server {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	c.Assert(err, IsNil)
	srv := NewServer(listener, echoRenderer{})
	go func() {
		_ = srv.Serve()
	}()
	return srv
}

// sendRaw writes raw bytes and returns everything the server sends
// back before closing the connection.
func (s *TestSuite) sendRaw(c *C, addr string, raw []byte) []byte {
	conn, err := net.Dial("tcp", addr)
	c.Assert(err, IsNil)
	defer conn.Close()

	_, err = conn.Write(raw)
	c.Assert(err, IsNil)

	reply, err := io.ReadAll(conn)
	c.Assert(err, IsNil)
	return reply
}

func (s *TestSuite) TestParseTemplate(c *C) {
	srv := s.startServer(c)
	defer srv.Close()

	schema := `{"data":{"name":"world"}}`
	tmpl := "Hello"

	request := Header{
		Control:        ControlParseTemplate,
		ContentFormat1: ContentJSON,
		ContentLength1: uint32(len(schema)),
		ContentFormat2: ContentText,
		ContentLength2: uint32(len(tmpl)),
	}
	raw := append(request.Encode(), []byte(schema)...)
	raw = append(raw, []byte(tmpl)...)

	// io.ReadAll returning also proves the server closed the
	// connection after the single exchange.
	reply := s.sendRaw(c, srv.Addr().String(), raw)

	response, err := DecodeHeader(reply)
	c.Assert(err, IsNil)
	c.Assert(response.Reserved, Equals, uint8(0))
	c.Assert(response.Control, Equals, uint8(ControlStatusOK))
	c.Assert(response.ContentFormat1, Equals, uint8(ContentJSON))
	c.Assert(response.ContentFormat2, Equals, uint8(ContentText))
	c.Assert(len(reply), Equals, HeaderSize+int(response.ContentLength1)+int(response.ContentLength2))

	body := reply[HeaderSize : HeaderSize+int(response.ContentLength1)]
	text := reply[HeaderSize+int(response.ContentLength1):]

	var status types.RenderStatus
	c.Assert(json.Unmarshal(body, &status), IsNil)
	c.Assert(status.HasError, Equals, false)
	c.Assert(status.StatusCode, Equals, 200)
	c.Assert(string(text), Equals, "rendered:Hello")
}

func (s *TestSuite) TestClientRoundTrip(c *C) {
	srv := s.startServer(c)
	defer srv.Close()

	client, err := Dial(srv.Addr().String())
	c.Assert(err, IsNil)
	defer client.Close()

	text, status, err := client.ParseTemplate(`{"data":{}}`, "body", types.SourceInline)
	c.Assert(err, IsNil)
	c.Assert(text, Equals, "rendered:body")
	c.Assert(status.HasError, Equals, false)
	c.Assert(status.StatusText, Equals, "OK")

	// one exchange per connection; a second request fails
	_, _, err = client.ParseTemplate(`{"data":{}}`, "again", types.SourceInline)
	c.Assert(err, NotNil)
}

func (s *TestSuite) TestUnsupportedControl(c *C) {
	srv := s.startServer(c)
	defer srv.Close()

	request := Header{
		Control:        99,
		ContentFormat1: ContentJSON,
		ContentFormat2: ContentText,
	}
	reply := s.sendRaw(c, srv.Addr().String(), request.Encode())
	c.Assert(reply, HasLen, 0)
}

func (s *TestSuite) TestInvalidContentFormat(c *C) {
	srv := s.startServer(c)
	defer srv.Close()

	// block 1 must be JSON
	request := Header{
		Control:        ControlParseTemplate,
		ContentFormat1: ContentText,
		ContentFormat2: ContentText,
	}
	reply := s.sendRaw(c, srv.Addr().String(), request.Encode())
	c.Assert(reply, HasLen, 0)

	// block 2 must be TEXT or PATH
	request = Header{
		Control:        ControlParseTemplate,
		ContentFormat1: ContentJSON,
		ContentFormat2: ContentBin,
	}
	reply = s.sendRaw(c, srv.Addr().String(), request.Encode())
	c.Assert(reply, HasLen, 0)
}

func (s *TestSuite) TestInvalidUTF8(c *C) {
	srv := s.startServer(c)
	defer srv.Close()

	payload := []byte{0xff, 0xfe, 0xfd}
	request := Header{
		Control:        ControlParseTemplate,
		ContentFormat1: ContentJSON,
		ContentLength1: uint32(len(payload)),
		ContentFormat2: ContentText,
		ContentLength2: 0,
	}
	reply := s.sendRaw(c, srv.Addr().String(), append(request.Encode(), payload...))
	c.Assert(reply, HasLen, 0)

	// the server keeps accepting connections afterwards
	client, err := Dial(srv.Addr().String())
	c.Assert(err, IsNil)
	defer client.Close()
	text, _, err := client.ParseTemplate(`{"data":{}}`, "still alive", types.SourceInline)
	c.Assert(err, IsNil)
	c.Assert(text, Equals, "rendered:still alive")
}

func (s *TestSuite) TestConcurrentConnections(c *C) {
	srv := s.startServer(c)
	defer srv.Close()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			client, err := Dial(srv.Addr().String())
			c.Assert(err, IsNil)
			defer client.Close()

			source := fmt.Sprintf("request-%d", i)
			text, status, err := client.ParseTemplate(`{"data":{}}`, source, types.SourceInline)
			c.Assert(err, IsNil)
			c.Assert(status.StatusCode, Equals, 200)
			c.Assert(text, Equals, "rendered:"+source)
		}(i)
	}
	wg.Wait()

	// the counter is bumped after the response is flushed, so give
	// the handlers a moment to finish
	for i := 0; srv.ConnectionsHandled() < 32 && i < 50; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	c.Assert(srv.ConnectionsHandled() >= uint64(32), Equals, true)
}

func (s *TestSuite) TestMaxContentSize(c *C) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	c.Assert(err, IsNil)
	srv := NewServer(listener, echoRenderer{})
	srv.MaxContentSize = 8
	go func() {
		_ = srv.Serve()
	}()
	defer srv.Close()

	request := Header{
		Control:        ControlParseTemplate,
		ContentFormat1: ContentJSON,
		ContentLength1: 100,
		ContentFormat2: ContentText,
		ContentLength2: 0,
	}
	reply := s.sendRaw(c, srv.Addr().String(), request.Encode())
	c.Assert(reply, HasLen, 0)
}

func (s *TestSuite) TestReadTimeout(c *C) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	c.Assert(err, IsNil)
	srv := NewServer(listener, echoRenderer{})
	srv.ReadTimeout = 100 * time.Millisecond
	go func() {
		_ = srv.Serve()
	}()
	defer srv.Close()

	// a peer that withholds the request gets dropped once the
	// deadline expires
	conn, err := net.Dial("tcp", srv.Addr().String())
	c.Assert(err, IsNil)
	defer conn.Close()

	reply, err := io.ReadAll(conn)
	c.Assert(err, IsNil)
	c.Assert(reply, HasLen, 0)
}
