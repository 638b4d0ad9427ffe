package ipc

import (
	"encoding/json"
	"net"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/FranBarInstance/neutral-ipc/pkg/types"
)

// Server accepts connections and serves exactly one parse-template
// exchange per connection. Connections are fully independent: each
// one runs in its own goroutine with no shared state beyond the
// renderer and the (read-only) limits below.
type Server struct {
	// ReadTimeout bounds how long a connection may take to deliver
	// its request. Zero disables the deadline, matching the protocol
	// draft. Set before calling Serve.
	ReadTimeout time.Duration

	// MaxContentSize caps the declared length of each content block.
	// Zero means unbounded. Set before calling Serve.
	MaxContentSize int64

	listener net.Listener
	renderer types.Renderer
	handled  atomic.Uint64
	closed   atomic.Bool
}

func NewServer(listener net.Listener, renderer types.Renderer) *Server {
	return &Server{
		listener: listener,
		renderer: renderer,
	}
}

// Addr returns the listener's bound address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// ConnectionsHandled reports how many connections have completed,
// successfully or not.
func (s *Server) ConnectionsHandled() uint64 {
	return s.handled.Load()
}

// Serve runs the accept loop until Close is called. A failure to
// accept one connection is logged and the loop continues; the loop
// itself never stops on per-connection errors.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				logrus.Info("IPC server stopped")
				return nil
			}
			logrus.WithError(err).Error("Failed to accept connection")
			continue
		}
		go s.handleConn(conn)
	}
}

// Close stops the accept loop. Connections already being served run
// to completion.
func (s *Server) Close() error {
	s.closed.Store(true)
	return s.listener.Close()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	defer s.handled.Add(1)

	log := logrus.WithFields(logrus.Fields{
		"conn":   uuid.New().String(),
		"remote": conn.RemoteAddr().String(),
	})

	if s.ReadTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(s.ReadTimeout)); err != nil {
			log.WithError(err).Error("Failed to set read deadline")
			return
		}
	}

	// Transport-level failures drop the connection without a
	// response; only rendering failures get a structured reply.
	if err := s.serveConn(conn); err != nil {
		log.WithError(err).Error("Failed to handle client")
		return
	}
	log.Debug("Request served")
}

func (s *Server) serveConn(conn net.Conn) error {
	wire := NewWire(conn)

	header, err := wire.ReadHeader()
	if err != nil {
		return err
	}

	if header.Control != ControlParseTemplate {
		return errors.Wrapf(ErrUnsupportedControl, "control %d", header.Control)
	}
	if header.ContentFormat1 != ContentJSON {
		return errors.Wrapf(ErrInvalidContentFormat,
			"content block 1 tagged %d, expected JSON", header.ContentFormat1)
	}
	if header.ContentFormat2 != ContentText && header.ContentFormat2 != ContentPath {
		return errors.Wrapf(ErrInvalidContentFormat,
			"content block 2 tagged %d, expected TEXT or PATH", header.ContentFormat2)
	}
	if s.MaxContentSize > 0 {
		if int64(header.ContentLength1) > s.MaxContentSize ||
			int64(header.ContentLength2) > s.MaxContentSize {
			return errors.Wrapf(ErrContentTooLarge, "declared %d and %d bytes, limit %d",
				header.ContentLength1, header.ContentLength2, s.MaxContentSize)
		}
	}

	schema, err := wire.ReadContent(header.ContentLength1)
	if err != nil {
		return errors.Wrap(err, "failed to read schema content")
	}
	source, err := wire.ReadContent(header.ContentLength2)
	if err != nil {
		return errors.Wrap(err, "failed to read template content")
	}

	if !utf8.Valid(schema) {
		return errors.Wrap(ErrInvalidText, "content block 1")
	}
	if !utf8.Valid(source) {
		return errors.Wrap(ErrInvalidText, "content block 2")
	}

	kind := types.SourceInline
	if header.ContentFormat2 == ContentPath {
		kind = types.SourcePath
	}

	text, status := s.renderer.Render(string(schema), string(source), kind)

	body, err := json.Marshal(&status)
	if err != nil {
		return errors.Wrap(err, "failed to encode status body")
	}

	response := Header{
		Reserved:       0,
		Control:        ControlStatusOK,
		ContentFormat1: ContentJSON,
		ContentLength1: uint32(len(body)),
		ContentFormat2: ContentText,
		ContentLength2: uint32(len(text)),
	}
	return wire.WriteMessage(response, body, []byte(text))
}
