package ipc

import (
	"bufio"
	"encoding/binary"
	"io"
	"net"
)

const (
	readBufferSize  = 8096
	writeBufferSize = 8096
)

// DecodeHeader reads a Header from buf. It only checks that enough
// bytes are present; field values are validated by the connection
// handler, not here.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrHeaderTooShort
	}
	return Header{
		Reserved:       buf[0],
		Control:        buf[1],
		ContentFormat1: buf[2],
		ContentLength1: binary.BigEndian.Uint32(buf[3:7]),
		ContentFormat2: buf[7],
		ContentLength2: binary.BigEndian.Uint32(buf[8:12]),
	}, nil
}

// Encode is the inverse of DecodeHeader. Any header value encodes.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	buf[0] = h.Reserved
	buf[1] = h.Control
	buf[2] = h.ContentFormat1
	binary.BigEndian.PutUint32(buf[3:7], h.ContentLength1)
	buf[7] = h.ContentFormat2
	binary.BigEndian.PutUint32(buf[8:12], h.ContentLength2)
	return buf
}

// Wire frames headers and content blocks over a single connection.
type Wire struct {
	conn   net.Conn
	writer *bufio.Writer
	reader io.Reader
}

func NewWire(conn net.Conn) *Wire {
	return &Wire{
		conn:   conn,
		writer: bufio.NewWriterSize(conn, writeBufferSize),
		reader: bufio.NewReaderSize(conn, readBufferSize),
	}
}

// ReadHeader blocks until a full header arrives. A peer that closes
// before delivering 12 bytes yields ErrHeaderTooShort.
func (w *Wire) ReadHeader() (Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(w.reader, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Header{}, ErrHeaderTooShort
		}
		return Header{}, err
	}
	return DecodeHeader(buf)
}

// ReadContent blocks until exactly length bytes arrive.
func (w *Wire) ReadContent(length uint32) ([]byte, error) {
	buf := make([]byte, length)
	if _, err := io.ReadFull(w.reader, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteMessage writes the header and both content blocks and flushes
// them as one logical message, in that exact order.
func (w *Wire) WriteMessage(h Header, content1, content2 []byte) error {
	if _, err := w.writer.Write(h.Encode()); err != nil {
		return err
	}
	if len(content1) > 0 {
		if _, err := w.writer.Write(content1); err != nil {
			return err
		}
	}
	if len(content2) > 0 {
		if _, err := w.writer.Write(content2); err != nil {
			return err
		}
	}
	return w.writer.Flush()
}

func (w *Wire) Close() error {
	return w.conn.Close()
}
