package ipc

import (
	"github.com/pkg/errors"
)

// Neutral IPC record, version 0.
//
// Every request and response starts with a fixed 12 byte header,
// all integers big endian:
//
//	reserved          1 byte
//	control           1 byte  action (request) or status (response)
//	content-format 1  1 byte
//	content-length 1  4 bytes
//	content-format 2  1 byte
//	content-length 2  4 bytes (can be zero)
//
// The two content blocks follow the header back to back. All text
// content is UTF-8.
const (
	HeaderSize = 12

	// Request control codes.
	ControlParseTemplate = 10

	// Response control codes. ControlStatusErr is assigned but no
	// respond path emits it yet; rendering failures travel in the
	// JSON status body instead.
	ControlStatusOK  = 0
	ControlStatusErr = 1

	// Content format tags.
	ContentJSON = 10
	ContentPath = 20
	ContentText = 30
	ContentBin  = 40
)

// Header is the fixed-size prefix of every request and response.
type Header struct {
	Reserved       uint8
	Control        uint8
	ContentFormat1 uint8
	ContentLength1 uint32
	ContentFormat2 uint8
	ContentLength2 uint32
}

var (
	ErrHeaderTooShort       = errors.New("header shorter than 12 bytes")
	ErrUnsupportedControl   = errors.New("unsupported control code")
	ErrInvalidContentFormat = errors.New("invalid content format")
	ErrInvalidText          = errors.New("content block is not valid UTF-8")
	ErrContentTooLarge      = errors.New("declared content length exceeds limit")
)
