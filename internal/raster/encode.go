package raster

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/mattn/go-sixel"
)

// Protocol names a terminal graphics protocol.
type Protocol string

const (
	ProtocolSixel Protocol = "sixel"
	ProtocolKitty Protocol = "kitty"
)

// ParseProtocol validates a protocol name.
func ParseProtocol(s string) (Protocol, error) {
	switch p := Protocol(strings.ToLower(strings.TrimSpace(s))); p {
	case ProtocolSixel, ProtocolKitty:
		return p, nil
	default:
		return "", fmt.Errorf("unknown graphics protocol %q", s)
	}
}

// Encoder turns an image into a blob the terminal displays at the cursor.
type Encoder interface {
	Encode(img image.Image) ([]byte, error)
}

// NewEncoder returns the encoder for p.
func NewEncoder(p Protocol) Encoder {
	if p == ProtocolKitty {
		return Kitty{}
	}
	return Sixel{}
}

// Sixel encodes DEC sixel graphics.
type Sixel struct {
	Dither bool
}

func (s Sixel) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := sixel.NewEncoder(&buf)
	enc.Dither = s.Dither
	if err := enc.Encode(img); err != nil {
		return nil, fmt.Errorf("sixel encode: %w", err)
	}
	return buf.Bytes(), nil
}

// kittyChunk is the maximum payload size of one graphics command.
const kittyChunk = 4096

// Kitty encodes the kitty graphics protocol: a PNG transmitted and shown at
// the cursor in base64 chunks, without moving the cursor.
type Kitty struct{}

func (Kitty) Encode(img image.Image) ([]byte, error) {
	var raw bytes.Buffer
	if err := png.Encode(&raw, img); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(raw.Bytes())

	var out bytes.Buffer
	header := "a=T,f=100,q=2,C=1,"
	for i := 0; i < len(encoded); i += kittyChunk {
		end := min(i+kittyChunk, len(encoded))
		more := 0
		if end < len(encoded) {
			more = 1
		}
		fmt.Fprintf(&out, "\x1b_G%sm=%d;%s\x1b\\", header, more, encoded[i:end])
		header = ""
	}
	return out.Bytes(), nil
}
