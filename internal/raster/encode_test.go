package raster

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"regexp"
	"testing"
)

func TestParseProtocol(t *testing.T) {
	tests := []struct {
		in   string
		want Protocol
		ok   bool
	}{
		{"sixel", ProtocolSixel, true},
		{" Kitty ", ProtocolKitty, true},
		{"iterm", "", false},
	}
	for _, tt := range tests {
		got, err := ParseProtocol(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseProtocol(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestSixelEncode(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 12))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}

	blob, err := Sixel{}.Encode(img)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.HasPrefix(blob, []byte("\x1bP")) {
		t.Errorf("expected DCS introducer, got %q", blob[:min(8, len(blob))])
	}
	if !bytes.HasSuffix(blob, []byte("\x1b\\")) {
		t.Error("expected string terminator")
	}
}

var kittyCommand = regexp.MustCompile("\x1b_G([^;]*);([^\x1b]*)\x1b\\\\")

func TestKittyEncodeSmall(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	blob, err := Kitty{}.Encode(img)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	cmds := kittyCommand.FindAllSubmatch(blob, -1)
	if len(cmds) != 1 {
		t.Fatalf("expected 1 command, got %d", len(cmds))
	}
	if string(cmds[0][1]) != "a=T,f=100,q=2,C=1,m=0" {
		t.Errorf("unexpected control data %q", cmds[0][1])
	}

	data, err := base64.StdEncoding.DecodeString(string(cmds[0][2]))
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("payload is not a PNG: %v", err)
	}
}

func TestKittyEncodeChunks(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}

	blob, err := Kitty{}.Encode(img)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	cmds := kittyCommand.FindAllSubmatch(blob, -1)
	if len(cmds) < 2 {
		t.Fatalf("expected several chunks, got %d", len(cmds))
	}

	var payload []byte
	for i, c := range cmds {
		ctrl := string(c[1])
		last := i == len(cmds)-1
		switch {
		case i == 0 && ctrl != "a=T,f=100,q=2,C=1,m=1":
			t.Errorf("unexpected first control %q", ctrl)
		case i > 0 && !last && ctrl != "m=1":
			t.Errorf("unexpected middle control %q", ctrl)
		case last && ctrl != "m=0":
			t.Errorf("unexpected last control %q", ctrl)
		}
		if len(c[2]) > kittyChunk {
			t.Errorf("chunk %d exceeds %d bytes", i, kittyChunk)
		}
		payload = append(payload, c[2]...)
	}

	data, err := base64.StdEncoding.DecodeString(string(payload))
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("payload is not a PNG: %v", err)
	}
}
