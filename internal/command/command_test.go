package command

import (
	"strings"
	"testing"

	"github.com/framegrace/pixelflut/internal/color"
	"github.com/framegrace/pixelflut/internal/pixmap"
)

func TestDecodeSetPixelRGB(t *testing.T) {
	cmd, err := Decode([]byte("PX 10 20 FF0000"))
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Kind != KindSetPixel || cmd.X != 10 || cmd.Y != 20 {
		t.Fatalf("got %+v", cmd)
	}
	if cmd.Color != color.FromRGB(0xFF, 0, 0) {
		t.Fatalf("color = %v", cmd.Color)
	}
}

func TestDecodeSetPixelGrayscale(t *testing.T) {
	cmd, err := Decode([]byte("PX 0 0 ff"))
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Color != color.FromRGB(0xFF, 0xFF, 0xFF) {
		t.Fatalf("color = %v", cmd.Color)
	}
}

func TestDecodeGetPixel(t *testing.T) {
	cmd, err := Decode([]byte("PX 3 4"))
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Kind != KindGetPixel || cmd.X != 3 || cmd.Y != 4 {
		t.Fatalf("got %+v", cmd)
	}
}

func TestDecodeSizeHelpQuit(t *testing.T) {
	for line, kind := range map[string]Kind{
		"SIZE": KindSize,
		"HELP": KindHelp,
		"QUIT": KindQuit,
	} {
		cmd, err := Decode([]byte(line))
		if err != nil {
			t.Fatal(err)
		}
		if cmd.Kind != kind {
			t.Fatalf("%s: got %+v", line, cmd)
		}
	}
}

func TestDecodeEmptyLineIsNone(t *testing.T) {
	cmd, err := Decode([]byte(""))
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Kind != KindNone {
		t.Fatalf("got %+v", cmd)
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		line string
		want string
	}{
		{"PX", "missing x coordinate"},
		{"PX abc", "invalid x coordinate"},
		{"PX 1", "missing y coordinate"},
		{"PX 1 abc", "invalid y coordinate"},
		{"PX 1 2 ZZZZZZ", "invalid color value"},
		{"BOGUS", "unknown command, use HELP"},
		{"PX -5 10", "invalid x coordinate"},
		{"PX 5 -10", "invalid y coordinate"},
	}
	for _, tc := range cases {
		_, err := Decode([]byte(tc.line))
		if err == nil || err.Error() != tc.want {
			t.Fatalf("Decode(%q) error = %v, want %q", tc.line, err, tc.want)
		}
	}
}

func TestInvokeSetPixelIncrementsCounter(t *testing.T) {
	pm := pixmap.New(10, 10)
	var n uint64
	res := Invoke(Cmd{Kind: KindSetPixel, X: 1, Y: 1, Color: color.FromRGB(1, 2, 3)}, pm, &n, Options{})
	if res.Kind != ResultOK {
		t.Fatalf("got %+v", res)
	}
	if n != 1 {
		t.Fatalf("pixelsSet = %d, want 1", n)
	}
	got, _ := pm.Pixel(1, 1)
	if got != color.FromRGB(1, 2, 3) {
		t.Fatalf("pixel = %v", got)
	}
}

func TestInvokeSetPixelOutOfBoundIsClientErr(t *testing.T) {
	pm := pixmap.New(4, 4)
	var n uint64
	res := Invoke(Cmd{Kind: KindSetPixel, X: 99, Y: 0}, pm, &n, Options{})
	if res.Kind != ResultClientErr {
		t.Fatalf("got %+v", res)
	}
	if n != 0 {
		t.Fatalf("pixelsSet = %d, want 0", n)
	}
}

func TestInvokeGetPixelResponse(t *testing.T) {
	pm := pixmap.New(4, 4)
	_ = pm.SetPixel(2, 2, color.FromRGB(0xAB, 0xCD, 0xEF))
	var n uint64
	res := Invoke(Cmd{Kind: KindGetPixel, X: 2, Y: 2}, pm, &n, Options{})
	if res.Kind != ResultResponse || res.Response != "PX 2 2 ABCDEF" {
		t.Fatalf("got %+v", res)
	}
}

func TestInvokeSize(t *testing.T) {
	pm := pixmap.New(800, 600)
	var n uint64
	res := Invoke(Cmd{Kind: KindSize}, pm, &n, Options{})
	if res.Kind != ResultResponse || res.Response != "SIZE 800 600" {
		t.Fatalf("got %+v", res)
	}
}

func TestInvokeQuit(t *testing.T) {
	pm := pixmap.New(1, 1)
	var n uint64
	res := Invoke(Cmd{Kind: KindQuit}, pm, &n, Options{})
	if res.Kind != ResultQuit {
		t.Fatalf("got %+v", res)
	}
}

func TestHelpTextVariants(t *testing.T) {
	plain := HelpText(Options{})
	if strings.Contains(plain, "PBxyrgba") {
		t.Fatal("binary help line should be absent when AllowBinaryCmd is false")
	}
	if strings.Contains(plain, "limited to") {
		t.Fatal("rate limit line should be absent when RateLimitBitsPerSec is 0")
	}

	full := HelpText(Options{AllowBinaryCmd: true, RateLimitBitsPerSec: 1000})
	if !strings.Contains(full, "PBxyrgba") {
		t.Fatal("expected binary help line")
	}
	if !strings.Contains(full, "1000 bits per second") {
		t.Fatal("expected rate limit help line")
	}
}
