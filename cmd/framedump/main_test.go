//go:build !tinygo

package main

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"golang.org/x/image/bmp"

	"panelport/app"
)

func TestRunWritesPulseFrame(t *testing.T) {
	c := qt.New(t)
	out := filepath.Join(t.TempDir(), "pulse.bmp")
	err := run(context.Background(), options{
		out:      out,
		demo:     app.DemoPulse,
		duration: 400 * time.Millisecond,
		width:    240,
		height:   240,
	})
	c.Assert(err, qt.IsNil)

	f, err := os.Open(out)
	c.Assert(err, qt.IsNil)
	defer f.Close()
	img, err := bmp.Decode(f)
	c.Assert(err, qt.IsNil)
	c.Assert(img.Bounds().Dx(), qt.Equals, 240)
	c.Assert(img.Bounds().Dy(), qt.Equals, 240)

	// The pulse never shrinks below 120 px, so the centre is always covered.
	r, g, b, _ := img.At(120, 120).RGBA()
	c.Assert(b>>8 > 200, qt.IsTrue, qt.Commentf("centre = %v", color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}))
	r, g, b, _ = img.At(0, 0).RGBA()
	c.Assert(r|g|b, qt.Equals, uint32(0))
}

func TestRunRejectsZeroDuration(t *testing.T) {
	err := run(context.Background(), options{out: filepath.Join(t.TempDir(), "x.bmp"), demo: app.DemoPulse, width: 32, height: 32})
	if err == nil {
		t.Fatal("run() with zero duration succeeded, want error")
	}
}
