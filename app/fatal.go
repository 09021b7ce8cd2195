package app

import (
	"context"
	"errors"
	"image/color"
	"strings"
	"unicode/utf8"

	"tinygo.org/x/tinyfont"

	"panelport/hal"
	"panelport/port"
	"panelport/scene"
)

var (
	fatalBG = color.RGBA{R: 160, A: 255}
	fatalFG = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Run boots b with cfg and never returns. A boot failure is shown with
// Halt.
func Run(b hal.Board, cfg Config) {
	s, err := Boot(context.Background(), b, cfg)
	if err != nil {
		Halt(b, cfg.Port, err)
	}
	if err := s.Wait(); err != nil {
		Halt(b, cfg.Port, err)
	}
	select {}
}

// Halt logs err, paints it on the panel when one can be attached and blocks
// forever.
func Halt(b hal.Board, cfg port.Config, err error) {
	lines := fatalLines(err)
	if l := b.Logger(); l != nil {
		for _, line := range lines {
			l.WriteLineString(line)
		}
	}
	if panel := attachFatalPanel(b, cfg); panel != nil {
		_ = ShowFatal(panel, cfg.Width, cfg.Height, err)
	}
	select {}
}

// attachFatalPanel brings the panel up again outside the port. It returns
// nil when any step fails.
func attachFatalPanel(b hal.Board, cfg port.Config) hal.Panel {
	bus, err := b.OpenDisplayBus(hal.DisplayBusConfig{Lanes: cfg.DSILanes, LaneMbps: cfg.DSILaneMbps})
	if err != nil {
		return nil
	}
	panel, err := bus.AttachPanel(hal.PanelConfig{
		Width:     cfg.Width,
		Height:    cfg.Height,
		Format:    hal.PixelFormatRGB565,
		ResetPin:  cfg.ResetPin,
		FrameBufs: 1,
	})
	if err != nil {
		return nil
	}
	if panel.Reset() != nil || panel.Init() != nil || panel.Power(true) != nil {
		return nil
	}
	return panel
}

func fatalLines(err error) []string {
	lines := []string{"panelport: fatal error"}
	var ie *port.InitError
	if errors.As(err, &ie) {
		lines = append(lines, "init step: "+ie.Step)
	}
	if err != nil {
		for _, l := range strings.Split(err.Error(), "\n") {
			if l != "" {
				lines = append(lines, l)
			}
		}
	}
	return lines
}

// ShowFatal paints err as text on a w x h panel. Each text row is rendered
// into a one-row strip and transferred on its own, so the whole frame is
// never held in memory.
func ShowFatal(panel hal.Panel, w, h int, err error) error {
	font := scene.DefaultFont
	rowH := int(fontRowHeight())
	_, cw := tinyfont.LineWidth(font, "0")
	if rowH <= 0 || cw == 0 || w <= 0 || h <= 0 {
		return hal.ErrBadBitmap
	}
	cols := max(w/int(cw), 1)

	var rows []string
	for _, line := range fatalLines(err) {
		for len(line) > 0 {
			chunk, rest := takeRunes(line, cols)
			rows = append(rows, chunk)
			line = strings.TrimLeft(rest, " ")
		}
	}

	strip := port.NewFrameBuffer(w, rowH, hal.PixelFormatRGB565)
	bg := hal.RGB565(fatalBG.R, fatalBG.G, fatalBG.B)
	d := stripDisplay{fb: strip}
	for y, i := 0, 0; y < h; y, i = y+rowH, i+1 {
		strip.Fill(port.Full(w, rowH), bg)
		if i < len(rows) {
			tinyfont.WriteLine(d, font, 0, int16(rowH*3/4), rows[i], fatalFG)
		}
		n := min(rowH, h-y)
		if err := panel.DrawBitmap(0, y, w, y+n, strip.Pix()[:w*n*2]); err != nil {
			return err
		}
	}
	return nil
}

type stripDisplay struct {
	fb *port.FrameBuffer
}

func (d stripDisplay) Size() (x, y int16) {
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d stripDisplay) SetPixel(x, y int16, c color.RGBA) {
	d.fb.SetPixel(int(x), int(y), hal.RGB565(c.R, c.G, c.B))
}

func (d stripDisplay) Display() error { return nil }

func takeRunes(s string, n int) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	i, count := 0, 0
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		count++
	}
	return s[:i], s[i:]
}

func fontRowHeight() uint8 { return scene.DefaultFont.GetYAdvance() }
