package scene

import (
	"fmt"
	"image/color"

	"tinygo.org/x/tinyterm"

	"panelport/port"
)

// Console is a text terminal drawn at a fixed position. It understands the
// ANSI colour sequences tinyterm does.
type Console struct {
	scr  *Screen
	x, y int
	c    *canvas
	t    *tinyterm.Terminal
}

// NewConsole adds a w x h console with its top-left corner at (x, y).
func (s *Screen) NewConsole(x, y, w, h int) *Console {
	con := &Console{scr: s, x: x, y: y, c: newCanvas(w, h)}
	con.c.onChange = func() { s.Invalidate(con.Bounds()) }
	con.t = tinyterm.NewTerminal(con.c)
	con.configure()
	s.Add(con)
	return con
}

// Write sends p to the terminal. It must run with the port lock held.
func (con *Console) Write(p []byte) (int, error) {
	n, err := con.t.Write(p)
	con.scr.Invalidate(con.Bounds())
	return n, err
}

func (con *Console) Println(args ...any) {
	_, _ = con.Write([]byte(fmt.Sprintln(args...)))
}

func (con *Console) Printf(format string, args ...any) {
	_, _ = con.Write([]byte(fmt.Sprintf(format, args...)))
}

// Reset clears the console.
func (con *Console) Reset() {
	_ = con.c.FillRectangle(0, 0, int16(con.c.w), int16(con.c.h), color.RGBA{A: 255})
	con.configure()
	con.scr.Invalidate(con.Bounds())
}

func (con *Console) configure() {
	fh := int16(DefaultFont.GetYAdvance())
	con.t.Configure(&tinyterm.Config{
		Font:              DefaultFont,
		FontHeight:        fh,
		FontOffset:        fh * 3 / 4,
		UseSoftwareScroll: true,
	})
}

func (con *Console) Bounds() port.Area {
	return port.Area{X1: con.x, Y1: con.y, X2: con.x + con.c.w, Y2: con.y + con.c.h}
}

func (con *Console) Draw(fb *port.FrameBuffer, clip port.Area) {
	con.c.blit(fb, con.x, con.y, clip)
}
