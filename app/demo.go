package app

import (
	"fmt"
	"image/color"
	"time"

	"panelport/hal"
	"panelport/internal/buildinfo"
	"panelport/port"
	"panelport/scene"
)

// Demo names a scene Boot can build.
type Demo string

const (
	DemoPulse   Demo = "pulse"
	DemoTouch   Demo = "touch"
	DemoConsole Demo = "console"
)

// Demos lists the known demos.
var Demos = []Demo{DemoPulse, DemoTouch, DemoConsole}

// ParseDemo returns the demo called name.
func ParseDemo(name string) (Demo, error) {
	for _, d := range Demos {
		if string(d) == name {
			return d, nil
		}
	}
	return "", fmt.Errorf("app: unknown demo %q (want one of %v)", name, Demos)
}

var (
	pulseColor = color.RGBA{R: 51, G: 179, B: 255, A: 255}
	dotColor   = color.RGBA{R: 255, G: 160, B: 0, A: 255}
	textColor  = color.RGBA{R: 220, G: 220, B: 220, A: 255}
)

const (
	pulseMin = 120
	pulseMax = 240
	dotSize  = 40
)

func buildDemo(s *System, b hal.Board, d Demo) error {
	switch d {
	case DemoPulse, "":
		return buildPulse(s.Screen)
	case DemoTouch:
		return buildTouch(s.Screen)
	case DemoConsole:
		return buildConsole(s, b)
	}
	return fmt.Errorf("app: unknown demo %q", d)
}

// buildPulse puts a circle in the middle of the screen that grows and
// shrinks forever.
func buildPulse(scr *scene.Screen) error {
	w, h := scr.Size()
	c := scr.NewCircle(w/2, h/2, pulseMin, pulseColor)
	_, err := scr.Animate(scene.Anim{
		From:     pulseMin,
		To:       pulseMax,
		Duration: time.Second,
		Playback: time.Second,
		Repeat:   scene.RepeatInfinite,
		Path:     scene.PathEaseInOut,
		Exec:     c.SetDiameter,
	})
	return err
}

func buildTouch(scr *scene.Screen) error {
	w, h := scr.Size()
	dot := scr.NewCircle(w/2, h/2, dotSize, dotColor)
	lbl := scr.NewLabel(8, 8, "touch the screen", textColor)
	scr.OnInput(func(sm port.Sample) {
		if sm.State != port.Pressed {
			return
		}
		dot.Move(sm.X, sm.Y)
		lbl.SetText(fmt.Sprintf("x=%d y=%d", sm.X, sm.Y))
	})
	return nil
}

func buildConsole(s *System, b hal.Board) error {
	scr := s.Screen
	w, h := scr.Size()
	con := scr.NewConsole(0, 0, w, h)
	info := b.Info()
	con.Println(buildinfo.Banner("panelport"))
	con.Printf("chip %s, %d cores, rev v%d.%d\n", info.Model, info.Cores, info.Revision/100, info.Revision%100)
	con.Printf("panel %dx%d %s, %d buffer(s)\n", w, h, s.Port.Format(), s.Port.Buffers().Count())
	con.Printf("free heap %d\n", freeHeap())
	_, err := scr.AddTimer(time.Second, func() {
		st := s.Port.Stats()
		con.Printf("t=%ds frames=%d bytes=%d skips=%d\n", scr.Now()/1000, st.Frames, st.Bytes, st.Skips)
	})
	return err
}
