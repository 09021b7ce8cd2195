package scene

import (
	"image/color"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"

	"panelport/port"
)

// DefaultFont is the bitmap font used by labels and consoles.
var DefaultFont = &proggy.TinySZ8pt7b

// Label is one line of bitmap text. (X, Y) is the top-left corner.
type Label struct {
	scr  *Screen
	x, y int
	text string
	col  color.RGBA
	font tinyfont.Fonter
}

func (s *Screen) NewLabel(x, y int, text string, c color.RGBA) *Label {
	l := &Label{scr: s, x: x, y: y, text: text, col: c, font: DefaultFont}
	s.Add(l)
	return l
}

func (l *Label) Text() string { return l.text }

func (l *Label) SetText(text string) {
	if text == l.text {
		return
	}
	old := l.Bounds()
	l.text = text
	l.scr.Invalidate(old.Union(l.Bounds()))
}

func (l *Label) Bounds() port.Area {
	_, w := tinyfont.LineWidth(l.font, l.text)
	h := int(l.font.GetYAdvance())
	return port.Area{X1: l.x, Y1: l.y, X2: l.x + int(w), Y2: l.y + h}
}

func (l *Label) Draw(fb *port.FrameBuffer, clip port.Area) {
	h := int16(l.font.GetYAdvance())
	d := fbDisplay{fb: fb, clip: clip.Intersect(l.Bounds())}
	tinyfont.WriteLine(d, l.font, int16(l.x), int16(l.y)+h*3/4, l.text, l.col)
}
