//go:build !tinygo && cgo

package hal

import (
	"context"
	"errors"
	"image"

	"github.com/hajimehoshi/ebiten/v2"

	"panelport/internal/buildinfo"
)

// errWindowClosed ends the game loop once the boot function has failed.
var errWindowClosed = errors.New("window closed")

// RunWindow boots the image on sim and shows its panel in a desktop window.
// The left mouse button and touch screens drive the touch controller. It
// blocks until the window closes or boot fails.
func RunWindow(sim *Sim, boot func(ctx context.Context, b Board) error) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g := &simGame{sim: sim, bootErr: make(chan error, 1)}
	go func() { g.bootErr <- boot(ctx, sim) }()

	ebiten.SetWindowTitle("panelport (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(sim.panel.width, sim.panel.height)
	ebiten.SetTPS(60)
	err := ebiten.RunGame(g)
	if errors.Is(err, errWindowClosed) {
		return g.err
	}
	return err
}

type simGame struct {
	sim     *Sim
	img     *image.RGBA
	panel   *ebiten.Image
	scratch []byte

	bootErr chan error
	err     error
	touches []ebiten.TouchID
}

func (g *simGame) Update() error {
	select {
	case err := <-g.bootErr:
		if err != nil {
			g.err = err
			return errWindowClosed
		}
	default:
	}

	g.touches = ebiten.AppendTouchIDs(g.touches[:0])
	switch {
	case len(g.touches) > 0:
		x, y := ebiten.TouchPosition(g.touches[0])
		g.sim.touch.SetTouch(x, y, true)
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft):
		x, y := ebiten.CursorPosition()
		g.sim.touch.SetTouch(x, y, true)
	default:
		x, y := ebiten.CursorPosition()
		g.sim.touch.SetTouch(x, y, false)
	}
	return nil
}

func (g *simGame) Draw(screen *ebiten.Image) {
	p := g.sim.panel
	if g.img == nil {
		g.img = image.NewRGBA(image.Rect(0, 0, p.width, p.height))
		g.scratch = make([]byte, p.width*p.height*2)
		g.panel = ebiten.NewImage(p.width, p.height)
	}
	if !p.Powered() {
		screen.Clear()
		return
	}
	p.Snapshot(g.scratch)
	RGB565ToRGBA(g.img.Pix, g.scratch)
	g.panel.WritePixels(g.img.Pix)
	screen.DrawImage(g.panel, nil)
}

func (g *simGame) Layout(_, _ int) (int, int) {
	return g.sim.panel.width, g.sim.panel.height
}
