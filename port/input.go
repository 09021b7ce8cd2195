package port

// ReadInput polls the touch controller once. With no contact it reports
// Released at the last known position; otherwise the first point, Pressed.
// Read errors are logged and reported as Released.
func (p *Port) ReadInput() Sample {
	p.inputMu.Lock()
	defer p.inputMu.Unlock()

	if p.touch == nil {
		return Sample{X: p.last.X, Y: p.last.Y, State: Released}
	}
	if err := p.touch.Read(); err != nil {
		p.log.Warn("touch read failed", "err", err)
		return Sample{X: p.last.X, Y: p.last.Y, State: Released}
	}
	if n := p.touch.Points(p.points[:]); n == 0 {
		return Sample{X: p.last.X, Y: p.last.Y, State: Released}
	}
	p.last = Sample{X: p.points[0].X, Y: p.points[0].Y, State: Pressed}
	return p.last
}
