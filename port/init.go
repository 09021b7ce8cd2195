package port

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"panelport/hal"
)

// Init step names, in execution order.
const (
	StepLock        = "lock"
	StepPHYPower    = "phy-power"
	StepBacklight   = "backlight"
	StepBus         = "bus"
	StepPanelAttach = "panel-attach"
	StepPanelOn     = "panel-on"
	StepBuffers     = "buffers"
	StepFlushBridge = "flush-bridge"
	StepTouchBus    = "touch-bus"
	StepTouchProbe  = "touch-probe"
	StepInputBridge = "input-bridge"
	StepTick        = "tick"
	StepRenderTask  = "render-task"
)

// InitSteps is the bring-up order. Each step consumes handles produced by
// the steps before it.
var InitSteps = []string{
	StepLock,
	StepPHYPower,
	StepBacklight,
	StepBus,
	StepPanelAttach,
	StepPanelOn,
	StepBuffers,
	StepFlushBridge,
	StepTouchBus,
	StepTouchProbe,
	StepInputBridge,
	StepTick,
	StepRenderTask,
}

type initStep struct {
	name string
	run  func() error
}

func (p *Port) pipeline() []initStep {
	return []initStep{
		{StepLock, p.initLock},
		{StepPHYPower, p.initPHYPower},
		{StepBacklight, p.initBacklight},
		{StepBus, p.initBus},
		{StepPanelAttach, p.initPanelAttach},
		{StepPanelOn, p.initPanelOn},
		{StepBuffers, p.initBuffers},
		{StepFlushBridge, p.initFlushBridge},
		{StepTouchBus, p.initTouchBus},
		{StepTouchProbe, p.initTouchProbe},
		{StepInputBridge, p.initInputBridge},
		{StepTick, p.initTick},
		{StepRenderTask, p.initRenderTask},
	}
}

// Init brings up the hardware and starts the tick and render goroutines.
// It runs once; later calls return ErrAlreadyInitialized. A failed step
// aborts bring-up without undoing earlier steps.
//
// The goroutines run until ctx is done.
func (p *Port) Init(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyInitialized
	}
	if p.board == nil || p.client == nil {
		return fmt.Errorf("%w: nil board or client", ErrInvalidConfig)
	}
	if err := p.cfg.Validate(); err != nil {
		return err
	}
	p.group, p.runCtx = errgroup.WithContext(ctx)

	for _, s := range p.pipeline() {
		if err := ctx.Err(); err != nil {
			return &InitError{Step: s.name, Kind: ErrHardwareInit, Err: err}
		}
		if err := s.run(); err != nil {
			kind := ErrHardwareInit
			if s.name == StepBuffers {
				kind = ErrBufferAlloc
			}
			p.log.Error("init failed", "step", s.name, "err", err)
			return &InitError{Step: s.name, Kind: kind, Err: err}
		}
		p.stepMu.Lock()
		p.done = append(p.done, s.name)
		p.stepMu.Unlock()
		p.log.Debug("init", "step", s.name)
	}
	p.log.Info("display port ready",
		"res", fmt.Sprintf("%dx%d", p.cfg.Width, p.cfg.Height),
		"bufs", p.bufs.Count(),
		"full_refresh", p.cfg.FullRefresh)
	return nil
}

func (p *Port) initLock() error {
	p.lock = NewLock()
	return nil
}

func (p *Port) initPHYPower() error {
	rail := p.board.PowerRail()
	if rail == nil {
		return errors.New("no phy power rail")
	}
	if err := rail.Enable(p.cfg.PHYLDOChannel, p.cfg.PHYLDOMillivolts); err != nil {
		return fmt.Errorf("ldo %d @ %d mV: %w", p.cfg.PHYLDOChannel, p.cfg.PHYLDOMillivolts, err)
	}
	p.log.Info("MIPI DSI PHY powered on", "ldo", p.cfg.PHYLDOChannel, "mv", p.cfg.PHYLDOMillivolts)
	return nil
}

func (p *Port) initBacklight() error {
	pin := p.board.Backlight()
	if pin == nil {
		return errors.New("no backlight pin")
	}
	if err := pin.Configure(hal.GPIOModeOutput, hal.GPIOPullNone); err != nil {
		return err
	}
	if err := pin.Write(!p.cfg.BacklightActiveLow); err != nil {
		return err
	}
	p.log.Info("backlight on", "gpio", p.cfg.BacklightPin, "pin", pin.Name(), "active_low", p.cfg.BacklightActiveLow)
	return nil
}

func (p *Port) initBus() error {
	bus, err := p.board.OpenDisplayBus(hal.DisplayBusConfig{
		Lanes:    p.cfg.DSILanes,
		LaneMbps: p.cfg.DSILaneMbps,
	})
	if err != nil {
		return err
	}
	p.dbus = bus
	return nil
}

func (p *Port) initPanelAttach() error {
	panel, err := p.dbus.AttachPanel(hal.PanelConfig{
		Width:     p.cfg.Width,
		Height:    p.cfg.Height,
		Format:    p.cfg.Format,
		ResetPin:  p.cfg.ResetPin,
		FrameBufs: p.cfg.Buffering.count(),
	})
	if err != nil {
		return err
	}
	p.panel = panel
	return nil
}

func (p *Port) initPanelOn() error {
	if err := p.panel.Reset(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if err := p.panel.Init(); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if err := p.panel.Power(true); err != nil {
		return fmt.Errorf("power on: %w", err)
	}
	return nil
}

func (p *Port) initBuffers() error {
	bufs, err := allocBuffers(p.cfg.Allocator, p.cfg.Buffering.count(),
		p.cfg.Width, p.cfg.Height, p.cfg.Format, p.cfg.Align)
	if err != nil {
		return err
	}
	p.bufMu.Lock()
	p.bufs = bufs
	p.bufMu.Unlock()
	p.log.Info("frame buffers", "count", bufs.Count(), "bytes", bufs[0].Len(), "align", p.cfg.Align)
	return nil
}

func (p *Port) initFlushBridge() error {
	if p.cfg.Buffering == BufferDouble {
		p.jobs = make(chan flushJob, 2)
		p.group.Go(func() error { return p.busWorker(p.runCtx) })
	}
	// Bridges are usable from here on; the client may flush while attaching.
	p.ready.Store(true)
	return p.client.AttachDisplay(p)
}

func (p *Port) initTouchBus() error {
	bus, err := p.board.OpenTouchBus(p.cfg.Touch)
	if err != nil {
		return err
	}
	p.touchBus = bus
	return nil
}

func (p *Port) initTouchProbe() error {
	tp, err := p.touchBus.Probe(p.cfg.TouchAddr)
	if err != nil {
		return err
	}
	p.touch = tp
	return nil
}

func (p *Port) initInputBridge() error {
	return p.client.AttachInput(p)
}

func (p *Port) initTick() error {
	p.group.Go(func() error { return p.runTick(p.runCtx) })
	return nil
}

func (p *Port) initRenderTask() error {
	p.log.Info("render task",
		"prio", p.cfg.TaskPriority,
		"stack", p.cfg.TaskStackBytes,
		"core", p.cfg.TaskAffinity,
		"min", p.cfg.MinDelay,
		"max", p.cfg.MaxDelay)
	p.state.Store(int32(TaskIdle))
	p.group.Go(func() error { return p.runTask(p.runCtx) })
	return nil
}
