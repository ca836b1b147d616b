package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-ledstrip/internal/command"
	"github.com/coreman2200/funtimes-ledstrip/internal/sequence"
)

// Conductor plays a sequence program by sending commands to the render loop.
type Conductor struct {
	Seq *sequence.SafePlayer

	ch      *command.Channel
	log     zerolog.Logger
	ctx     context.Context
	timeout time.Duration
}

func NewConductor(ch *command.Channel, log zerolog.Logger) *Conductor {
	c := &Conductor{ch: ch, log: log, ctx: context.Background(), timeout: time.Second}
	c.Seq = sequence.NewSafePlayer(sequence.Hooks{
		SelectPattern: func(name string) { c.send(command.SelectPattern{Name: name}) },
		SetBrightness: func(v int) { c.send(command.SetBrightness{Value: v}) },
	})
	return c
}

// Load validates prog and rewinds the player. Playback begins in Run.
func (c *Conductor) Load(prog sequence.Program) error {
	var err error
	c.Seq.With(func(p *sequence.Player) { err = p.Load(prog) })
	return err
}

func (c *Conductor) send(req command.Request) {
	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()
	resp, err := c.ch.Send(ctx, req)
	if err == nil {
		err = resp.Err()
	}
	if err != nil && !errors.Is(err, command.ErrClosed) {
		c.log.Warn().Err(err).Str("command", string(req.Kind())).Msg("playlist command failed")
	}
}

// Run starts the loaded program and advances it at fps until ctx is done.
// Hooks fire on this goroutine.
func (c *Conductor) Run(ctx context.Context, fps int) {
	if fps <= 0 {
		fps = 60
	}
	c.ctx = ctx
	dt := time.Second / time.Duration(fps)
	ticker := time.NewTicker(dt)
	defer ticker.Stop()
	c.Seq.With(func(p *sequence.Player) { p.Start() })
	for {
		select {
		case <-ctx.Done():
			c.Seq.With(func(p *sequence.Player) { p.Stop() })
			return
		case <-ticker.C:
			c.Seq.With(func(p *sequence.Player) { p.Tick(dt.Seconds()) })
		}
	}
}
