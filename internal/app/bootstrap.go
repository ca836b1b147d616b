// Package app wires the strip, render loop and control surfaces together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-ledstrip/internal/catalog"
	"github.com/coreman2200/funtimes-ledstrip/internal/command"
	"github.com/coreman2200/funtimes-ledstrip/internal/config"
	"github.com/coreman2200/funtimes-ledstrip/internal/controller"
	diag "github.com/coreman2200/funtimes-ledstrip/internal/diagnostics"
	"github.com/coreman2200/funtimes-ledstrip/internal/led"
	"github.com/coreman2200/funtimes-ledstrip/internal/mqtt"
	"github.com/coreman2200/funtimes-ledstrip/internal/ws"
)

type Core struct {
	Strip     *led.Strip
	Ctl       *controller.Controller
	Ch        *command.Channel
	Server    *ws.Server
	Conductor *Conductor

	cfg *config.Config
	log zerolog.Logger
}

// InitCore builds every component for cfg on top of sink. Nothing runs until Run.
func InitCore(cfg *config.Config, sink led.Sink, log zerolog.Logger) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	limiter := led.NewLimiter(cfg.Power.LimitAmps, cfg.Power.WhiteCap, cfg.Power.ChanMA)
	strip, err := led.NewStrip(cfg.LEDCount, sink,
		led.WithBrightness(uint8(cfg.Brightness)),
		led.WithGamma(led.NewGamma(cfg.Gamma)),
		led.WithLimiter(limiter))
	if err != nil {
		return nil, err
	}

	c := &Core{Strip: strip, Ch: command.NewChannel(8), cfg: cfg, log: log}
	ctl, err := controller.New(strip, catalog.Default(), c.Ch,
		controller.WithLogger(log.With().Str("component", "controller").Logger()),
		controller.WithFPS(cfg.FPS),
		controller.WithIncrement(cfg.Increment),
		controller.WithFadeStep(uint8(cfg.FadeStep)),
		controller.WithStartPattern(cfg.StartPattern),
		controller.WithFrameObserver(func(id uint64) { c.Server.PublishFrame(id, strip.Frame()) }),
		controller.WithEventObserver(func(d diag.Diagnostic) { c.Server.PublishDiag(d) }),
	)
	if err != nil {
		return nil, err
	}
	c.Ctl = ctl
	c.Server = ws.New(c.Ch, ctl.Status, log.With().Str("component", "ws").Logger())

	if len(cfg.Playlist.Clips) > 0 {
		c.Conductor = NewConductor(c.Ch, log.With().Str("component", "playlist").Logger())
		if err := c.Conductor.Load(cfg.Playlist); err != nil {
			return nil, fmt.Errorf("playlist: %w", err)
		}
	}
	return c, nil
}

// Run serves every configured surface and renders until ctx is done. It
// returns after the strip has faded out and the sink is closed.
func (c *Core) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Server.Run(ctx)
	}()

	if addr := c.cfg.HTTP.Addr; addr != "" {
		srv := &http.Server{Addr: addr, Handler: c.Server.Handler(), ReadHeaderTimeout: 5 * time.Second}
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.log.Info().Str("addr", addr).Msg("http listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				c.log.Error().Err(err).Msg("http server")
			}
		}()
		go func() {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	if c.cfg.MQTT.Broker != "" {
		c.startMQTT(ctx)
	}

	if c.Conductor != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Conductor.Run(ctx, c.cfg.FPS)
		}()
	}

	err := c.Ctl.Run(ctx)
	if cerr := c.Strip.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close strip: %w", cerr)
	}
	return err
}

// startMQTT connects the bridge. A broker that cannot be reached is logged and
// skipped; the strip keeps running.
func (c *Core) startMQTT(ctx context.Context) {
	log := c.log.With().Str("component", "mqtt").Logger()
	client, err := mqtt.Connect(c.cfg.MQTT, log)
	if err != nil {
		log.Error().Err(err).Msg("mqtt disabled")
		return
	}
	bridge := mqtt.NewBridge(c.cfg.MQTT, client, c.Ch, log)
	if err := bridge.Start(ctx); err != nil {
		log.Error().Err(err).Msg("mqtt disabled")
		client.Disconnect(250)
		return
	}
	go func() {
		<-ctx.Done()
		client.Disconnect(250)
	}()
}
