package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/funtimes-ledstrip/internal/app"
	"github.com/coreman2200/funtimes-ledstrip/internal/catalog"
	"github.com/coreman2200/funtimes-ledstrip/internal/config"
	"github.com/coreman2200/funtimes-ledstrip/internal/led"
)

func main() {
	cfg := config.Defaults()

	// ---- Flags (config file, then environment, override them) ----
	flag.StringVar(&cfg.Driver, "driver", cfg.Driver, "driver: sim | spi | console | opc | auto")
	flag.IntVar(&cfg.LEDCount, "count", cfg.LEDCount, "number of LEDs on the strip")
	flag.IntVar(&cfg.Brightness, "brightness", cfg.Brightness, "initial brightness 0..255")
	flag.IntVar(&cfg.FPS, "fps", cfg.FPS, "target frames per second")
	flag.Float64Var(&cfg.Increment, "increment", cfg.Increment, "progress added per frame, in (0,1)")
	flag.StringVar(&cfg.StartPattern, "pattern", cfg.StartPattern, "pattern to show at startup")
	flag.StringVar(&cfg.SPI.Port, "spi", cfg.SPI.Port, "SPI port name (empty for the first one)")
	flag.StringVar(&cfg.OPC.Addr, "opc", cfg.OPC.Addr, "OPC server address")
	flag.StringVar(&cfg.HTTP.Addr, "addr", cfg.HTTP.Addr, "HTTP listen address (empty disables)")
	flag.StringVar(&cfg.MQTT.Broker, "mqtt", cfg.MQTT.Broker, "MQTT broker URL (empty disables)")
	var (
		configPath  = flag.String("config", "ledstrip.yaml", "path to the YAML config")
		writeConfig = flag.Bool("write-config", false, "write the effective config to -config and exit")
		listOnly    = flag.Bool("list", false, "print the pattern names and exit")
		level       = flag.String("log-level", "info", "log level: debug | info | warn | error")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	if lvl, err := zerolog.ParseLevel(*level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		log.Warn().Str("level", *level).Msg("unknown log level; using info")
	}

	if *listOnly {
		for _, name := range catalog.Default().List() {
			fmt.Println(name)
		}
		return
	}

	// ---- Config file, then environment ----
	if err := config.LoadInto(*configPath, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Info().Str("path", *configPath).Msg("no config file; using flags")
		} else {
			log.Fatal().Err(err).Str("path", *configPath).Msg("config load failed")
		}
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := config.ApplyEnv(ctx, cfg, nil); err != nil {
		log.Fatal().Err(err).Msg("bad environment override")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	if *writeConfig {
		if err := config.Save(*configPath, cfg); err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("config save failed")
		}
		log.Info().Str("path", *configPath).Msg("config written")
		return
	}

	// ---- Driver ----
	sink, err := led.Open(cfg.Driver, led.Options{
		Count:      cfg.LEDCount,
		SPIPort:    cfg.SPI.Port,
		SPIFreq:    physic.Frequency(cfg.SPI.FreqKHz) * physic.KiloHertz,
		OPCAddr:    cfg.OPC.Addr,
		OPCChannel: uint8(cfg.OPC.Channel),
	})
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Driver).Msg("cannot open LED driver")
	}
	logDriverReady(log.Logger, cfg)

	core, err := app.InitCore(cfg, sink, log.Logger)
	if err != nil {
		_ = sink.Close()
		log.Fatal().Err(err).Msg("init failed")
	}

	// Run returns once the signal has cancelled ctx and the strip has faded out.
	if err := core.Run(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown")
		os.Exit(1)
	}
	log.Info().Msg("bye")
}

func logDriverReady(l zerolog.Logger, cfg *config.Config) {
	l.Info().Str("driver", cfg.Driver).Int("count", cfg.LEDCount).Msg("driver ready")
}
