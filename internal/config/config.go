package config

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/funtimes-ledstrip/internal/sequence"
)

type SPI struct {
	Port    string `yaml:"port" env:"LEDSTRIP_SPI_PORT,overwrite"`         // "" picks the first port
	FreqKHz int    `yaml:"freq_khz" env:"LEDSTRIP_SPI_FREQ_KHZ,overwrite"` // e.g. 2500
}

type OPC struct {
	Addr    string `yaml:"addr" env:"LEDSTRIP_OPC_ADDR,overwrite"` // e.g. localhost:7890
	Channel int    `yaml:"channel" env:"LEDSTRIP_OPC_CHANNEL,overwrite"`
}

type PowerCfg struct {
	LimitAmps float64 `yaml:"limit_amps" env:"LEDSTRIP_POWER_LIMIT_AMPS,overwrite"`
	WhiteCap  float64 `yaml:"white_cap" env:"LEDSTRIP_POWER_WHITE_CAP,overwrite"`
	ChanMA    float64 `yaml:"chan_ma" env:"LEDSTRIP_POWER_CHAN_MA,overwrite"`
}

type HTTP struct {
	Addr string `yaml:"addr" env:"LEDSTRIP_HTTP_ADDR,overwrite"` // "" disables the server
}

type MQTT struct {
	Broker        string `yaml:"broker" env:"LEDSTRIP_MQTT_BROKER,overwrite"` // "" disables the bridge
	ClientID      string `yaml:"client_id" env:"LEDSTRIP_MQTT_CLIENT_ID,overwrite"`
	ControlTopic  string `yaml:"control_topic" env:"LEDSTRIP_MQTT_CONTROL_TOPIC,overwrite"`
	ResponseTopic string `yaml:"response_topic" env:"LEDSTRIP_MQTT_RESPONSE_TOPIC,overwrite"`
	QoS           int    `yaml:"qos" env:"LEDSTRIP_MQTT_QOS,overwrite"`
}

type Config struct {
	Driver       string  `yaml:"driver" env:"LEDSTRIP_DRIVER,overwrite"` // "sim" | "spi" | "console" | "opc" | "auto"
	LEDCount     int     `yaml:"led_count" env:"LEDSTRIP_LED_COUNT,overwrite"`
	Brightness   int     `yaml:"brightness" env:"LEDSTRIP_BRIGHTNESS,overwrite"`
	FPS          int     `yaml:"fps" env:"LEDSTRIP_FPS,overwrite"`
	Increment    float64 `yaml:"increment" env:"LEDSTRIP_INCREMENT,overwrite"`
	FadeStep     int     `yaml:"fade_step" env:"LEDSTRIP_FADE_STEP,overwrite"`
	Gamma        float64 `yaml:"gamma" env:"LEDSTRIP_GAMMA,overwrite"` // 1 is linear; 2.2 suits most WS281x
	StartPattern string  `yaml:"start_pattern" env:"LEDSTRIP_START_PATTERN,overwrite"`

	SPI      SPI              `yaml:"spi,omitempty"`
	OPC      OPC              `yaml:"opc,omitempty"`
	Power    PowerCfg         `yaml:"power"`
	HTTP     HTTP             `yaml:"http"`
	MQTT     MQTT             `yaml:"mqtt,omitempty"`
	Playlist sequence.Program `yaml:"playlist,omitempty"`
}

func Defaults() *Config {
	return &Config{
		Driver:     "sim",
		LEDCount:   300,
		Brightness: 255,
		FPS:        60,
		Increment:  1.0 / 60,
		FadeStep:   32,
		Gamma:      1,
		SPI:        SPI{FreqKHz: 2500},
		OPC:        OPC{Addr: "localhost:7890"},
		Power:      PowerCfg{ChanMA: 20},
		HTTP:       HTTP{Addr: ":8080"},
		MQTT: MQTT{
			ClientID:      "ledstrip",
			ControlTopic:  "ledstrip/control",
			ResponseTopic: "ledstrip/response",
			QoS:           1,
		},
	}
}

// Load reads path over the defaults.
func Load(path string) (*Config, error) {
	c := Defaults()
	if err := LoadInto(path, c); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadInto reads path over c. Fields absent from the file keep their value.
func LoadInto(path string, c *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// ApplyEnv overrides fields whose LEDSTRIP_* variable is set. A nil lookuper
// reads the process environment.
func ApplyEnv(ctx context.Context, c *Config, l envconfig.Lookuper) error {
	if l == nil {
		l = envconfig.OsLookuper()
	}
	if err := envconfig.ProcessWith(ctx, c, l); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	return nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Driver {
	case "sim", "spi", "console", "opc", "auto":
	default:
		errs = append(errs, fmt.Errorf("driver %q: want sim, spi, console, opc or auto", c.Driver))
	}
	if c.LEDCount <= 0 {
		errs = append(errs, fmt.Errorf("led_count %d: must be positive", c.LEDCount))
	}
	if c.Brightness < 0 || c.Brightness > 255 {
		errs = append(errs, fmt.Errorf("brightness %d: outside 0..255", c.Brightness))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps %d: must be positive", c.FPS))
	}
	if math.IsNaN(c.Increment) || c.Increment <= 0 || c.Increment >= 1 {
		errs = append(errs, fmt.Errorf("increment %v: outside (0,1)", c.Increment))
	}
	if math.IsNaN(c.Gamma) || c.Gamma <= 0 || c.Gamma > 5 {
		errs = append(errs, fmt.Errorf("gamma %v: outside (0,5]", c.Gamma))
	}
	if c.FadeStep <= 0 || c.FadeStep > 255 {
		errs = append(errs, fmt.Errorf("fade_step %d: outside 1..255", c.FadeStep))
	}
	if c.Driver == "opc" && c.OPC.Addr == "" {
		errs = append(errs, errors.New("opc.addr: required for the opc driver"))
	}
	if c.OPC.Channel < 0 || c.OPC.Channel > 255 {
		errs = append(errs, fmt.Errorf("opc.channel %d: outside 0..255", c.OPC.Channel))
	}
	if c.MQTT.Broker != "" && (c.MQTT.QoS < 0 || c.MQTT.QoS > 2) {
		errs = append(errs, fmt.Errorf("mqtt.qos %d: outside 0..2", c.MQTT.QoS))
	}
	if len(c.Playlist.Clips) > 0 {
		if err := c.Playlist.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("playlist: %w", err))
		}
	}
	return errors.Join(errs...)
}
