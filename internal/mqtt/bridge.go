// Package mqtt bridges a broker topic onto the command channel.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-ledstrip/internal/command"
	"github.com/coreman2200/funtimes-ledstrip/internal/config"
)

const subscribeTimeout = 5 * time.Second

// Client is the part of paho.Client the bridge uses.
type Client interface {
	Subscribe(topic string, qos byte, cb paho.MessageHandler) paho.Token
	Unsubscribe(topics ...string) paho.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Connect dials the broker named in cfg.
func Connect(cfg config.MQTT, log zerolog.Logger) (paho.Client, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn().Err(err).Msg("mqtt connection lost")
		}).
		SetOnConnectHandler(func(paho.Client) {
			log.Info().Str("broker", cfg.Broker).Msg("mqtt connected")
		})
	client := paho.NewClient(opts)
	t := client.Connect()
	if !t.WaitTimeout(subscribeTimeout) {
		return nil, fmt.Errorf("mqtt connect %s: timeout", cfg.Broker)
	}
	if err := t.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}
	return client, nil
}

// Bridge forwards JSON commands from the control topic into a command
// channel and publishes each reply on the response topic.
type Bridge struct {
	cfg     config.MQTT
	client  Client
	ch      *command.Channel
	log     zerolog.Logger
	timeout time.Duration
}

func NewBridge(cfg config.MQTT, client Client, ch *command.Channel, log zerolog.Logger) *Bridge {
	return &Bridge{cfg: cfg, client: client, ch: ch, log: log, timeout: 2 * time.Second}
}

// Start subscribes to the control topic. Messages are handled until ctx is
// done, after which the bridge unsubscribes.
func (b *Bridge) Start(ctx context.Context) error {
	b.log.Info().Str("topic", b.cfg.ControlTopic).Int("qos", b.cfg.QoS).Msg("subscribing to control topic")
	t := b.client.Subscribe(b.cfg.ControlTopic, byte(b.cfg.QoS), func(_ paho.Client, msg paho.Message) {
		b.Handle(ctx, msg.Payload())
	})
	if !t.WaitTimeout(subscribeTimeout) {
		return fmt.Errorf("subscribe %s: timeout", b.cfg.ControlTopic)
	}
	if err := t.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.cfg.ControlTopic, err)
	}

	go func() {
		<-ctx.Done()
		b.client.Unsubscribe(b.cfg.ControlTopic).WaitTimeout(time.Second)
	}()
	return nil
}

// Handle runs one control payload and publishes the reply.
func (b *Bridge) Handle(ctx context.Context, payload []byte) {
	reply := b.dispatch(ctx, payload)
	out, err := json.Marshal(reply)
	if err != nil {
		b.log.Error().Err(err).Msg("encode reply")
		return
	}
	t := b.client.Publish(b.cfg.ResponseTopic, byte(b.cfg.QoS), false, out)
	go func() {
		_ = t.Wait()
		if err := t.Error(); err != nil {
			b.log.Warn().Err(err).Str("topic", b.cfg.ResponseTopic).Msg("publish reply")
		}
	}()
}

func (b *Bridge) dispatch(ctx context.Context, payload []byte) command.Reply {
	m, err := command.Decode(payload)
	if err != nil {
		b.log.Warn().Err(err).Msg("bad control message")
		return command.NewReply(m, command.Fail(err))
	}
	req, err := m.Request()
	if err != nil {
		return command.NewReply(m, command.Fail(err))
	}
	b.log.Debug().Str("command", string(m.Command)).Msg("control command received")

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	resp, err := b.ch.Send(ctx, req)
	if err != nil {
		return command.NewReply(m, command.Fail(err))
	}
	return command.NewReply(m, resp)
}
