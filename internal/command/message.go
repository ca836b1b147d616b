package command

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/coreman2200/funtimes-ledstrip/internal/ledcolor"
)

// Message is the JSON form of a request used by the websocket and MQTT
// transports.
type Message struct {
	ID      string          `json:"id,omitempty"`
	Command Kind            `json:"command"`
	Name    string          `json:"name,omitempty"`
	Color   *ledcolor.Color `json:"color,omitempty"`
	Value   *float64        `json:"value,omitempty"`
}

// Reply is the JSON form of a Response.
type Reply struct {
	ID         string `json:"id"`
	CommandAck Kind   `json:"command_ack"`
	RequestID  string `json:"request_id,omitempty"`
	Status     Status `json:"status"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
}

func Decode(b []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return Message{}, fmt.Errorf("decode command: %w", err)
	}
	return m, nil
}

// Request converts the message into a typed request.
func (m Message) Request() (Request, error) {
	switch m.Command {
	case KindSelectPattern:
		return SelectPattern{Name: m.Name}, nil
	case KindSetColor:
		if m.Color == nil {
			return nil, &ConfigError{Field: "color", Reason: "missing"}
		}
		return SetColor{Color: *m.Color}, nil
	case KindSetBrightness:
		v, err := m.value("brightness")
		if err != nil {
			return nil, err
		}
		if v != math.Trunc(v) {
			return nil, &ConfigError{Field: "brightness", Reason: fmt.Sprintf("%v is not an integer", v)}
		}
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, &ConfigError{Field: "brightness", Reason: fmt.Sprintf("%v outside 0..255", v)}
		}
		return SetBrightness{Value: int(v)}, nil
	case KindSetProgressIncrement:
		v, err := m.value("increment")
		if err != nil {
			return nil, err
		}
		return SetProgressIncrement{Value: v}, nil
	case KindGetBrightness:
		return GetBrightness{}, nil
	case KindGetIncrement:
		return GetIncrement{}, nil
	case KindListPatterns:
		return ListPatterns{}, nil
	case KindGetStatus:
		return GetStatus{}, nil
	case "":
		return nil, &ConfigError{Field: "command", Reason: "missing"}
	}
	return nil, &ConfigError{Field: "command", Reason: fmt.Sprintf("unknown command %q", m.Command)}
}

func (m Message) value(field string) (float64, error) {
	if m.Value == nil {
		return 0, &ConfigError{Field: field, Reason: "missing value"}
	}
	return *m.Value, nil
}

// Encode is the inverse of Message.Request.
func Encode(req Request) Message {
	m := Message{Command: req.Kind()}
	switch r := req.(type) {
	case SelectPattern:
		m.Name = r.Name
	case SetColor:
		c := r.Color
		m.Color = &c
	case SetBrightness:
		v := float64(r.Value)
		m.Value = &v
	case SetProgressIncrement:
		v := r.Value
		m.Value = &v
	}
	return m
}

// NewReply pairs a response with the message it answers.
func NewReply(m Message, r Response) Reply {
	return Reply{
		ID:         r.ID.String(),
		CommandAck: m.Command,
		RequestID:  m.ID,
		Status:     r.Status,
		Data:       r.Data,
		Error:      r.Error,
	}
}
