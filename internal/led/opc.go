package led

import (
	"fmt"
	"net"
	"sync"
	"time"
)

const opcSetPixels = 0

// OPC streams frames to an Open Pixel Control server such as fcserver. A
// failed write drops the connection; the next write dials again.
type OPC struct {
	mu      sync.Mutex
	addr    string
	channel uint8
	timeout time.Duration
	conn    net.Conn
	buf     []byte
}

func DialOPC(addr string, channel uint8) (*OPC, error) {
	o := &OPC{addr: addr, channel: channel, timeout: 2 * time.Second}
	if err := o.dial(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *OPC) dial() error {
	c, err := net.DialTimeout("tcp", o.addr, o.timeout)
	if err != nil {
		return fmt.Errorf("opc dial %s: %w", o.addr, err)
	}
	o.conn = c
	return nil
}

func (o *OPC) Write(rgb []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(rgb) > 0xffff {
		return fmt.Errorf("opc frame too long: %d bytes", len(rgb))
	}
	if o.conn == nil {
		if err := o.dial(); err != nil {
			return err
		}
	}
	o.buf = append(o.buf[:0], o.channel, opcSetPixels, byte(len(rgb)>>8), byte(len(rgb)))
	o.buf = append(o.buf, rgb...)
	_ = o.conn.SetWriteDeadline(time.Now().Add(o.timeout))
	if _, err := o.conn.Write(o.buf); err != nil {
		_ = o.conn.Close()
		o.conn = nil
		return fmt.Errorf("opc write: %w", err)
	}
	return nil
}

func (o *OPC) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.conn == nil {
		return nil
	}
	err := o.conn.Close()
	o.conn = nil
	return err
}

func (o *OPC) String() string { return "opc{" + o.addr + "}" }
