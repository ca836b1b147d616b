package led

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"
)

// DefaultNRZFreq suits WS2812 strips driven over SPI.
const DefaultNRZFreq = 2500 * physic.KiloHertz

// NRZ drives a WS281x strip through an SPI port.
type NRZ struct {
	dev  *nrzled.Dev
	port spi.PortCloser
}

// NewNRZ wraps an already open port. The port is closed with the sink.
func NewNRZ(port spi.PortCloser, count int, freq physic.Frequency) (*NRZ, error) {
	if freq <= 0 {
		freq = DefaultNRZFreq
	}
	dev, err := nrzled.NewSPI(port, &nrzled.Opts{NumPixels: count, Channels: 3, Freq: freq})
	if err != nil {
		return nil, fmt.Errorf("nrzled: %w", err)
	}
	return &NRZ{dev: dev, port: port}, nil
}

// OpenNRZ initializes the host drivers and opens the named SPI port. An empty
// name picks the first port available.
func OpenNRZ(name string, count int, freq physic.Frequency) (*NRZ, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	p, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", name, err)
	}
	n, err := NewNRZ(p, count, freq)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	return n, nil
}

func (n *NRZ) Write(rgb []byte) error {
	_, err := n.dev.Write(rgb)
	return err
}

func (n *NRZ) Close() error {
	herr := n.dev.Halt()
	if err := n.port.Close(); err != nil {
		return err
	}
	return herr
}

func (n *NRZ) String() string { return n.dev.String() }
