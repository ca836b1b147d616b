package led

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
)

type Options struct {
	Count      int
	SPIPort    string
	SPIFreq    physic.Frequency
	OPCAddr    string
	OPCChannel uint8
}

// Open returns the sink named by kind: "sim", "spi", "console", "opc" or
// "auto". Auto tries SPI and falls back to the console.
func Open(kind string, o Options) (Sink, error) {
	if o.Count <= 0 {
		return nil, fmt.Errorf("invalid LED count: %d", o.Count)
	}
	switch kind {
	case "", "sim":
		return &Sim{}, nil
	case "spi":
		return OpenNRZ(o.SPIPort, o.Count, o.SPIFreq)
	case "console":
		return NewConsole(o.Count), nil
	case "opc":
		return DialOPC(o.OPCAddr, o.OPCChannel)
	case "auto":
		if n, err := OpenNRZ(o.SPIPort, o.Count, o.SPIFreq); err == nil {
			return n, nil
		}
		return NewConsole(o.Count), nil
	}
	return nil, fmt.Errorf("unknown driver %q", kind)
}
