package led

import (
	"fmt"
	"image"
	"image/color"

	"periph.io/x/conn/v3/display"
	"periph.io/x/extra/devices/screen"
)

// Console draws the strip as a row of colored cells on the terminal.
type Console struct {
	drawer display.Drawer
	img    *image.NRGBA
}

func NewConsole(count int) *Console {
	return &Console{
		drawer: screen.New(count),
		img:    image.NewNRGBA(image.Rect(0, 0, count, 1)),
	}
}

func (c *Console) Write(rgb []byte) error {
	w := c.img.Bounds().Dx()
	for i := 0; i < w && 3*i+2 < len(rgb); i++ {
		c.img.SetNRGBA(i, 0, color.NRGBA{R: rgb[3*i], G: rgb[3*i+1], B: rgb[3*i+2], A: 255})
	}
	if err := c.drawer.Draw(c.drawer.Bounds(), c.img, image.Point{}); err != nil {
		return err
	}
	fmt.Printf("\n")
	return nil
}

func (c *Console) Close() error { return c.drawer.Halt() }

func (c *Console) String() string { return "console" }
