package sensors

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/purplexionist/gardenmon/internal/telemetry"
)

// BH1750DefaultAddr is the sensor address with the ADDR pin pulled low.
const BH1750DefaultAddr = 0x23

const (
	bh1750CmdPowerOn        = 0x01
	bh1750CmdOneTimeHighRes = 0x20

	// High resolution mode converts in at most 180 ms.
	bh1750MeasureWait = 180 * time.Millisecond

	// Counts per lux at the default measurement accuracy.
	bh1750Resolution = 1.2
)

// BH1750 reads ambient light over I2C using one-time high resolution
// measurements; the device powers itself down after each conversion.
type BH1750 struct {
	dev i2c.Dev

	// wait between starting a conversion and reading it back.
	wait time.Duration
}

// NewBH1750 returns a driver for the sensor at addr on bus.
func NewBH1750(bus i2c.Bus, addr uint16) *BH1750 {
	return &BH1750{
		dev:  i2c.Dev{Bus: bus, Addr: addr},
		wait: bh1750MeasureWait,
	}
}

func (b *BH1750) Name() string {
	return "bh1750"
}

// Measure performs one conversion and returns the ambient light in lux.
func (b *BH1750) Measure(ctx context.Context) (float64, error) {
	if err := b.dev.Tx([]byte{bh1750CmdPowerOn}, nil); err != nil {
		return 0, fmt.Errorf("bh1750: power on: %w", err)
	}
	if err := b.dev.Tx([]byte{bh1750CmdOneTimeHighRes}, nil); err != nil {
		return 0, fmt.Errorf("bh1750: start measurement: %w", err)
	}
	if err := sleep(ctx, b.wait); err != nil {
		return 0, err
	}

	buf := make([]byte, 2)
	if err := b.dev.Tx(nil, buf); err != nil {
		return 0, fmt.Errorf("bh1750: read measurement: %w", err)
	}
	counts := uint16(buf[0])<<8 | uint16(buf[1])
	return float64(counts) / bh1750Resolution, nil
}

// Collect fills the ambient light field of r.
func (b *BH1750) Collect(ctx context.Context, r *telemetry.Reading) error {
	lx, err := b.Measure(ctx)
	if err != nil {
		return err
	}
	r.AmbientLightLux = &lx
	return nil
}
