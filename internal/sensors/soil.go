package sensors

import (
	"context"
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"

	"github.com/purplexionist/gardenmon/internal/telemetry"
)

// ADS1115DefaultAddr is the converter address with ADDR tied to ground.
const ADS1115DefaultAddr = 0x48

const (
	// soilFullScale matches a probe powered from the 3.3V rail.
	soilFullScale = 3300 * physic.MilliVolt

	// soilSampleRate keeps the converter single-shot; soil moisture moves
	// on the order of minutes.
	soilSampleRate = 1 * physic.Hertz
)

// SoilMoisture reads a capacitive probe through one ADS1115 channel and
// derives the coarse 1..10 level from calibrated endpoints. Capacitive
// probes read lower when wet, so dry must be above wet.
type SoilMoisture struct {
	pin ads1x15.PinADC
	dry int
	wet int
}

// NewSoilMoisture configures channel on the ADS1115 at addr. dryRaw and
// wetRaw are the raw converter values in open air and in water.
func NewSoilMoisture(bus i2c.Bus, addr uint16, channel, dryRaw, wetRaw int) (*SoilMoisture, error) {
	adc, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: addr})
	if err != nil {
		return nil, fmt.Errorf("soil: ads1115 init: %w", err)
	}
	ch, err := soilChannel(channel)
	if err != nil {
		return nil, err
	}
	pin, err := adc.PinForChannel(ch, soilFullScale, soilSampleRate, ads1x15.SaveEnergy)
	if err != nil {
		return nil, fmt.Errorf("soil: ads1115 channel %d: %w", channel, err)
	}
	return &SoilMoisture{pin: pin, dry: dryRaw, wet: wetRaw}, nil
}

func soilChannel(n int) (ads1x15.Channel, error) {
	switch n {
	case 0:
		return ads1x15.Channel0, nil
	case 1:
		return ads1x15.Channel1, nil
	case 2:
		return ads1x15.Channel2, nil
	case 3:
		return ads1x15.Channel3, nil
	}
	return 0, fmt.Errorf("soil: channel must be 0-3, got %d", n)
}

func (s *SoilMoisture) Name() string {
	return "soil_moisture"
}

// Measure reads the converter once and returns the raw value together with
// the derived 1..10 level.
func (s *SoilMoisture) Measure(ctx context.Context) (raw, level int, err error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	sample, err := s.pin.Read()
	if err != nil {
		return 0, 0, fmt.Errorf("soil: read converter: %w", err)
	}
	raw = int(sample.Raw)
	return raw, MoistureLevel(raw, s.dry, s.wet), nil
}

// Collect fills the soil moisture fields of r.
func (s *SoilMoisture) Collect(ctx context.Context, r *telemetry.Reading) error {
	raw, level, err := s.Measure(ctx)
	if err != nil {
		return err
	}
	r.SoilMoistureVal = &raw
	r.SoilMoistureLevel = &level
	return nil
}

// Halt releases the converter.
func (s *SoilMoisture) Halt() error {
	return s.pin.Halt()
}

// MoistureLevel maps a raw converter value onto the 1..10 scale, 1 for bone
// dry and 10 for soaked. Values outside the calibrated range clamp to the
// nearest end, which also makes the mapping total when dry <= wet.
func MoistureLevel(raw, dry, wet int) int {
	if raw >= dry {
		return 1
	}
	if raw <= wet {
		return 10
	}
	frac := float64(dry-raw) / float64(dry-wet)
	return 1 + int(frac*9+0.5)
}
