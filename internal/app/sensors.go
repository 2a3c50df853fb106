package app

import (
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/purplexionist/gardenmon/internal/collector"
	"github.com/purplexionist/gardenmon/internal/config"
	"github.com/purplexionist/gardenmon/internal/sensors"
)

// buildSensors initializes every configured sensor in collection order. A
// sensor that cannot be initialized is logged and left out; the agent keeps
// running with whatever hardware it has. The returned bus is nil when I2C
// is unavailable and must be closed by the caller otherwise.
func buildSensors(cfg config.Config) ([]collector.Sensor, i2c.BusCloser) {
	out := []collector.Sensor{
		sensors.NewCPUTemp(cfg.CPUTempKey),
	}

	bus, err := openI2C(cfg.I2CBus)
	if err != nil {
		slog.Warn("i2c unavailable; continuing without i2c sensors", "error", err)
	} else {
		out = append(out,
			sensors.NewSHT31(bus, cfg.SHT31Addr),
			sensors.NewBH1750(bus, cfg.BH1750Addr),
		)
		soil, err := sensors.NewSoilMoisture(bus, cfg.ADS1115Addr, cfg.SoilChannel, cfg.SoilDryRaw, cfg.SoilWetRaw)
		if err != nil {
			slog.Warn("soil moisture init failed; continuing without it", "error", err)
		} else {
			out = append(out, soil)
		}
	}

	// The w1 probe needs no setup; absence shows up as a per-cycle error.
	out = append(out, sensors.NewDS18B20(cfg.W1DeviceID))

	for _, s := range out {
		slog.Info("sensor registered", "sensor", s.Name())
	}
	return out, bus
}

func openI2C(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", name, err)
	}
	return bus, nil
}
