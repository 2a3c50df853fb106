package sensors

import (
	"context"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v4/sensors"

	"github.com/purplexionist/gardenmon/internal/telemetry"
)

// CPUTemp reads the host CPU temperature from the kernel thermal zones. On
// a Raspberry Pi the zone is named cpu_thermal, so matching on a key
// substring covers the Pi and most other SBCs.
type CPUTemp struct {
	key string

	// temperatures is swapped out in tests.
	temperatures func(ctx context.Context) ([]sensors.TemperatureStat, error)
}

// NewCPUTemp returns a reader that picks the first thermal sensor whose key
// contains the given substring (case insensitive). An empty key matches
// "cpu".
func NewCPUTemp(key string) *CPUTemp {
	if key == "" {
		key = "cpu"
	}
	return &CPUTemp{
		key:          strings.ToLower(key),
		temperatures: sensors.TemperaturesWithContext,
	}
}

func (c *CPUTemp) Name() string {
	return "cpu_temp"
}

// Measure returns the CPU temperature in degrees Fahrenheit.
func (c *CPUTemp) Measure(ctx context.Context) (float64, error) {
	stats, err := c.temperatures(ctx)
	if err != nil {
		return 0, fmt.Errorf("cpu temperature: %w", err)
	}
	for _, st := range stats {
		if strings.Contains(strings.ToLower(st.SensorKey), c.key) {
			return CToF(st.Temperature), nil
		}
	}
	return 0, fmt.Errorf("cpu temperature: no sensor key matches %q (%d sensors present)", c.key, len(stats))
}

// Collect fills the CPU temperature field of r.
func (c *CPUTemp) Collect(ctx context.Context, r *telemetry.Reading) error {
	t, err := c.Measure(ctx)
	if err != nil {
		return err
	}
	r.CPUTempF = &t
	return nil
}
