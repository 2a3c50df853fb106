package sensors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/purplexionist/gardenmon/internal/telemetry"
)

// w1Dir is where the kernel w1-therm driver exposes 1-Wire slaves.
const w1Dir = "/sys/bus/w1/devices"

// ds18b20FamilyPrefix is the 1-Wire family code of the DS18B20.
const ds18b20FamilyPrefix = "28-"

// ds18b20PowerOnMilliC is reported after a reset before any conversion
// completed, typically a symptom of parasitic power problems.
const ds18b20PowerOnMilliC = 85000

// DS18B20 reads a 1-Wire soil temperature probe through the kernel w1
// sysfs interface (w1-gpio and w1-therm must be loaded).
type DS18B20 struct {
	// dir is the w1 devices directory, overridable in tests.
	dir string

	// deviceID pins the probe, e.g. "28-0316a2c5b1ff". Empty picks the
	// first probe found on the bus.
	deviceID string
}

// NewDS18B20 returns a reader for the probe with the given w1 device ID. An
// empty ID discovers the first DS18B20 on the bus.
func NewDS18B20(deviceID string) *DS18B20 {
	return &DS18B20{dir: w1Dir, deviceID: deviceID}
}

func (d *DS18B20) Name() string {
	return "ds18b20"
}

// Measure reads one conversion and returns the soil temperature in degrees
// Fahrenheit.
func (d *DS18B20) Measure(ctx context.Context) (float64, error) {
	id := d.deviceID
	if id == "" {
		var err error
		if id, err = d.discover(); err != nil {
			return 0, err
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	// Reading w1_slave blocks while the kernel drives the conversion,
	// around 750 ms at full resolution.
	path := filepath.Join(d.dir, id, "w1_slave")
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("ds18b20: read %s: %w", path, err)
	}
	milliC, err := parseW1Slave(string(data))
	if err != nil {
		return 0, fmt.Errorf("ds18b20: device %s: %w", id, err)
	}
	return CToF(float64(milliC) / 1000.0), nil
}

// Collect fills the soil temperature field of r.
func (d *DS18B20) Collect(ctx context.Context, r *telemetry.Reading) error {
	t, err := d.Measure(ctx)
	if err != nil {
		return err
	}
	r.SoilTempF = &t
	return nil
}

func (d *DS18B20) discover() (string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return "", fmt.Errorf("ds18b20: list %s: %w", d.dir, err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ds18b20FamilyPrefix) {
			return e.Name(), nil
		}
	}
	return "", fmt.Errorf("ds18b20: no %s* device under %s", ds18b20FamilyPrefix, d.dir)
}

// parseW1Slave extracts the temperature in milli-degrees Celsius from the
// two-line w1_slave format:
//
//	4b 01 4b 46 7f ff 0c 10 d8 : crc=d8 YES
//	4b 01 4b 46 7f ff 0c 10 d8 t=20687
//
// The first line must end in YES (CRC over the scratchpad passed) and the
// second carries the value after t=.
func parseW1Slave(data string) (int, error) {
	lines := strings.Split(strings.TrimSpace(data), "\n")
	if len(lines) < 2 {
		return 0, fmt.Errorf("short w1_slave output (%d lines)", len(lines))
	}
	if !strings.HasSuffix(strings.TrimSpace(lines[0]), "YES") {
		return 0, fmt.Errorf("crc check failed: %s", strings.TrimSpace(lines[0]))
	}
	_, raw, ok := strings.Cut(lines[1], "t=")
	if !ok {
		return 0, fmt.Errorf("no t= field: %s", strings.TrimSpace(lines[1]))
	}
	milliC, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("bad t= value: %w", err)
	}
	if milliC == ds18b20PowerOnMilliC {
		return 0, fmt.Errorf("power-on reset value %d, conversion did not run", milliC)
	}
	return milliC, nil
}
