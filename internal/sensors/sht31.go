package sensors

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/purplexionist/gardenmon/internal/telemetry"
)

// SHT31DefaultAddr is the sensor address with the ADDR pin pulled low.
const SHT31DefaultAddr = 0x44

const (
	// Single-shot measurement, high repeatability, no clock stretching.
	sht31CmdMeasureMSB = 0x24
	sht31CmdMeasureLSB = 0x00

	// A high repeatability conversion takes at most 15 ms per the
	// datasheet; the extra millisecond keeps marginal parts happy.
	sht31MeasureWait = 16 * time.Millisecond
)

// SHT31 reads ambient temperature and relative humidity over I2C using
// single-shot measurements.
type SHT31 struct {
	dev i2c.Dev

	// wait between triggering a conversion and reading it back.
	wait time.Duration
}

// NewSHT31 returns a driver for the sensor at addr on bus.
func NewSHT31(bus i2c.Bus, addr uint16) *SHT31 {
	return &SHT31{
		dev:  i2c.Dev{Bus: bus, Addr: addr},
		wait: sht31MeasureWait,
	}
}

func (s *SHT31) Name() string {
	return "sht31"
}

// Measure triggers one conversion and returns the ambient temperature in
// degrees Fahrenheit and the relative humidity in percent.
func (s *SHT31) Measure(ctx context.Context) (tempF, humidity float64, err error) {
	if err := s.dev.Tx([]byte{sht31CmdMeasureMSB, sht31CmdMeasureLSB}, nil); err != nil {
		return 0, 0, fmt.Errorf("sht31: trigger measurement: %w", err)
	}
	if err := sleep(ctx, s.wait); err != nil {
		return 0, 0, err
	}

	// Frame layout: tMSB tLSB tCRC hMSB hLSB hCRC.
	buf := make([]byte, 6)
	if err := s.dev.Tx(nil, buf); err != nil {
		return 0, 0, fmt.Errorf("sht31: read measurement: %w", err)
	}
	if c := sht31CRC(buf[0:2]); c != buf[2] {
		return 0, 0, fmt.Errorf("sht31: temperature crc mismatch in frame %s", bytesToHex(buf))
	}
	if c := sht31CRC(buf[3:5]); c != buf[5] {
		return 0, 0, fmt.Errorf("sht31: humidity crc mismatch in frame %s", bytesToHex(buf))
	}

	rawT := uint16(buf[0])<<8 | uint16(buf[1])
	rawH := uint16(buf[3])<<8 | uint16(buf[4])

	tempC := -45.0 + 175.0*float64(rawT)/65535.0
	humidity = 100.0 * float64(rawH) / 65535.0
	// Saturated sensors can report marginally outside the physical range.
	humidity = min(max(humidity, 0), 100)

	return CToF(tempC), humidity, nil
}

// Collect fills the ambient temperature and humidity fields of r.
func (s *SHT31) Collect(ctx context.Context, r *telemetry.Reading) error {
	t, h, err := s.Measure(ctx)
	if err != nil {
		return err
	}
	r.AmbientTempF = &t
	r.AmbientHumidity = &h
	return nil
}

// sht31CRC is the SHT3x checksum over a 2-byte word: CRC-8 with polynomial
// 0x31 and initial value 0xFF.
func sht31CRC(data []byte) byte {
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
