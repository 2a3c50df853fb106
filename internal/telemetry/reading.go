// Package telemetry defines the environmental reading record shared by the
// collector, storage, MQTT and HTTP layers.
package telemetry

import (
	"fmt"
	"strings"
	"time"
)

// Reading is one snapshot of every monitored quantity. Field names follow the
// environmental_data columns; nil means the sensor could not be read this
// cycle and the column stays NULL.
type Reading struct {
	CPUTempF          *float64  `json:"cpu_temp_f,omitempty"`
	AmbientLightLux   *float64  `json:"ambient_light_lx,omitempty"`
	SoilMoistureVal   *int      `json:"soil_moisture_val,omitempty"`
	SoilMoistureLevel *int      `json:"soil_moisture_level,omitempty"`
	SoilTempF         *float64  `json:"soil_temp_f,omitempty"`
	AmbientTempF      *float64  `json:"ambient_temp_f,omitempty"`
	AmbientHumidity   *float64  `json:"ambient_humidity,omitempty"`
	CollectedAt       time.Time `json:"collected_at,omitzero"`

	// InsertTime is set by the database on insert; it is only populated on
	// readings loaded back out of storage.
	InsertTime time.Time `json:"insert_time,omitzero"`
}

// Empty reports whether no sensor produced a value this cycle.
func (r Reading) Empty() bool {
	return r.CPUTempF == nil &&
		r.AmbientLightLux == nil &&
		r.SoilMoistureVal == nil &&
		r.SoilMoistureLevel == nil &&
		r.SoilTempF == nil &&
		r.AmbientTempF == nil &&
		r.AmbientHumidity == nil
}

// Validate checks that every populated field is physically plausible. A
// reading that fails validation must not be persisted or published.
func (r Reading) Validate() error {
	if r.AmbientHumidity != nil {
		if *r.AmbientHumidity < 0 || *r.AmbientHumidity > 100 {
			return fmt.Errorf("ambient_humidity out of range: %f (must be 0-100)", *r.AmbientHumidity)
		}
	}
	if r.AmbientLightLux != nil && *r.AmbientLightLux < 0 {
		return fmt.Errorf("ambient_light_lx must be non-negative: %f", *r.AmbientLightLux)
	}
	if r.SoilMoistureLevel != nil {
		if *r.SoilMoistureLevel < 1 || *r.SoilMoistureLevel > 10 {
			return fmt.Errorf("soil_moisture_level out of range: %d (must be 1-10)", *r.SoilMoistureLevel)
		}
	}
	return nil
}

// String renders the reading for log lines and the -once mode, skipping
// fields that were not read.
func (r Reading) String() string {
	var b strings.Builder
	part := func(name, format string, v any) {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, name+"="+format, v)
	}
	if r.CPUTempF != nil {
		part("cpu_temp_f", "%.1f", *r.CPUTempF)
	}
	if r.AmbientLightLux != nil {
		part("ambient_light_lx", "%.1f", *r.AmbientLightLux)
	}
	if r.SoilMoistureVal != nil {
		part("soil_moisture_val", "%d", *r.SoilMoistureVal)
	}
	if r.SoilMoistureLevel != nil {
		part("soil_moisture_level", "%d", *r.SoilMoistureLevel)
	}
	if r.SoilTempF != nil {
		part("soil_temp_f", "%.1f", *r.SoilTempF)
	}
	if r.AmbientTempF != nil {
		part("ambient_temp_f", "%.1f", *r.AmbientTempF)
	}
	if r.AmbientHumidity != nil {
		part("ambient_humidity", "%.1f", *r.AmbientHumidity)
	}
	if b.Len() == 0 {
		return "(no readings)"
	}
	return b.String()
}
