package telemetry

import (
	"strings"
	"testing"
	"time"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func TestReading_Empty(t *testing.T) {
	if !(Reading{CollectedAt: time.Now()}).Empty() {
		t.Error("Empty() = false for reading with no sensor values, want true")
	}

	r := Reading{SoilMoistureVal: iptr(14250)}
	if r.Empty() {
		t.Error("Empty() = true for reading with a sensor value, want false")
	}

	r = Reading{AmbientHumidity: fptr(41.2)}
	if r.Empty() {
		t.Error("Empty() = true for reading with only humidity, want false")
	}
}

func TestReading_Validate(t *testing.T) {
	tests := []struct {
		name    string
		reading Reading
		wantErr string
	}{
		{name: "empty reading is valid", reading: Reading{}},
		{
			name: "full plausible reading",
			reading: Reading{
				CPUTempF:          fptr(110.3),
				AmbientLightLux:   fptr(5420.0),
				SoilMoistureVal:   iptr(17250),
				SoilMoistureLevel: iptr(6),
				SoilTempF:         fptr(61.7),
				AmbientTempF:      fptr(72.5),
				AmbientHumidity:   fptr(48.9),
			},
		},
		{
			name:    "humidity below zero",
			reading: Reading{AmbientHumidity: fptr(-0.1)},
			wantErr: "ambient_humidity",
		},
		{
			name:    "humidity above 100",
			reading: Reading{AmbientHumidity: fptr(100.5)},
			wantErr: "ambient_humidity",
		},
		{
			name:    "negative lux",
			reading: Reading{AmbientLightLux: fptr(-3)},
			wantErr: "ambient_light_lx",
		},
		{
			name:    "moisture level zero",
			reading: Reading{SoilMoistureLevel: iptr(0)},
			wantErr: "soil_moisture_level",
		},
		{
			name:    "moisture level above 10",
			reading: Reading{SoilMoistureLevel: iptr(11)},
			wantErr: "soil_moisture_level",
		},
		{
			name:    "humidity exactly 0 and 100 bounds",
			reading: Reading{AmbientHumidity: fptr(100)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.reading.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want it to mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestReading_String(t *testing.T) {
	if got := (Reading{}).String(); got != "(no readings)" {
		t.Errorf("String() on empty reading = %q, want %q", got, "(no readings)")
	}

	r := Reading{
		SoilMoistureVal:   iptr(15000),
		SoilMoistureLevel: iptr(7),
		AmbientTempF:      fptr(68.42),
	}
	got := r.String()
	for _, want := range []string{"soil_moisture_val=15000", "soil_moisture_level=7", "ambient_temp_f=68.4"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, want it to contain %q", got, want)
		}
	}
	if strings.Contains(got, "cpu_temp_f") {
		t.Errorf("String() = %q, should not mention unread cpu_temp_f", got)
	}
}
