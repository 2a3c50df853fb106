package sensors

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/purplexionist/gardenmon/internal/telemetry"
)

const w1GoodOutput = "4b 01 4b 46 7f ff 0c 10 d8 : crc=d8 YES\n" +
	"4b 01 4b 46 7f ff 0c 10 d8 t=20687\n"

func writeW1Device(t *testing.T, dir, id, contents string) {
	t.Helper()
	devDir := filepath.Join(dir, id)
	if err := os.MkdirAll(devDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(devDir, "w1_slave"), []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDS18B20Measure(t *testing.T) {
	dir := t.TempDir()
	writeW1Device(t, dir, "28-0316a2c5b1ff", w1GoodOutput)

	d := NewDS18B20("28-0316a2c5b1ff")
	d.dir = dir

	tempF, err := d.Measure(context.Background())
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	// 20687 milli-C is 20.687 C, 69.2366 F.
	if !approx(tempF, 69.2366) {
		t.Errorf("tempF = %v, want 69.2366", tempF)
	}
}

func TestDS18B20Discovery(t *testing.T) {
	dir := t.TempDir()
	writeW1Device(t, dir, "w1_bus_master1", "")
	writeW1Device(t, dir, "28-0316a2c5b1ff", w1GoodOutput)

	d := NewDS18B20("")
	d.dir = dir

	if _, err := d.Measure(context.Background()); err != nil {
		t.Fatalf("Measure with discovery: %v", err)
	}
}

func TestDS18B20NoDevice(t *testing.T) {
	d := NewDS18B20("")
	d.dir = t.TempDir()

	if _, err := d.Measure(context.Background()); err == nil {
		t.Fatal("expected error for empty bus")
	}
}

func TestDS18B20Collect(t *testing.T) {
	dir := t.TempDir()
	writeW1Device(t, dir, "28-0316a2c5b1ff", w1GoodOutput)

	d := NewDS18B20("")
	d.dir = dir

	var r telemetry.Reading
	if err := d.Collect(context.Background(), &r); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if r.SoilTempF == nil || !approx(*r.SoilTempF, 69.2366) {
		t.Errorf("SoilTempF = %v, want 69.2366", r.SoilTempF)
	}
}

func TestParseW1Slave(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    int
		wantErr string
	}{
		{
			name: "good",
			data: w1GoodOutput,
			want: 20687,
		},
		{
			name: "negative temperature",
			data: "ff fe 4b 46 7f ff 0c 10 a7 : crc=a7 YES\nff fe 4b 46 7f ff 0c 10 a7 t=-1250\n",
			want: -1250,
		},
		{
			name:    "crc failed",
			data:    "4b 01 4b 46 7f ff 0c 10 d8 : crc=d8 NO\n4b 01 4b 46 7f ff 0c 10 d8 t=20687\n",
			wantErr: "crc",
		},
		{
			name:    "power-on reset value",
			data:    "50 05 4b 46 7f ff 0c 10 1c : crc=1c YES\n50 05 4b 46 7f ff 0c 10 1c t=85000\n",
			wantErr: "power-on",
		},
		{
			name:    "missing t field",
			data:    "4b 01 4b 46 7f ff 0c 10 d8 : crc=d8 YES\n4b 01 4b 46 7f ff 0c 10 d8\n",
			wantErr: "t=",
		},
		{
			name:    "truncated",
			data:    "4b 01\n",
			wantErr: "short",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseW1Slave(tt.data)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseW1Slave: %v", err)
			}
			if got != tt.want {
				t.Errorf("milliC = %d, want %d", got, tt.want)
			}
		})
	}
}
