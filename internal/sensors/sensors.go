// Package sensors contains the hardware drivers for the garden monitor:
// SHT31 (ambient temperature/humidity), BH1750 (ambient light), an ADS1115
// soil-moisture channel, a DS18B20 soil probe and the host CPU thermal
// sensor. I2C devices are driven through periph.io; each driver degrades to
// a per-cycle error when its device is absent or misbehaving.
package sensors

// CToF converts degrees Celsius to degrees Fahrenheit.
func CToF(c float64) float64 {
	return c*1.8 + 32
}

// bytesToHex converts a raw device frame to a hexadecimal string for debug
// logs without pulling in fmt on the hot path.
func bytesToHex(b []byte) string {
	const hexd = "0123456789ABCDEF"
	out := make([]byte, 0, len(b)*2)
	for _, x := range b {
		out = append(out, hexd[x>>4], hexd[x&0x0F])
	}
	return string(out)
}
