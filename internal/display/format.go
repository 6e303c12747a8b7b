package display

import (
	"fmt"
	"time"
)

var byteUnits = []string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}

// FormatBytes returns a binary-prefixed size such as "700.0 MiB".
func FormatBytes(n int64) string {
	if n < 1024 && n > -1024 {
		return fmt.Sprintf("%d B", n)
	}
	v := float64(n) / 1024
	u := 0
	for (v >= 1024 || v <= -1024) && u < len(byteUnits)-1 {
		v /= 1024
		u++
	}
	return fmt.Sprintf("%.1f %s", v, byteUnits[u])
}

// FormatBitrate renders bits per second rounded to kbps, switching to
// Mbps from 1000 kbps up.
func FormatBitrate(bps int64) string {
	kbps := (bps + 500) / 1000
	if kbps < 1000 {
		return fmt.Sprintf("%d kbps", kbps)
	}
	return fmt.Sprintf("%.1f Mbps", float64(kbps)/1000)
}

// FormatDuration renders seconds as H:MM:SS.mmm, or M:SS.mmm under an hour.
func FormatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	d := time.Duration(seconds * float64(time.Second)).Round(time.Millisecond)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	ms := int(d % time.Second / time.Millisecond)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%03d", h, m, s, ms)
	}
	return fmt.Sprintf("%d:%02d.%03d", m, s, ms)
}

// FormatPercent returns part as a whole-number percentage of total, or
// "n/a" when total is not positive.
func FormatPercent(part, total int64) string {
	if total <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%d%%", part*100/total)
}
