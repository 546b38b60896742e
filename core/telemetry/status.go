package telemetry

import (
	"sort"
	"strconv"
	"time"
)

// RenderStatus builds a fixed-column, human-readable snapshot of every
// registered metric's 1s/10s/60s sum and avgPerSec, in the teacher's
// manual-byte-append style (no fmt.Sprintf in the hot emission path).
func RenderStatus(m *Manager) []byte {
	now := time.Now()
	names := m.Names()
	sort.Strings(names)

	buf := make([]byte, 0, 256*len(names)+64)
	buf = append(buf, "metric                          sum_1s      sum_10s     sum_60s     rate/s\n"...)
	buf = append(buf, "------------------------------------------------------------------------------\n"...)

	for _, name := range names {
		mt := m.Metric(name)
		buf = appendPadded(buf, name, 32)
		buf = appendPadded(buf, formatFloat(mt.Sum(now, time.Second)), 12)
		buf = appendPadded(buf, formatFloat(mt.Sum(now, 10*time.Second)), 12)
		buf = appendPadded(buf, formatFloat(mt.Sum(now, 60*time.Second)), 12)
		buf = appendPadded(buf, formatFloat(mt.AvgPerSec(now, 60*time.Second)), 12)
		buf = buf[:len(buf)-1] // drop the trailing pad space before newline
		buf = append(buf, '\n')
	}

	return buf
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func appendPadded(buf []byte, s string, width int) []byte {
	buf = append(buf, s...)
	for i := len(s); i < width; i++ {
		buf = append(buf, ' ')
	}
	return buf
}
