package timing

import (
	"fmt"
	"time"

	"github.com/aarondl/opt/null"
)

const unsetTime = "--:--.---"

// FormatTime renders v as MM:SS.mmm, a null value as --:--.---
func FormatTime(v null.Val[time.Duration]) string {
	d, ok := v.Get()
	if !ok {
		return unsetTime
	}
	return FormatDuration(d)
}

func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d.%03d", ms/60000, (ms%60000)/1000, ms%1000)
}
