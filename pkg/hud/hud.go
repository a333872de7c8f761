package hud

import (
	"fmt"
	"sync"
	"time"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/ovalrace/log"
	"github.com/mpapenbr/ovalrace/pkg/timing"
	"github.com/mpapenbr/ovalrace/pkg/vehicle"
)

type (
	// View is the text shown on the heads-up display
	View struct {
		Lap      int    `json:"lap"`
		LapTime  string `json:"lapTime"`
		BestTime string `json:"bestTime"`
		Speed    int    `json:"speed"`
	}

	// Message is the transient lap notification
	Message struct {
		Lap       int    `json:"lap"`
		Time      string `json:"time"`
		NewRecord bool   `json:"newRecord"`
	}

	// Overlay shows a lap notification until its display duration expired
	Overlay struct {
		mu      sync.Mutex
		msg     Message
		expires time.Duration
		shown   bool
	}

	// Display renders the HUD through a logger, one line per change
	Display struct {
		overlay *Overlay
		last    View
		log     *log.Logger
	}
)

// Compose builds the view. The lap time stays at zero until the race started.
func Compose(laps int, current, best null.Val[time.Duration], speed float64) View {
	lapTime := timing.FormatDuration(0)
	if d, ok := current.Get(); ok {
		lapTime = timing.FormatDuration(d)
	}
	return View{
		Lap:      laps,
		LapTime:  lapTime,
		BestTime: timing.FormatTime(best),
		Speed:    vehicle.DisplaySpeed(speed),
	}
}

func (m Message) String() string {
	s := fmt.Sprintf("Lap %d completed! %s", m.Lap, m.Time)
	if m.NewRecord {
		s += " New record!"
	}
	return s
}

func NewOverlay() *Overlay {
	return &Overlay{}
}

// Show replaces the current message, the dismissal timer restarts
func (o *Overlay) Show(ev timing.LapEvent, now time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msg = Message{
		Lap:       ev.Lap,
		Time:      timing.FormatDuration(ev.Duration),
		NewRecord: ev.NewRecord,
	}
	o.expires = now + ev.DisplayFor
	o.shown = true
}

// Active returns the message if it is still visible at now
func (o *Overlay) Active(now time.Duration) (Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.shown {
		return Message{}, false
	}
	if now >= o.expires {
		o.shown = false
		return Message{}, false
	}
	return o.msg, true
}

func NewDisplay(l *log.Logger) *Display {
	return &Display{overlay: NewOverlay(), log: l, last: View{Lap: -1}}
}

func (d *Display) Overlay() *Overlay {
	return d.overlay
}

// Lap shows the lap notification
func (d *Display) Lap(ev timing.LapEvent, now time.Duration) {
	d.overlay.Show(ev, now)
	msg, _ := d.overlay.Active(now)
	d.log.Info(msg.String(),
		log.Int("lap", msg.Lap),
		log.String("time", msg.Time),
		log.Bool("record", msg.NewRecord),
		log.Duration("displayFor", ev.DisplayFor))
}

// Update logs the view if lap, best time or speed changed.
// Returns true if something was written.
func (d *Display) Update(v View) bool {
	if v.Lap == d.last.Lap && v.BestTime == d.last.BestTime && v.Speed == d.last.Speed {
		return false
	}
	d.last = v
	d.log.Debug("hud",
		log.Int("lap", v.Lap),
		log.String("lapTime", v.LapTime),
		log.String("best", v.BestTime),
		log.Int("speed", v.Speed))
	return true
}
