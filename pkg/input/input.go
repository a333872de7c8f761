// Package input provides the control sources read once per tick by the
// simulation.
package input

import (
	"strings"
	"sync"

	"github.com/mpapenbr/ovalrace/pkg/vehicle"
)

// Source delivers the held-key snapshot for the next tick
type Source interface {
	Current() vehicle.Controls
}

// Advancer is implemented by sources with a finite amount of input.
// Advance moves to the next tick and returns false once exhausted.
type Advancer interface {
	Advance() bool
}

type Key string

const (
	KeyAccelerate Key = "w"
	KeyBrake      Key = "s"
	KeySteerLeft  Key = "a"
	KeySteerRight Key = "d"
)

// ParseKey maps a key identifier to a known key. Unknown keys report false.
func ParseKey(s string) (Key, bool) {
	switch k := Key(strings.ToLower(strings.TrimSpace(s))); k {
	case KeyAccelerate, KeyBrake, KeySteerLeft, KeySteerRight:
		return k, true
	default:
		return "", false
	}
}

// KeyState tracks held keys. Written by the host's event dispatch, read by
// the simulation once per tick.
type KeyState struct {
	mu   sync.Mutex
	held vehicle.Controls
}

func NewKeyState() *KeyState {
	return &KeyState{}
}

// KeyDown marks the key as held, unknown keys are ignored.
// Returns whether the key was recognized.
func (k *KeyState) KeyDown(key string) bool {
	return k.set(key, true)
}

func (k *KeyState) KeyUp(key string) bool {
	return k.set(key, false)
}

func (k *KeyState) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.held = vehicle.Controls{}
}

func (k *KeyState) Current() vehicle.Controls {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.held
}

func (k *KeyState) set(key string, down bool) bool {
	parsed, ok := ParseKey(key)
	if !ok {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	switch parsed {
	case KeyAccelerate:
		k.held.Accelerate = down
	case KeyBrake:
		k.held.Brake = down
	case KeySteerLeft:
		k.held.SteerLeft = down
	case KeySteerRight:
		k.held.SteerRight = down
	}
	return true
}
