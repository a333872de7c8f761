package input

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/mod/semver"

	"github.com/mpapenbr/ovalrace/pkg/vehicle"
)

// SupportedScriptVersion is the major version of drive scripts we can read
const SupportedScriptVersion = "v1"

var (
	ErrUnsupportedVersion = errors.New("unsupported script version")
	ErrEmptyScript        = errors.New("script has no segments")
)

type (
	// Segment holds a set of keys for a number of ticks
	Segment struct {
		Ticks int      `mapstructure:"ticks"`
		Keys  []string `mapstructure:"keys"`
	}

	ScriptFile struct {
		Version  string    `mapstructure:"version"`
		Name     string    `mapstructure:"name"`
		Segments []Segment `mapstructure:"segments"`
	}

	// Script replays a drive script tick by tick
	Script struct {
		name     string
		controls []vehicle.Controls
		ignored  []string
		pos      int
	}
)

// LoadScript reads a drive script (yaml, json or toml by extension)
func LoadScript(path string) (*Script, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read script %s: %w", path, err)
	}
	var sf ScriptFile
	if err := v.Unmarshal(&sf); err != nil {
		return nil, fmt.Errorf("decode script %s: %w", path, err)
	}
	return NewScript(&sf)
}

func NewScript(sf *ScriptFile) (*Script, error) {
	if err := checkVersion(sf.Version); err != nil {
		return nil, err
	}
	ret := &Script{name: sf.Name, pos: -1}
	for i, seg := range sf.Segments {
		if seg.Ticks < 0 {
			return nil, fmt.Errorf("segment %d: negative tick count %d", i, seg.Ticks)
		}
		ks := NewKeyState()
		for _, k := range seg.Keys {
			if !ks.KeyDown(k) {
				ret.ignored = append(ret.ignored, k)
			}
		}
		c := ks.Current()
		for range seg.Ticks {
			ret.controls = append(ret.controls, c)
		}
	}
	if len(ret.controls) == 0 {
		return nil, ErrEmptyScript
	}
	return ret, nil
}

func checkVersion(v string) error {
	if v == "" {
		return fmt.Errorf("%w: missing version", ErrUnsupportedVersion)
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) || semver.Major(v) != SupportedScriptVersion {
		return fmt.Errorf("%w: %s", ErrUnsupportedVersion, v)
	}
	return nil
}

func (s *Script) Name() string {
	return s.name
}

// Ticks is the total length of the script
func (s *Script) Ticks() int {
	return len(s.controls)
}

// Ignored lists the key identifiers in the script that are not controls
func (s *Script) Ignored() []string {
	return s.ignored
}

func (s *Script) Advance() bool {
	if s.pos+1 >= len(s.controls) {
		s.pos = len(s.controls)
		return false
	}
	s.pos++
	return true
}

// Current returns the controls of the current tick, all released before the
// first Advance and after the end.
func (s *Script) Current() vehicle.Controls {
	if s.pos < 0 || s.pos >= len(s.controls) {
		return vehicle.Controls{}
	}
	return s.controls[s.pos]
}
