package input

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/ovalrace/pkg/vehicle"
)

func TestLoadScript(t *testing.T) {
	s, err := LoadScript(filepath.Join("testdata", "hotlap.yml"))
	require.NoError(t, err)
	assert.Equal(t, "short-burst", s.Name())
	assert.Equal(t, 6, s.Ticks())
	assert.Equal(t, []string{"x"}, s.Ignored())

	// nothing held before the first tick
	assert.Equal(t, vehicle.Controls{}, s.Current())

	got := []vehicle.Controls{}
	for s.Advance() {
		got = append(got, s.Current())
	}
	accel := vehicle.Controls{Accelerate: true}
	accelRight := vehicle.Controls{Accelerate: true, SteerRight: true}
	assert.Equal(t, []vehicle.Controls{
		accel, accel, accel, accelRight, accelRight, {},
	}, got)

	assert.False(t, s.Advance())
	assert.Equal(t, vehicle.Controls{}, s.Current())
}

func TestLoadScriptMissingFile(t *testing.T) {
	_, err := LoadScript(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestLoadScriptJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drive.json")
	content := `{"version":"1.2.0","name":"json","segments":[{"ticks":2,"keys":["s"]}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Ticks())
	require.True(t, s.Advance())
	assert.Equal(t, vehicle.Controls{Brake: true}, s.Current())
}

func TestNewScriptValidation(t *testing.T) {
	tests := []struct {
		name    string
		sf      ScriptFile
		wantErr error
	}{
		{
			name:    "missing version",
			sf:      ScriptFile{Segments: []Segment{{Ticks: 1}}},
			wantErr: ErrUnsupportedVersion,
		},
		{
			name:    "major version 2",
			sf:      ScriptFile{Version: "v2.0.0", Segments: []Segment{{Ticks: 1}}},
			wantErr: ErrUnsupportedVersion,
		},
		{
			name:    "garbage version",
			sf:      ScriptFile{Version: "latest", Segments: []Segment{{Ticks: 1}}},
			wantErr: ErrUnsupportedVersion,
		},
		{
			name:    "no ticks",
			sf:      ScriptFile{Version: "v1.0.0", Segments: []Segment{{Ticks: 0}}},
			wantErr: ErrEmptyScript,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScript(&tt.sf)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := NewScript(&ScriptFile{Version: "v1", Segments: []Segment{{Ticks: -1}}})
	assert.Error(t, err)
}
