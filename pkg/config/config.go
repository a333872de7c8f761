package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	LogLevel          string // sets the log level (zap log level values)
	LogFormat         string // text vs json
	LogConfig         string // zapfilter rules, e.g. "info:* debug:sim.*"
	EnableTelemetry   bool   // enable telemetry
	TelemetryEndpoint string // endpoint for telemetry, "stdout" writes to stdout
	ProfilingPort     int    // port for profiling
	WaitForServices   string // duration to wait for other services to be ready
)

// Config holds the configuration values of a simulation run
type Config struct {
	FPS           int    // frames per second
	FrameMode     string // fixed or scaled
	Realtime      bool   // pace frames with wall clock
	MaxTicks      uint64 // stop after this number of ticks, 0 = unlimited
	Script        string // path to drive script, empty = keyboard input from stdin
	NatsURL       string // empty disables NATS publishing
	StateBucket   string // jetstream bucket for latest state, empty = disabled
	PublishFormat string // json or proto
	StateEvery    int    // publish a snapshot every n ticks
	HTTPAddr      string // listen addr of the state server, empty = disabled
	Session       string // session id, generated if empty
}

// DefaultConfig returns the values used when no flag is given
func DefaultConfig() Config {
	return Config{
		FPS:           60,
		FrameMode:     "fixed",
		Realtime:      true,
		PublishFormat: "json",
		StateEvery:    30,
	}
}
