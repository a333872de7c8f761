package log

import "go.uber.org/zap"

var (
	String   = zap.String
	Int      = zap.Int
	Int64    = zap.Int64
	Uint64   = zap.Uint64
	Float64  = zap.Float64
	Bool     = zap.Bool
	Duration = zap.Duration
	Time     = zap.Time
	Any      = zap.Any
	Stringer = zap.Stringer
)

func ErrorField(err error) Field {
	return zap.Error(err)
}
