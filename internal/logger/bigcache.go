package logger

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Printf adapts a zerolog logger to the Printf-style logger bigcache expects.
type Printf struct {
	Log zerolog.Logger
}

func (p Printf) Printf(format string, args ...any) {
	p.Log.Debug().Str("library", "bigcache").Msg(fmt.Sprintf(format, args...))
}
