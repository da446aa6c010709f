package logger

import (
	"context"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ctxKey string

// RunIDKey carries the run identifier in a context.
const RunIDKey ctxKey = "runID"

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFieldName = "time"
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		function := ""
		fun := runtime.FuncForPC(pc)
		if fun != nil {
			funName := fun.Name()
			slash := strings.LastIndex(funName, "/")
			if slash > 0 {
				funName = funName[slash+1:]
			}
			function = " " + funName + "()"
		}
		return file + ":" + strconv.Itoa(line) + function
	}
}

// Options selects verbosity and output of a logger.
type Options struct {
	Debug  bool
	Pretty bool
	Out    io.Writer // defaults to stderr
}

// New builds a logger. The level is local to the returned logger, so two
// runs in one process can trace at different verbosity.
func New(opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
	}

	l := zerolog.New(out).Level(level).With().Timestamp().Logger()
	if opts.Debug {
		l = l.Hook(CallerHook{})
	}
	return l
}

// Nop returns a disabled logger for tests and library callers.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// WithRun attaches a fresh run ID to l and stores the logger in ctx.
func WithRun(ctx context.Context, l zerolog.Logger, op string) (context.Context, string) {
	runID := uuid.NewString()
	l = l.With().Str("runID", runID).Str("op", op).Logger()
	ctx = context.WithValue(ctx, RunIDKey, runID)
	return l.WithContext(ctx), runID
}

// From returns the logger stored in ctx, or a disabled one.
func From(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

type CallerHook struct{}

func (h CallerHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	e.Caller(3)
}
