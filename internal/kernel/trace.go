package kernel

import (
	"io"
	"os"

	"github.com/docker/go-units"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Trace is the kernel's logging facility: one structured logrus logger,
// rotated through lumberjack, with a per-component child Entry handed out
// to each subsystem. Grounded on bgp59-victoriametrics-importer's vmi.go
// NewCompLogger pattern (a logrus.Logger shared across the process, with
// component loggers derived via WithField), the richest logging idiom in
// the retrieved pack.
type Trace struct {
	log *logrus.Logger
}

// TraceConfig controls log destination, rotation, and verbosity.
type TraceConfig struct {
	// Path is the log file path. Empty means stderr, unrotated.
	Path string
	// MaxSizeMB is the rotation threshold; lumberjack rotates once the
	// active file reaches this size.
	MaxSizeMB int
	MaxBackups int
	MaxAgeDays int
	Level      logrus.Level
}

// DefaultTraceConfig returns sensible defaults: stderr, info level.
func DefaultTraceConfig() TraceConfig {
	return TraceConfig{MaxSizeMB: 10, MaxBackups: 5, MaxAgeDays: 28, Level: logrus.InfoLevel}
}

// NewTrace builds a Trace from cfg.
func NewTrace(cfg TraceConfig) *Trace {
	l := logrus.New()
	l.SetLevel(cfg.Level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	var out io.Writer = os.Stderr
	if cfg.Path != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
	}
	l.SetOutput(out)

	l.WithFields(logrus.Fields{
		"rotateAt": units.BytesSize(float64(cfg.MaxSizeMB) * 1024 * 1024),
	}).Debug("trace facility started")

	return &Trace{log: l}
}

// For returns the child logger for component c, tagged so every line it
// emits can be filtered by subsystem.
func (tr *Trace) For(c Component) *logrus.Entry {
	return tr.log.WithField("component", c.String())
}

// Failure logs a failed postcode at warn level against the component and op
// it was raised from, and returns it unchanged so it can be used inline at a
// return statement: `return tr.Failure(err)`. Spec.md §7's "per-component
// trace slot" is this call: every failing postcode passes through here
// exactly once, whether raised inside a privileged routine (via the
// Trampoline) or outside one (via Kernel.Fail).
func (tr *Trace) Failure(err error) error {
	if err == nil {
		return nil
	}
	kerr, ok := err.(*Error)
	if !ok {
		tr.log.WithError(err).Warn("privilege routine failed")
		return err
	}
	tr.log.WithFields(logrus.Fields{
		"op":        kerr.Op,
		"component": kerr.Code.Component().String(),
		"kind":      kerr.Code.Kind().String(),
	}).Warn("privilege routine failed")
	return err
}
