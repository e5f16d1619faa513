package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

// ProfilerConfig configures continuous profiling pushed to a Pyroscope server.
// ProfileTypes takes pyroscope names such as "cpu" or "inuse_space"; empty
// means the client's default set.
type ProfilerConfig struct {
	Enabled           bool
	ServerAddress     string
	ApplicationName   string
	BasicAuthUser     string
	BasicAuthPassword string
	ProfileTypes      []string
}

// Profiler owns a running pyroscope session. The zero value and the one
// returned for a disabled config are no-ops.
type Profiler struct {
	session *pyroscope.Profiler
	logger  *zap.Logger
	stop    sync.Once
}

// NewProfiler starts profiling when cfg.Enabled is set
func NewProfiler(cfg ProfilerConfig, logger *zap.Logger) (*Profiler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Profiler{logger: logger}
	if !cfg.Enabled {
		logger.Info("Continuous profiling disabled")
		return p, nil
	}
	if cfg.ServerAddress == "" || cfg.ApplicationName == "" {
		return nil, errors.New("profiling needs a server address and an application name")
	}

	types := make([]pyroscope.ProfileType, 0, len(cfg.ProfileTypes))
	for _, t := range cfg.ProfileTypes {
		types = append(types, pyroscope.ProfileType(t))
	}
	tags := map[string]string{}
	if host, err := os.Hostname(); err == nil {
		tags["hostname"] = host
	}

	session, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   cfg.ApplicationName,
		ServerAddress:     cfg.ServerAddress,
		BasicAuthUser:     cfg.BasicAuthUser,
		BasicAuthPassword: cfg.BasicAuthPassword,
		Tags:              tags,
		ProfileTypes:      types,
		Logger:            pyroscopeLogger{logger.Named("pyroscope").Sugar()},
	})
	if err != nil {
		return nil, fmt.Errorf("start profiler: %w", err)
	}
	p.session = session
	logger.Info("Continuous profiling enabled",
		zap.String("server_address", cfg.ServerAddress),
		zap.String("application", cfg.ApplicationName),
	)
	return p, nil
}

// IsEnabled reports whether profiles are being pushed
func (p *Profiler) IsEnabled() bool {
	return p != nil && p.session != nil
}

// Stop flushes and ends the session. Later calls do nothing.
func (p *Profiler) Stop() error {
	if !p.IsEnabled() {
		return nil
	}
	var err error
	p.stop.Do(func() {
		if err = p.session.Stop(); err != nil {
			p.logger.Error("Error stopping profiler", zap.Error(err))
		}
	})
	return err
}

// WithProfilingLabels runs fn with pprof labels attached, so samples taken
// inside it can be filtered by those labels. kv alternates keys and values;
// empty values are dropped.
func WithProfilingLabels(ctx context.Context, fn func(context.Context), kv ...string) {
	labels := make([]string, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			labels = append(labels, kv[i], kv[i+1])
		}
	}
	if len(labels) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(labels...), fn)
}

type pyroscopeLogger struct{ s *zap.SugaredLogger }

func (l pyroscopeLogger) Infof(format string, args ...any)  { l.s.Infof(format, args...) }
func (l pyroscopeLogger) Debugf(format string, args ...any) { l.s.Debugf(format, args...) }
func (l pyroscopeLogger) Errorf(format string, args ...any) { l.s.Errorf(format, args...) }
