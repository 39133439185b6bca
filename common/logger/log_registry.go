package logger

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const defaultLogLevel = logrus.InfoLevel

// LogLevelConfig configures log levels for subsystems. The format is a
// comma-separated list of subsystem=level pairs, e.g.
// "trigger=debug,events=trace". The special subsystem "default" sets the
// level for any subsystem not explicitly listed.
type LogLevelConfig string

func (c LogLevelConfig) parse() (map[string]logrus.Level, error) {
	levels := make(map[string]logrus.Level)
	str := strings.TrimSpace(string(c))
	if str == "" {
		return levels, nil
	}
	for _, pair := range strings.Split(str, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("error parsing log level config entry %q: expected subsystem=level", pair)
		}
		subsystem := strings.TrimSpace(parts[0])
		level, err := logrus.ParseLevel(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("error parsing log level for subsystem %q: %w", subsystem, err)
		}
		levels[subsystem] = level
	}
	return levels, nil
}

// LogRegistry tracks the log level configured for each subsystem, and the
// loggers created for them so levels can be inspected and changed at runtime.
type LogRegistry struct {
	mu      sync.Mutex
	levels  map[string]logrus.Level
	loggers map[string][]*logrus.Logger
}

func NewLogRegistry(config LogLevelConfig) (*LogRegistry, error) {
	levels, err := config.parse()
	if err != nil {
		return nil, err
	}
	return &LogRegistry{
		levels:  levels,
		loggers: make(map[string][]*logrus.Logger),
	}, nil
}

// GetLogLevel returns the configured log level for a subsystem, falling back
// to the "default" entry and then to the package default.
func (r *LogRegistry) GetLogLevel(subsystem string) logrus.Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	if level, ok := r.levels[subsystem]; ok {
		return level
	}
	if level, ok := r.levels["default"]; ok {
		return level
	}
	return defaultLogLevel
}

// SetLogLevel changes the level for a subsystem and applies it to all loggers
// already created for that subsystem.
func (r *LogRegistry) SetLogLevel(subsystem string, level logrus.Level) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels[subsystem] = level
	for _, log := range r.loggers[subsystem] {
		log.SetLevel(level)
	}
}

// RegisterLogger records a logger created for a subsystem so later level
// changes can be applied to it.
func (r *LogRegistry) RegisterLogger(subsystem string, log *logrus.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loggers[subsystem] = append(r.loggers[subsystem], log)
}

// ListLogLevels returns the explicitly configured subsystem levels in a
// stable order, for diagnostics.
func (r *LogRegistry) ListLogLevels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var entries []string
	for subsystem, level := range r.levels {
		entries = append(entries, fmt.Sprintf("%s=%s", subsystem, level))
	}
	sort.Strings(entries)
	return entries
}
