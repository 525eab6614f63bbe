package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu           sync.RWMutex
	root         = newRoot()
	defaultLevel = zerolog.WarnLevel
	levels       = map[string]zerolog.Level{}
)

func newRoot() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Logger()
}

// Init sets the default level and per component overrides.
// Level names are zerolog's, plus "warning".
func Init(defaultName string, componentLevels map[string]string) error {
	lvl, err := ParseLevel(defaultName)
	if err != nil {
		return err
	}

	parsed := make(map[string]zerolog.Level, len(componentLevels))
	for component, name := range componentLevels {
		l, err := ParseLevel(name)
		if err != nil {
			return fmt.Errorf("logging level for %s: %w", component, err)
		}
		parsed[component] = l
	}

	mu.Lock()
	defaultLevel = lvl
	levels = parsed
	mu.Unlock()
	return nil
}

func ParseLevel(name string) (zerolog.Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "warning":
		return zerolog.WarnLevel, nil
	case "critical":
		return zerolog.FatalLevel, nil
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || name == "" {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", name)
	}
	return lvl, nil
}

// For returns the logger of a component.
// Loggers must be obtained after Init to pick up the configured levels.
func For(component string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()

	lvl, ok := levels[component]
	if !ok {
		lvl = defaultLevel
	}
	return root.With().Str("component", component).Logger().Level(lvl)
}
