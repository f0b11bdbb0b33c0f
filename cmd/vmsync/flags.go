package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	vmsync "github.com/vango-dev/vmsync"
	"github.com/vango-dev/vmsync/internal/config"
	"github.com/vango-dev/vmsync/internal/errors"
)

// connectFlags are shared by the commands that open a hub connection.
type connectFlags struct {
	url         string
	configPath  string
	args        []string
	headers     []string
	metricsAddr string
	debug       bool
}

func (f *connectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.url, "url", "u", "", "Hub URL (default from vmsync.json)")
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "Path to vmsync.json (default ./vmsync.json if present)")
	cmd.Flags().StringArrayVarP(&f.args, "arg", "a", nil, "View model argument as key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", nil, "Request header as key=value (repeatable)")
	cmd.Flags().BoolVarP(&f.debug, "debug", "d", false, "Log every payload sent and received")
}

// load builds the client configuration from the config file and flags.
func (f *connectFlags) load() (vmsync.Config, error) {
	var (
		cfg vmsync.Config
		err error
	)
	switch {
	case f.configPath != "":
		cfg, err = vmsync.LoadConfigFile(f.configPath)
	case config.Exists("."):
		cfg, err = vmsync.LoadConfig(".")
	default:
		cfg = vmsync.DefaultConfig()
	}
	if err != nil {
		return cfg, err
	}

	if f.url != "" {
		cfg.File.Hub.URL = f.url
	}
	if f.debug {
		cfg.File.Debug = true
	}
	if f.metricsAddr != "" {
		cfg.File.Metrics.Enabled = true
		cfg.File.Metrics.Addr = f.metricsAddr
	}

	level := slog.LevelInfo
	if cfg.File.Debug {
		level = slog.LevelDebug
	}
	cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return cfg, nil
}

// parseKeyValues parses key=value pairs. Values that are valid JSON are
// decoded, so count=3 is a number and flag=true a boolean; anything else
// is kept as a string.
func parseKeyValues(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.New("E140").WithDetailf("%q", pair)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		out[key] = value
	}
	return out, nil
}
