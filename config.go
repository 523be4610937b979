package main

import (
	"flag"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type options struct {
	Addr         string        `yaml:"addr"`
	Origin       string        `yaml:"origin"`
	StopTimeout  time.Duration `yaml:"stop_timeout"`
	KillTimeout  time.Duration `yaml:"kill_timeout"`
	CloseTimeout time.Duration `yaml:"close_timeout"`
	MetricsTick  time.Duration `yaml:"metrics_tick"`
	LogLevel     string        `yaml:"log_level"`
	LogFile      string        `yaml:"log_file"`
}

func defaultOptions() options {
	return options{
		Addr:         ":8080",
		StopTimeout:  10 * time.Second,
		KillTimeout:  1 * time.Second,
		CloseTimeout: 5 * time.Second,
		MetricsTick:  60 * time.Second,
		LogLevel:     "info",
	}
}

// parseOptions reads flags from args. Values from -config fill in whatever
// the command line leaves unset.
func parseOptions(args []string) (options, error) {
	opts := defaultOptions()
	var config string

	fs := flag.NewFlagSet("notifyhub", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "YAML file with default options")
	fs.StringVar(&opts.Addr, "addr", opts.Addr, "http service address")
	fs.StringVar(&opts.Origin, "origin", opts.Origin, "websocket server checks Origin headers against this scheme://host[:port]")
	fs.DurationVar(&opts.StopTimeout, "stop-timeout", opts.StopTimeout, "time to wait for in-flight requests on shutdown")
	fs.DurationVar(&opts.KillTimeout, "kill-timeout", opts.KillTimeout, "time to wait after stop-timeout before killing connections")
	fs.DurationVar(&opts.CloseTimeout, "close-timeout", opts.CloseTimeout, "time to wait for websockets to close on shutdown")
	fs.DurationVar(&opts.MetricsTick, "metrics.tick", opts.MetricsTick, "metrics: duration between reports, 0 to disable")
	fs.StringVar(&opts.LogLevel, "log.level", opts.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&opts.LogFile, "log.file", opts.LogFile, "append logs to this file instead of stderr")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if config == "" {
		return opts, nil
	}

	set := make(map[string]string)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = f.Value.String() })

	body, err := os.ReadFile(config)
	if err != nil {
		return opts, errors.Wrap(err, "read config")
	}
	opts = defaultOptions()
	if err := yaml.Unmarshal(body, &opts); err != nil {
		return opts, errors.Wrapf(err, "parse config %s", config)
	}
	for name, value := range set {
		if err := fs.Set(name, value); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

func newLogger(opts options) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(opts.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	if opts.LogFile != "" {
		cfg.OutputPaths = []string{opts.LogFile}
	}
	return cfg.Build()
}
