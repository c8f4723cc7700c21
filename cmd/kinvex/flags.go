package main

import (
	"flag"
	"time"
)

type options struct {
	envFile     string
	baseURL     string
	store       string
	path        string
	redisAddr   string
	redisPrefix string
	metricsAddr string
	interval    time.Duration
	verbose     bool
}

func parseFlags(argv []string) (options, []string, error) {
	var o options
	fs := flag.NewFlagSet("kinvex", flag.ContinueOnError)
	fs.StringVar(&o.envFile, "env-file", ".env", "dotenv file loaded before KINVEX_* variables are read")
	fs.StringVar(&o.baseURL, "base-url", "", "API base URL; overrides KINVEX_API_BASE_URL")
	fs.StringVar(&o.store, "store", "file", "token store: file, sqlite, redis or memory")
	fs.StringVar(&o.path, "session", "", "session file or database path (default in the user config dir)")
	fs.StringVar(&o.redisAddr, "redis-addr", "localhost:6379", "redis address for -store=redis")
	fs.StringVar(&o.redisPrefix, "redis-prefix", "kinvex", "redis key prefix for -store=redis")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while watching")
	fs.DurationVar(&o.interval, "interval", 0, "watchdog interval for watch; overrides KINVEX_WATCHDOG_INTERVAL")
	fs.BoolVar(&o.verbose, "v", false, "log client diagnostics to stderr")
	if err := fs.Parse(argv); err != nil {
		return options{}, nil, err
	}
	return o, fs.Args(), nil
}
