// Command kinvex signs in to a Kinvex inventory API and keeps the session in a
// local token store.
//
//	kinvex [flags] login|whoami|logout|refresh|products|watch|doctor
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/MrEthical07/kinvex"
	"github.com/MrEthical07/kinvex/tokenstore"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	opts, args, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "kinvex: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: kinvex [flags] login|whoami|logout|refresh|products|watch|doctor")
}

func run(ctx context.Context, opts options, command string, args []string) error {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", opts.envFile, err)
		}
	}
	cfg, err := kinvex.LoadConfig("")
	if err != nil {
		return err
	}
	if opts.baseURL != "" {
		cfg.API.BaseURL = strings.TrimRight(opts.baseURL, "/")
	}
	// Only watch keeps the process alive long enough for periodic checks;
	// doctor reports the configured value.
	if command != "watch" && command != "doctor" {
		cfg.Watchdog.Enabled = false
	}
	if opts.interval > 0 {
		cfg.Watchdog.Interval = opts.interval
	}

	store, closeStore, err := openStore(ctx, opts, cfg.Auth.Keys)
	if err != nil {
		return err
	}
	defer closeStore()

	logger := log.New(os.Stderr, "", log.LstdFlags)
	if !opts.verbose {
		logger.SetOutput(io.Discard)
	}

	client, err := kinvex.New().
		WithConfig(cfg).
		WithTokenStore(store).
		WithLogger(logger).
		WithNotifier(kinvex.NotifierFunc(printNotification)).
		WithNavigator(kinvex.NavigatorFunc(func(_ context.Context, path string) {
			fmt.Fprintf(os.Stderr, "sign in again (%s)\n", path)
		})).
		Build()
	if err != nil {
		return err
	}
	defer client.Close()

	switch command {
	case "login":
		return cmdLogin(ctx, client, args)
	case "whoami":
		return cmdWhoami(ctx, client)
	case "logout":
		return cmdLogout(ctx, client)
	case "refresh":
		return cmdRefresh(ctx, client)
	case "products":
		return cmdProducts(ctx, client, args)
	case "watch":
		return cmdWatch(ctx, client, opts)
	case "doctor":
		return cmdDoctor(client)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func openStore(ctx context.Context, opts options, keys tokenstore.Keys) (tokenstore.Store, func(), error) {
	noop := func() {}
	switch opts.store {
	case "memory":
		return tokenstore.NewMemoryStore(keys), noop, nil

	case "redis":
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{opts.redisAddr}})
		s, err := tokenstore.NewRedisStore(rdb, tokenstore.RedisOptions{Prefix: opts.redisPrefix, Keys: keys})
		if err != nil {
			_ = rdb.Close()
			return nil, noop, err
		}
		return s, func() { _ = rdb.Close() }, nil

	case "sqlite":
		path, err := sessionPath(opts.path, "session.db")
		if err != nil {
			return nil, noop, err
		}
		s, err := tokenstore.OpenSQLiteStore(ctx, path, keys)
		if err != nil {
			return nil, noop, err
		}
		return s, func() { _ = s.Close() }, nil

	case "file", "":
		path, err := sessionPath(opts.path, "session.json")
		if err != nil {
			return nil, noop, err
		}
		fo := tokenstore.FileOptions{Path: path, Keys: keys}
		if pass := os.Getenv("KINVEX_STORE_PASSPHRASE"); pass != "" {
			seal := tokenstore.DefaultSealConfig(pass)
			fo.Seal = &seal
		}
		s, err := tokenstore.NewFileStore(fo)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown store %q (want file, sqlite, redis or memory)", opts.store)
	}
}

func sessionPath(explicit, name string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir = filepath.Join(dir, "kinvex")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func printNotification(_ context.Context, n kinvex.Notification) {
	fmt.Fprintf(os.Stderr, "[%s] %s\n", n.Level, n.Message)
}

func exitCode(err error) int {
	switch {
	case kinvex.IsSessionInvalid(err), errors.Is(err, kinvex.ErrInvalidCredentials), errors.Is(err, kinvex.ErrAccountDisabled):
		return 3
	case errors.Is(err, kinvex.ErrForbidden):
		return 4
	case kinvex.IsTransient(err):
		return 5
	default:
		return 1
	}
}
