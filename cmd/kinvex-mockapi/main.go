// Command kinvex-mockapi serves an in-memory Kinvex API with seeded accounts
// (admin/admin123, manager/manager123, operator/operator123, viewer/viewer123)
// and sample inventory, for trying the client without a backend.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/kinvex/internal/fakeapi"
	"github.com/MrEthical07/kinvex/internal/rate"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		addr      = flag.String("addr", ":8080", "listen address")
		accessTTL = flag.Duration("access-ttl", 15*time.Minute, "access token lifetime")
		secret    = flag.String("secret", os.Getenv("KINVEX_MOCK_SECRET"), "signing key, at least 32 bytes (default: development key)")
		quiet     = flag.Bool("quiet", false, "do not log requests")
		attempts  = flag.Int("max-login-attempts", 5, "failed logins allowed per window; 0 disables throttling")
		cooldown  = flag.Duration("login-cooldown", 5*time.Minute, "failed-login window")
		redisAddr = flag.String("redis-addr", os.Getenv("REDIS_ADDR"), "redis for the login throttle (default: in-process miniredis)")
	)
	flag.Parse()

	gin.SetMode(gin.ReleaseMode)

	var throttle *rate.Limiter
	if *attempts > 0 {
		rdb, cleanup, err := openRedis(*redisAddr)
		if err != nil {
			log.Fatalf("mockapi: %v", err)
		}
		defer cleanup()
		throttle, err = rate.New(rdb, rate.Config{
			MaxLoginAttempts: *attempts,
			Cooldown:         *cooldown,
			PerIP:            true,
			Prefix:           "kinvex-mockapi",
		})
		if err != nil {
			log.Fatalf("mockapi: %v", err)
		}
	}

	srv, err := fakeapi.New(fakeapi.Options{
		Secret:    []byte(*secret),
		AccessTTL: *accessTTL,
		Throttle:  throttle,
	})
	if err != nil {
		log.Fatalf("mockapi: %v", err)
	}

	var handler http.Handler = srv.Handler()
	if !*quiet {
		handler = logRequests(handler)
	}

	httpSrv := &http.Server{
		Addr:              *addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("mockapi: serving %s on %s", fakeapi.BasePath, *addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("mockapi: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("mockapi: shutdown: %v", err)
	}
}

func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr != "" {
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		log.Printf("mockapi: login throttle on redis at %s", addr)
		return rdb, func() { _ = rdb.Close() }, nil
	}
	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, err
	}
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	log.Printf("mockapi: login throttle on miniredis at %s", mr.Addr())
	return rdb, func() {
		_ = rdb.Close()
		mr.Close()
	}, nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Microsecond))
	})
}
