package main

import (
	"bufio"
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/vsm-auth/config"
	"github.com/ErlanBelekov/vsm-auth/internal/adminlogin"
	"github.com/ErlanBelekov/vsm-auth/internal/domain"
	"github.com/ErlanBelekov/vsm-auth/internal/gateway"
	"github.com/ErlanBelekov/vsm-auth/internal/health"
	ctxlog "github.com/ErlanBelekov/vsm-auth/internal/log"
	"github.com/ErlanBelekov/vsm-auth/internal/metrics"
	"github.com/ErlanBelekov/vsm-auth/internal/terminal"
	"github.com/ErlanBelekov/vsm-auth/internal/tokenstore"
	"github.com/ErlanBelekov/vsm-auth/internal/wizard"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := tokenstore.NewFileStore(cfg.TokenFile)
	api := gateway.NewClient(cfg.APIBaseURL, logger,
		gateway.WithTimeout(cfg.RequestTimeout()),
		gateway.WithBearer(func() string {
			token, _, err := store.Get(domain.TokenKey)
			if err != nil {
				logger.Warn("read auth token", "error", err)
			}
			return token
		}),
	)

	metrics.Register(prometheus.DefaultRegisterer)
	checker := health.NewChecker(api, logger, prometheus.DefaultRegisterer)
	if res := checker.Readiness(ctx); res.Status != "up" {
		logger.Warn("auth api unreachable, continuing", "api", cfg.APIBaseURL)
	}

	var metricsSrv *http.Server
	if cfg.MetricsPort != "" {
		metricsSrv = metrics.NewServer(":"+cfg.MetricsPort, checker)
		go func() {
			logger.Info("metrics server started", "port", cfg.MetricsPort)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", "error", err)
			}
		}()
	}

	screen := terminal.NewScreen(os.Stdout)
	showIdentity(screen, store)

	w := wizard.New(api, store, logger,
		wizard.WithOnChange(func(snap wizard.Snapshot) {
			if err := screen.Show(snap); err != nil {
				logger.Error("render", "error", err)
			}
		}),
		wizard.WithOnNavigate(navigator(screen, store, stop)),
	)
	admin := adminlogin.NewController(api, logger)

	wizardDone := make(chan struct{})
	go func() {
		defer close(wizardDone)
		w.Run(ctx)
	}()

	lines := make(chan string)
	go pumpStdin(lines)

	screen.Printf("type \"help\" for commands")
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			if !handleLine(ctx, line, w, admin, store, screen, stop) {
				break loop
			}
		}
	}

	stop()
	<-wizardDone
	logger.Debug("shutting down")

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown", "error", err)
		}
	}
}

// handleLine runs one command. It returns false when the program should exit.
func handleLine(
	ctx context.Context,
	line string,
	w *wizard.Orchestrator,
	admin *adminlogin.Controller,
	store tokenstore.Store,
	screen *terminal.Screen,
	quit context.CancelFunc,
) bool {
	snap, _ := screen.Current()
	cmd, err := terminal.Parse(line, snap)
	if err != nil {
		screen.Printf("! %v", err)
		return true
	}

	switch cmd.Action {
	case terminal.ActionEvents:
		for _, ev := range cmd.Events {
			w.Post(ev)
		}
	case terminal.ActionAdmin:
		go func() {
			to, err := admin.Submit(ctx, cmd.Admin)
			if err != nil {
				screen.Printf("[admin] %s", adminlogin.Message(err))
				return
			}
			screen.Printf("[admin] Login successful! Redirecting to %s", to)
			quit()
		}()
	case terminal.ActionLogout:
		if err := store.Delete(domain.TokenKey); err != nil {
			screen.Printf("! logout: %v", err)
			return true
		}
		screen.Printf("signed out")
	case terminal.ActionHelp:
		screen.Printf("%s", terminal.Help)
	case terminal.ActionQuit:
		return false
	}
	return true
}

// navigator handles the wizard's redirects. It runs on the wizard's
// dispatch goroutine, so it must never post back into the wizard.
func navigator(screen *terminal.Screen, store tokenstore.Store, quit context.CancelFunc) func(string) {
	return func(location string) {
		showIdentity(screen, store)
		screen.Printf("-> %s", location)
		if location == wizard.LocationDashboard {
			quit()
		}
	}
}

func showIdentity(screen *terminal.Screen, store tokenstore.Store) {
	token, ok, err := store.Get(domain.TokenKey)
	if err != nil || !ok {
		return
	}
	id, err := tokenstore.Describe(token)
	if errors.Is(err, tokenstore.ErrOpaqueToken) {
		screen.Printf("signed in (opaque token)")
		return
	}
	if name := id.Name(); name != "" {
		screen.Printf("signed in as %s", name)
		return
	}
	screen.Printf("signed in")
}

func pumpStdin(lines chan<- string) {
	defer close(lines)
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		lines <- sc.Text()
	}
}

// Logs go to stderr so they do not interleave with the rendered page.
func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
