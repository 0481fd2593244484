package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"grepconsole/src/console"
	"grepconsole/src/pipeline"
	"grepconsole/src/sink"
)

var serveFlags struct {
	grep    grepFlags
	addr    string
	console string
}

// serveCmd streams matched lines to websocket clients
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Stream matched lines to websocket clients",
	Long: `Serve a websocket endpoint at /ws that streams matched lines as JSON events.

Lines published by 'run --publish' and 'consume --publish' are relayed. With
grep flags, serve also greps the published raw output itself (optionally of a
single console) and streams those matches too.

Clients may add ?console=<id> to follow one console, or send
{"type":"follow","consoles":[...]} and {"type":"unfollow",...}.

Requires distributed mode (REDPANDA_BROKERS).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapError(serve())
	},
}

func init() {
	serveFlags.grep.register(serveCmd)
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&serveFlags.console, "console", "", "grep only the output of this console")
}

func serve() error {
	if err := requireDistributed("serve"); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.Open(ctx, appConfig, log)
	if err != nil {
		return err
	}
	defer p.Close()

	hub := sink.NewHub(log)
	go hub.Run(ctx)
	go func() {
		if err := hub.Relay(ctx, p.Broker, "grepconsole-serve-"+uuid.NewString()); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("[Serve] Relay stopped: %v", err)
		}
	}()

	if serveFlags.grep.set() {
		src := console.New(console.Options{
			Name:         "published output",
			HistoryLines: appConfig.HistoryLines,
			Profile:      appConfig.Profile(),
			Logger:       log,
			Notifier:     hub,
		})
		g, err := src.OpenGrep(serveFlags.grep.modelOrNil(), console.GrepOptions{})
		if err != nil {
			return err
		}
		if _, err := g.Attach(console.SinkListener(hub.Sink(g.ID(), g.Title)), false); err != nil {
			return err
		}
		pipeline.Start(ctx, p.Broker, src, serveFlags.console)
		log.Info("Grepping published output as console %s", g.ID())
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := &http.Server{Addr: serveFlags.addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info("Serving websocket on %s/ws", serveFlags.addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
