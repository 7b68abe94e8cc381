package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"pokertable-server/internal/config"
	"pokertable-server/internal/jwt"
	"pokertable-server/internal/mux"
	"pokertable-server/internal/storage"
	"pokertable-server/pkg/ledger"
	"pokertable-server/pkg/room"
)

const readTimeout = time.Second * 5
const shutdownTimeout = time.Second * 15

// Version is the server version
var Version = "v0.0.0-dev"

var addr = flag.String("addr", "", "the listen address, overrides the configuration")

func main() {
	flag.Parse()
	setupLogger()

	cfg := config.Instance()

	// fail fast
	jwt.LoadKeys()

	store, storeCloser, err := storage.OpenStore(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("could not open ledger")
	}
	defer storeCloser.Close()

	publisher, publisherCloser, err := storage.OpenPublisher(cfg, "pokertable-server")
	if err != nil {
		logrus.WithError(err).Fatal("could not connect to nats")
	}
	defer publisherCloser.Close()

	l := ledger.NewService(store, cfg.Ledger.Retry, publisher)

	pitBoss, err := room.NewPitBoss(cfg.RoomOptions(), l, publisher)
	if err != nil {
		logrus.WithError(err).Fatal("invalid room options")
	}
	pitBoss.StartShift()

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "X-Requested-With", "Authorization"},
		AllowedMethods: []string{http.MethodGet},
	})

	listen := cfg.Host
	if *addr != "" {
		listen = *addr
	}

	// the write timeout would cut websocket connections, those manage their own deadlines
	srv := &http.Server{
		Addr:        listen,
		Handler:     loggingHandler(cfg, c.Handler(mux.NewMux(Version, pitBoss, l))),
		ReadTimeout: readTimeout,
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"addr":    srv.Addr,
			"version": Version,
		}).Info("listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server stopped")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logrus.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("could not shut down cleanly")
	}

	// release every seat back to the ledger
	if err := pitBoss.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("rooms did not settle before shutdown")
	}
}

func loggingHandler(cfg config.Config, next http.Handler) http.Handler {
	if !cfg.AccessLog {
		return next
	}

	return handlers.CombinedLoggingHandler(os.Stdout, next)
}

func setupLogger() {
	if lvl := config.Instance().LogLevel; lvl != "" {
		level, err := logrus.ParseLevel(lvl)
		if err != nil {
			logrus.WithError(err).Fatal("could not parse level")
		}

		logrus.SetLevel(level)
	}

	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}
