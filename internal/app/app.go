package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/syncwatch/server/internal/controller"
	"github.com/syncwatch/server/internal/metrics"
	connInmemory "github.com/syncwatch/server/internal/repository/connection/inmemory"
	roomInmemory "github.com/syncwatch/server/internal/repository/room/inmemory"
	"github.com/syncwatch/server/internal/service/room"
	"github.com/syncwatch/server/pkg/ctxlogger"
)

type AppConfig struct {
	Host             string        `json:"host"`
	Port             int           `json:"port"`
	LogLevel         string        `json:"log_level"`
	ChatHistoryLimit int           `json:"chat_history_limit"`
	TransferTimeout  time.Duration `json:"transfer_timeout"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be in 1..65535")
	}
	if cfg.ChatHistoryLimit < 1 {
		return fmt.Errorf("chat history limit must be greater than 0")
	}
	if cfg.TransferTimeout < time.Second {
		return fmt.Errorf("transfer timeout must be at least 1s")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		log.Fatal(err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	roomRepo := roomInmemory.NewRepo(cfg.ChatHistoryLimit)
	connectionRepo := connInmemory.NewRepo()
	m := metrics.New()
	roomService := room.NewService(roomRepo, connectionRepo, m, logger, &room.Config{
		TransferTimeout: cfg.TransferTimeout,
	})
	metricsHandler := m.Handler(func() {
		m.SetActiveRooms(roomRepo.RoomCount(ctx))
		m.SetLiveConnections(connectionRepo.Count())
	})
	controller := controller.NewController(roomService, connectionRepo, m, metricsHandler, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: controller.GetRouter()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
