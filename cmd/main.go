package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"smartpot/internal/bridge"
	"smartpot/internal/handlers"
	"smartpot/internal/history"
	"smartpot/internal/logger"
	"smartpot/internal/repository"
	"smartpot/internal/repository/db"
	"smartpot/internal/server"
	"smartpot/internal/service"

	"github.com/spf13/viper"
)

// @title           Smart Pot API
// @version         1.0
// @description     Telemetry bridge and boiling-session tracker for an ESP32 smart pot.
// @BasePath        /
func main() {
	if err := loadConfig(); err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Get(viper.GetString("log.level"))

	// open DB
	sqlDB, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// connect to the MQTT broker
	br, err := openBridge(log)
	if err != nil {
		log.Fatalw("invalid mqtt config", "err", err)
	}
	defer br.Close()
	if err := br.Connect(); err != nil {
		// The bridge keeps retrying in the background; the API stays up.
		log.Errorw("mqtt broker unreachable, will keep retrying", "err", err)
	}

	// wire dependencies
	cache := history.NewFileStorage(cachePath())
	hist := history.NewStore(cache, log)
	repos := repository.NewRepository(sqlDB)
	services := service.NewService(repos, br, hist, cache, log)
	apiHandler := handlers.NewHandler(services, log, streamConfig())

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// feed the point history and watch for device auto-stop
	recorder := service.NewRecorder(services.Telemetry, hist, log)
	go recorder.Run(ctx, service.RecorderTick)

	watcher := service.NewWatcher(services.Sessions, log)
	detach := br.Attach(bridge.Subscriber{OnReading: watcher.OnReading})
	defer detach()

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	viper.SetEnvPrefix("SMARTPOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	return viper.ReadInConfig()
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "smartpot.db")
		dbPath = "smartpot.db"
	}
	return db.InitDB(dbPath)
}

// openBridge builds the MQTT bridge from configuration. TLS is used
// when all three credential files are configured.
func openBridge(log *logger.Logger) (bridge.Bridge, error) {
	cfg := bridge.Config{
		BrokerURL: viper.GetString("mqtt.broker"),
		Topic:     viper.GetString("mqtt.topic"),
		CAFile:    viper.GetString("mqtt.tls.ca_file"),
		CertFile:  viper.GetString("mqtt.tls.cert_file"),
		KeyFile:   viper.GetString("mqtt.tls.key_file"),
	}
	return bridge.New(cfg, log)
}

func cachePath() string {
	if p := viper.GetString("cache.path"); p != "" {
		return p
	}
	return "smartpot-cache.json"
}

func streamConfig() handlers.StreamConfig {
	return handlers.StreamConfig{
		Policy:       viper.GetString("stream.policy"),
		PollInterval: viper.GetDuration("stream.poll_interval"),
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
