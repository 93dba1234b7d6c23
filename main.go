package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/kardianos/osext"
	_ "github.com/mattn/go-sqlite3" // Just needed for the sqlite driver
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	sked "github.com/tbrandt/sked/internal"
	"github.com/tbrandt/sked/internal/ctxhelper"
	"github.com/tbrandt/sked/internal/log"
	"github.com/tbrandt/sked/internal/migrate"
	eventrepo "github.com/tbrandt/sked/internal/repos/event/sqlite"
)

const (
	appName    = "Sked"
	appVersion = "0.1.0"
	dbFile     = "sked.db"
)

// aliveURL builds the local liveness URL the watchdog pings from the configured
// listen address
func aliveURL(listenAddress string) (string, error) {
	_, port, err := net.SplitHostPort(listenAddress)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("http://127.0.0.1:%s/alive", port), nil
}

// Checks and tries to create the given directory recursively (or panics if this fails)
func checkAndCreateDir(path string, logger *logrus.Entry) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if e, ok := err.(*os.PathError); ok && e.Err == syscall.ENOENT {
			logger.WithField(log.FldPath, path).Info("Directory does not exist - trying to create...")
			if err = os.MkdirAll(path, os.ModePerm); err != nil {
				logger.WithError(err).Fatal("Failed to create directory")
			}
			logger.Info("Directory created successfully")
		} else {
			logger.WithError(err).Fatal("Stat has failed")
		}
	} else {
		if !fileInfo.IsDir() {
			logger.Fatalf("'%s' is not a directory. Remove the plain file if you want to continue", path)
		}
	}
}

func main() {
	// A .env file next to the working directory may override environment defaults
	godotenv.Load()

	execDir, err := osext.ExecutableFolder()
	if err != nil {
		panic(err)
	}

	configFile := flag.String(
		"config",
		filepath.Join(execDir, "config.json"),
		"The configuration file to load the application's configuration from",
	)
	flag.Parse()

	ctx := context.Background()

	// Initialize the logger
	logger := logrus.WithField(log.FldVersion, appVersion)
	logger.Infof("%s version %s is starting up...", appName, appVersion)
	ctx = context.WithValue(ctx, ctxhelper.KeyLogger, logger)

	// Load the main configuration file
	cs := sked.NewConfigService(*configFile)
	if err := cs.Load(ctx); err != nil {
		logger.WithError(err).Error("Cannot load config. Using defaults")
	}
	conf := cs.GetConfig(ctx)

	logger.Infof("Using '%s' as data directory", conf.DataDir)
	checkAndCreateDir(conf.DataDir, logger)

	// Set up the database connection and perform pending migrations.
	// Foreign key enforcement is a per-connection setting in SQLite, so it is
	// requested via the DSN instead of a one-off PRAGMA statement.
	dbFileName := path.Join(conf.DataDir, dbFile)
	var db *sqlx.DB
	if db, err = sqlx.Open("sqlite3", dbFileName+"?_foreign_keys=on"); err != nil {
		logger.WithError(err).Fatal("Failed to open database connection")
	}
	logger.Info("Performing database migrations...")
	if err = migrate.ExecuteMigrationsOnDb(db, logger); err != nil {
		logger.WithError(err).Fatal("Database migration has failed. Please check database for consistency and try again.")
	}

	eventRepo := eventrepo.New(db, logger)
	evSrv := sked.NewEventService(eventRepo, logger)

	httpLogger := logger.WithField(log.FldTransport, "HTTP")

	h := sked.MakeHTTPHandler(evSrv, httpLogger)

	// Start listening
	errs := make(chan error)

	// Listen for stop signals that will end the service
	go func() {
		c := make(chan os.Signal, 2)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		err := fmt.Errorf("%s", <-c)
		logger.Info("Caught signal to stop. Shutting down.")
		errs <- err
	}()

	go func() {
		httpLogger.WithField("addr", conf.ListenAddress).Info("Starting listening port")
		errs <- http.ListenAndServe(conf.ListenAddress, h)
	}()

	// Watchdog for systemd
	go func() {
		interval, err := daemon.SdWatchdogEnabled(false)
		if err != nil || interval == 0 {
			return
		}
		url, err := aliveURL(conf.ListenAddress)
		if err != nil {
			logger.WithError(err).Warn("Cannot determine listen port - systemd watchdog stays disabled")
			return
		}
		logger.Info("Activating systemd watchdog goroutine")
		for {
			if _, err := http.Get(url); err == nil {
				daemon.SdNotify(false, "WATCHDOG=1")
			}
			time.Sleep(interval / 3)
		}
	}()

	// Notify systemd that we are ready to go (if available)
	daemon.SdNotify(false, "READY=1")

	logger.WithError(<-errs).Error("Shutdown complete")
}
