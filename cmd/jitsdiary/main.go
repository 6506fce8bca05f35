package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jitsdiary/jitsdiary/internal/app"
	"github.com/jitsdiary/jitsdiary/internal/config"
)

const usage = `usage: jitsdiary [-config path] <command>

commands:
  all      run the record store and the diary app in one process (default)
  store    run only the record store
  serve    run only the diary app
  migrate  apply the database schema and exit
`

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "all"
	}

	cfg, errLoad := config.Load(*configPath)
	if errLoad != nil {
		log.Fatalf("load config: %v", errLoad)
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var errRun error
	switch command {
	case "all":
		errRun = app.RunAll(ctx, cfg)
	case "store":
		errRun = app.RunStore(ctx, cfg)
	case "serve":
		errRun = app.RunApp(ctx, cfg)
	case "migrate":
		errRun = app.Migrate(cfg)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if errRun != nil {
		log.Fatalf("%s: %v", command, errRun)
	}
}

func setupLogging(cfg config.Config) {
	level, errLevel := log.ParseLevel(cfg.LogLevel)
	if errLevel != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.LogFile != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
}
