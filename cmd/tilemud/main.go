// Command tilemud runs the game server: it loads the world and command
// aliases from the data directory, starts the classifier worker pool and
// listens for player connections until interrupted.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cyberinferno/tilemud/internal/cacher"
	"github.com/cyberinferno/tilemud/internal/command"
	"github.com/cyberinferno/tilemud/internal/config"
	"github.com/cyberinferno/tilemud/internal/game"
	"github.com/cyberinferno/tilemud/internal/logger"
	"github.com/cyberinferno/tilemud/internal/nlp"
	"github.com/cyberinferno/tilemud/internal/server"
)

func main() {
	confPath := flag.String("conf", "./config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := loadConfig(*confPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Close()

	if err := run(cfg, log); err != nil {
		log.Error("server failed to start", logger.Field{Key: "error", Value: err.Error()})
		os.Exit(2)
	}
}

// loadConfig reads the configuration file, falling back to defaults when the
// default path does not exist. An explicitly given path must exist.
func loadConfig(path string) (config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && !flagWasSet("conf") {
		return config.Default(), nil
	}

	return config.Read(path)
}

func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func newLogger(cfg config.Config) (logger.Logger, error) {
	level := logger.ParseLevel(cfg.LogLevel)
	if cfg.LogPath != "" {
		return logger.NewZerologFileLogger("tilemud", cfg.LogPath, level)
	}

	return logger.NewZerologLogger(os.Stdout, "tilemud", level), nil
}

func run(cfg config.Config, log logger.Logger) error {
	world, err := game.LoadWorld(cfg.DataPath)
	if err != nil {
		return err
	}
	log.Info("world loaded",
		logger.Field{Key: "rooms", Value: world.RoomCount()},
		logger.Field{Key: "items", Value: world.Items().Count()},
		logger.Field{Key: "npcs", Value: world.Npcs().Count()})

	aliases, err := command.LoadAliases(filepath.Join(cfg.DataPath, "commands.json"))
	if err != nil {
		return err
	}

	classifier := nlp.NewClient(cfg.ClassifierURL, cfg.ClassifierModel, log)
	pool := nlp.NewPool(cfg.WorkerPoolSize, classifier, newVerdictCache(cfg), log)
	pool.Start()
	defer pool.Stop()

	srv, err := server.NewServer(cfg, log, world, command.NewRegistry(log), aliases, pool)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutdown signal received")
	srv.Stop()
	return nil
}

// newVerdictCache picks the classifier result cache backend. Redis lets a
// fleet of servers share verdicts; memory is fine for a single instance.
func newVerdictCache(cfg config.Config) cacher.Cacher[nlp.ParsedCommand] {
	if cfg.CacheBackend == "redis" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return cacher.NewRedisCacher[nlp.ParsedCommand](client, "tilemud:verdict")
	}

	return cacher.NewMemoryCacher[nlp.ParsedCommand](10*time.Minute, time.Minute)
}
