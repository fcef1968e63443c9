package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/rummikub/config"
	"github.com/domino14/rummikub/shell"
	"github.com/domino14/rummikub/store"
)

var (
	GitVersion string
)

//go:embed banner.txt
var banner string

func main() {
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	exPath := filepath.Dir(ex)

	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	output.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("%s", i)
	}
	output.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("%s:", i)
	}

	var logger zerolog.Logger
	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		logger = zerolog.New(output).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		logger = zerolog.New(output).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	}
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger
	logger.Debug().Msg("Debug logging is on")
	log.Debug().Msgf("Loaded config: %v", cfg.SanitizedSettings())

	commandLine := strings.TrimSpace(strings.Join(cfg.Args(), " "))
	if commandLine == "" {
		fmt.Println(banner)
		fmt.Println(GitVersion)
	}

	st, err := store.Open(context.Background(), cfg.GetString(config.ConfigDataPath))
	if err != nil {
		log.Fatal().Err(err).Msg("opening-game-store")
	}
	sc, err := shell.NewShellController(cfg, st, exPath, GitVersion)
	if err != nil {
		st.Close()
		log.Fatal().Err(err).Msg("starting-shell")
	}

	quit := make(chan struct{})
	sig := make(chan os.Signal, 1)
	go func() {
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		for s := range sig {
			// Ctrl-C during a solve stops the solve, not the console.
			if s == syscall.SIGINT && sc.Interrupt() {
				continue
			}
			break
		}
		log.Debug().Msg("got quit signal...")
		close(quit)
	}()

	if commandLine == "" {
		go sc.Loop(sig)
	} else {
		sc.Execute(sig, commandLine)
		sig <- syscall.SIGINT
	}

	<-quit
	sc.Cleanup()
}
