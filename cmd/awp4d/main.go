package main

import (
	"fmt"
	"os"

	"github.com/alexanderramin/awp4d/internal/cli"
	"github.com/alexanderramin/awp4d/internal/config"
	"github.com/alexanderramin/awp4d/internal/db"
	"github.com/alexanderramin/awp4d/internal/repository"
	"github.com/alexanderramin/awp4d/internal/service"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := config.NewLogger(cfg, os.Stderr)

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	session := repository.NewSQLiteSession(database)

	var opts []service.Option
	if cfg.LogUseCases {
		opts = append(opts, service.WithObserver(service.NewLogUseCaseObserver(os.Stderr)))
	}

	app := cli.NewSessionApp(session, logger, opts...)
	app.OptionsPath = cfg.OptionsPath

	// Live progress only when stdout is a terminal.
	app.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}

	return cli.NewRootCmd(app).Execute()
}
