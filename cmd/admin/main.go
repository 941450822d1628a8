package main

import (
	"os"

	"github.com/fatih/color"

	"github.com/unclebandit/crowdfund-backend/internal/app"
	"github.com/unclebandit/crowdfund-backend/internal/cli"
	"github.com/unclebandit/crowdfund-backend/internal/config"
	"github.com/unclebandit/crowdfund-backend/internal/db"
)

func open() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, err
	}
	a, err := app.New(cfg, conn, nil)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return a, nil
}

func main() {
	if err := cli.NewRootCmd(open).Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
