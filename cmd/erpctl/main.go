package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/odyssey-erp/erp-api/cmd/erpctl/cli"
	"github.com/odyssey-erp/erp-api/internal/app"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping erpctl")
		return
	}
	_ = godotenv.Load()

	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
