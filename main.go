package main

import (
	"context"
	"fmt"
	"os"

	"github.com/vasu-ramanujam/teriyaki-chasers/cmd"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/app"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/buildinfo"
)

// Build metadata, set with -ldflags "-X main.version=... -X main.buildDate=... -X main.commit=..."
var (
	version   string
	buildDate string
	commit    string
)

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	appCtx := &app.Context{
		BuildInfo: buildinfo.NewContext(version, buildDate, commit),
	}

	rootCmd := cmd.RootCommand(appCtx)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
