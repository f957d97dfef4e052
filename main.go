package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/JesusOliveto/CalCalculator/cmd"
	"github.com/JesusOliveto/CalCalculator/internal/app"
	"github.com/JesusOliveto/CalCalculator/internal/buildinfo"
	"github.com/JesusOliveto/CalCalculator/internal/conf"
	"github.com/JesusOliveto/CalCalculator/internal/errors"
	"github.com/JesusOliveto/CalCalculator/internal/logging"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		// config init repairs a broken configuration, so it runs on defaults.
		if !isConfigCommand(os.Args[1:]) {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			return 1
		}
		settings = conf.DefaultSettings()
	}

	build := buildinfo.NewContext(version, buildDate)

	if settings.Sentry.Enabled {
		if err := errors.InitSentry(settings.Sentry.DSN, build.GetVersion()); err != nil {
			logging.Warn("failed to initialize sentry", "error", err)
		} else {
			defer errors.FlushSentry(2 * time.Second)
		}
	}

	if settings.Main.Log.Enabled && settings.Main.Log.Path != "" {
		closeLog, err := logging.AddFileOutput(settings.Main.Log.Path, logging.RotationConfig{
			Rotation: settings.Main.Log.Rotation,
			MaxSize:  settings.Main.Log.MaxSize,
		})
		if err != nil {
			logging.Warn("failed to open log file", "path", settings.Main.Log.Path, "error", err)
		} else {
			defer func() { _ = closeLog() }()
		}
	}

	factory := app.NewFactory(settings, app.Options{Build: build})
	rootCmd := cmd.RootCommand(settings, factory)
	rootCmd.Version = build.GetVersion()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// valueFlags are the persistent flags that consume the following argument
// unless written as --flag=value.
var valueFlags = []string{"--timezone", "--goal", "--sheet"}

// isConfigCommand reports whether the subcommand, the first argument that is
// neither a flag nor a flag value, is config.
func isConfigCommand(args []string) bool {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			return i+1 < len(args) && args[i+1] == "config"
		case strings.HasPrefix(arg, "-"):
			if slices.Contains(valueFlags, arg) {
				i++
			}
		default:
			return arg == "config"
		}
	}
	return false
}
