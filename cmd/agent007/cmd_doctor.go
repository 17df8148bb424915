package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/alecthomas/kong"
	"github.com/elee1766/agent007/src/app"
	"github.com/elee1766/agent007/src/config"
	"github.com/elee1766/agent007/src/repl"
	"github.com/elee1766/agent007/src/storage"
	"github.com/elee1766/agent007/src/theme"
	"github.com/shirou/gopsutil/v3/host"
)

// DoctorCmd checks the host, configuration and backend
type DoctorCmd struct {
	Timeout time.Duration `help:"Time allowed for each backend check" default:"5s"`
}

// Run executes the doctor command
func (c *DoctorCmd) Run(kctx *kong.Context, cli *CLI) error {
	out := os.Stdout
	styles := theme.New(repl.IsStdoutTTY())
	ok := func(format string, args ...any) {
		fmt.Fprintf(out, "  %s %s\n", styles.OK("✓"), fmt.Sprintf(format, args...))
	}
	bad := func(format string, args ...any) {
		fmt.Fprintf(out, "  %s %s\n", styles.Error("✗"), fmt.Sprintf(format, args...))
	}

	fmt.Fprintln(out, styles.Heading("System"))
	printHost(ok)

	fmt.Fprintln(out, styles.Heading("Configuration"))
	cfg, sources, err := loadConfig(cli, configOverrides{})
	if err != nil {
		bad("%v", err)
		return err
	}
	for _, s := range sources {
		switch {
		case s.Source == config.SourceDefault:
			ok("built-in defaults")
		default:
			ok("%s: %s", s.Source, s.Path)
		}
	}

	fmt.Fprintln(out, styles.Heading("Backend"))
	logger := createCLILogger(cfg.Logging.Level)
	provider, err := app.NewProvider(cfg, logger)
	if err != nil {
		bad("%v", err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()
	backendErr := provider.Ping(ctx)
	if backendErr != nil {
		bad("%s backend unreachable: %v", provider.Name(), backendErr)
	} else {
		ok("%s backend reachable", provider.Name())
		if model, err := provider.GetModel(ctx, cfg.Agent.Model); err != nil {
			bad("model %s: %v", cfg.Agent.Model, err)
		} else {
			detail := model.ID
			if model.ParameterSize != "" {
				detail += " (" + model.ParameterSize + ")"
			}
			ok("model %s available", detail)
		}
	}

	fmt.Fprintln(out, styles.Heading("Archive"))
	printArchive(cfg, ok, bad)

	return backendErr
}

func printHost(ok func(string, ...any)) {
	info, err := host.Info()
	if err != nil {
		ok("%s/%s", runtime.GOOS, runtime.GOARCH)
		return
	}
	platform := info.Platform
	if info.PlatformVersion != "" {
		platform += " " + info.PlatformVersion
	}
	ok("%s %s (%s)", info.OS, platform, info.KernelArch)
	ok("go %s", runtime.Version())
}

func printArchive(cfg *config.Config, ok, bad func(string, ...any)) {
	path := cfg.Storage.DatabasePath
	state := "off"
	if cfg.Storage.Record {
		state = "on"
	}
	if _, err := os.Stat(path); err != nil {
		ok("recording %s, no archive yet at %s", state, path)
		return
	}
	db, err := storage.Open(path)
	if err != nil {
		bad("archive %s: %v", path, err)
		return
	}
	defer db.Close()
	version, err := db.SchemaVersion()
	if err != nil {
		bad("archive %s: %v", path, err)
		return
	}
	ok("recording %s, archive %s (schema v%d)", state, path, version)
}
