package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/alecthomas/kong"
	"github.com/elee1766/agent007/src/config"
	"github.com/elee1766/agent007/src/repl"
	"github.com/elee1766/agent007/src/theme"
	"github.com/spf13/afero"
)

// ConfigCmd inspects configuration
type ConfigCmd struct {
	Show   ConfigShowCmd   `cmd:"" default:"1" help:"Print the effective configuration"`
	Schema ConfigSchemaCmd `cmd:"" help:"Print the JSON Schema of the configuration file"`
	Diff   ConfigDiffCmd   `cmd:"" help:"Show how the effective configuration differs from the defaults"`
	Path   ConfigPathCmd   `cmd:"" help:"List the configuration files that are searched"`
	Init   ConfigInitCmd   `cmd:"" help:"Write the default configuration to a file"`
}

// highlight writes src to w, colorized when w is a terminal.
func highlight(w io.Writer, src, lexer string) error {
	if repl.IsStdoutTTY() {
		if err := quick.Highlight(w, src, lexer, "terminal256", "monokai"); err == nil {
			return nil
		}
	}
	_, err := io.WriteString(w, src)
	return err
}

// ConfigShowCmd prints the effective configuration
type ConfigShowCmd struct {
	Format string `help:"Output format (json, toml)" enum:"json,toml" default:"json"`
}

// Run executes the config show command
func (c *ConfigShowCmd) Run(kctx *kong.Context, cli *CLI) error {
	cfg, _, err := loadConfig(cli, configOverrides{})
	if err != nil {
		return err
	}
	data, err := config.Marshal(cfg, "."+c.Format)
	if err != nil {
		return err
	}
	if err := highlight(os.Stdout, string(data), c.Format); err != nil {
		return err
	}
	if cfg.API.APIKey != "" {
		fmt.Fprintf(os.Stderr, "api key: %s (not shown above)\n", maskAPIKey(cfg.API.APIKey))
	}
	return nil
}

// ConfigSchemaCmd prints the configuration JSON Schema
type ConfigSchemaCmd struct{}

// Run executes the config schema command
func (c *ConfigSchemaCmd) Run(kctx *kong.Context, cli *CLI) error {
	data, err := config.JSONSchema()
	if err != nil {
		return err
	}
	return highlight(os.Stdout, string(data), "json")
}

// ConfigDiffCmd prints a diff between defaults and the effective config
type ConfigDiffCmd struct{}

// Run executes the config diff command
func (c *ConfigDiffCmd) Run(kctx *kong.Context, cli *CLI) error {
	cfg, _, err := loadConfig(cli, configOverrides{})
	if err != nil {
		return err
	}
	diff, err := config.Diff(cfg)
	if err != nil {
		return err
	}
	if diff == "" {
		fmt.Println("Effective configuration matches the defaults.")
		return nil
	}
	return highlight(os.Stdout, diff, "diff")
}

// ConfigPathCmd lists searched configuration files
type ConfigPathCmd struct{}

// Run executes the config path command
func (c *ConfigPathCmd) Run(kctx *kong.Context, cli *CLI) error {
	_, sources, err := loadConfig(cli, configOverrides{})
	if err != nil {
		return err
	}
	styles := theme.New(repl.IsStdoutTTY())

	loaded := map[string]bool{}
	for _, s := range sources {
		loaded[s.Path] = true
	}

	paths := config.GetConfigPaths()
	layers := []struct {
		name string
		base string
	}{
		{"system", paths.SystemConfig},
		{"user", paths.UserConfig},
		{"project", paths.ProjectConfig},
		{"local", paths.LocalConfig},
	}
	for _, l := range layers {
		for _, ext := range []string{".json", ".toml"} {
			path := l.base + ext
			mark := styles.Muted("-")
			if loaded[path] {
				mark = styles.OK("✓")
			}
			fmt.Printf("%s %-8s %s\n", mark, l.name, path)
		}
	}
	if cli.ConfigFile != "" {
		fmt.Printf("%s %-8s %s\n", styles.OK("✓"), "explicit", cli.ConfigFile)
	}
	dotenv := styles.Muted("-")
	if loaded[paths.DotEnvFile] {
		dotenv = styles.OK("✓")
	}
	fmt.Printf("%s %-8s %s\n", dotenv, "dotenv", paths.DotEnvFile)

	for _, s := range sources {
		if s.Source == config.SourceEnvironment {
			fmt.Printf("%s %-8s %s\n", styles.OK("✓"), "env", s.Path)
		}
	}
	return nil
}

// ConfigInitCmd writes a starter configuration file
type ConfigInitCmd struct {
	Path  string `arg:"" optional:"" help:"Destination file (.json or .toml); defaults to the user config file" type:"path"`
	Force bool   `help:"Overwrite an existing file"`
}

// Run executes the config init command
func (c *ConfigInitCmd) Run(kctx *kong.Context, cli *CLI) error {
	path := c.Path
	if path == "" {
		path = config.UserConfigFile()
	}

	fsys := afero.NewOsFs()
	if _, err := fsys.Stat(path); err == nil && !c.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	loader := config.NewLoader(config.ConfigPrecedence{}).WithFs(fsys)
	if err := loader.SaveFile(config.DefaultConfig(), path); err != nil {
		return &ConfigError{Err: err}
	}
	fmt.Printf("Wrote %s\n", filepath.Clean(path))
	return nil
}
