package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/elee1766/agent007/src/aisdk"
	"github.com/elee1766/agent007/src/app"
)

// ModelCmd manages model operations
type ModelCmd struct {
	List ModelListCmd `cmd:"" help:"List available models"`
	Info ModelInfoCmd `cmd:"" help:"Get information about a specific model"`
}

// ModelListCmd lists available models
type ModelListCmd struct {
	Format string `help:"Output format (table, json)" enum:"table,json" default:"table"`
}

// Run executes the model list command
func (c *ModelListCmd) Run(kctx *kong.Context, cli *CLI) error {
	provider, err := newProvider(cli)
	if err != nil {
		return err
	}

	models, err := provider.GetModels(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })

	switch c.Format {
	case "json":
		return printJSON(os.Stdout, models)
	default:
		return printModelsTable(os.Stdout, models)
	}
}

// ModelInfoCmd gets information about a specific model
type ModelInfoCmd struct {
	Model  string `arg:"" optional:"" help:"Model name (defaults to the configured model)"`
	Format string `help:"Output format (table, json)" enum:"table,json" default:"table"`
}

// Run executes the model info command
func (c *ModelInfoCmd) Run(kctx *kong.Context, cli *CLI) error {
	cfg, _, err := loadConfig(cli, configOverrides{})
	if err != nil {
		return err
	}
	provider, err := app.NewProvider(cfg, createCLILogger(cfg.Logging.Level))
	if err != nil {
		return err
	}

	name := c.Model
	if name == "" {
		name = cfg.Agent.Model
	}
	model, err := provider.GetModel(context.Background(), name)
	if err != nil {
		return fmt.Errorf("failed to get model info: %w", err)
	}

	switch c.Format {
	case "json":
		return printJSON(os.Stdout, model)
	default:
		return printModelTable(os.Stdout, model)
	}
}

func newProvider(cli *CLI) (aisdk.Provider, error) {
	cfg, _, err := loadConfig(cli, configOverrides{})
	if err != nil {
		return nil, err
	}
	return app.NewProvider(cfg, createCLILogger(cfg.Logging.Level))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printModelsTable(out io.Writer, models []*aisdk.ModelInfo) error {
	if len(models) == 0 {
		_, err := fmt.Fprintln(out, "No models available")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tFAMILY\tPARAMETERS\tQUANTIZATION\tSIZE\tMODIFIED")
	for _, m := range models {
		modified := ""
		if !m.ModifiedAt.IsZero() {
			modified = m.ModifiedAt.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			m.ID, dash(m.Family), dash(m.ParameterSize), dash(m.Quantization), formatBytes(m.Size), dash(modified))
	}
	return w.Flush()
}

func printModelTable(out io.Writer, m *aisdk.ModelInfo) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", m.ID)
	if m.Name != "" && m.Name != m.ID {
		fmt.Fprintf(w, "Name:\t%s\n", m.Name)
	}
	if m.Description != "" {
		fmt.Fprintf(w, "Description:\t%s\n", m.Description)
	}
	if m.OwnedBy != "" {
		fmt.Fprintf(w, "Owned by:\t%s\n", m.OwnedBy)
	}
	fmt.Fprintf(w, "Family:\t%s\n", dash(m.Family))
	fmt.Fprintf(w, "Parameters:\t%s\n", dash(m.ParameterSize))
	fmt.Fprintf(w, "Quantization:\t%s\n", dash(m.Quantization))
	if m.ContextLength > 0 {
		fmt.Fprintf(w, "Context length:\t%d\n", m.ContextLength)
	}
	if m.Size > 0 {
		fmt.Fprintf(w, "Size:\t%s\n", formatBytes(m.Size))
	}
	if m.Digest != "" {
		fmt.Fprintf(w, "Digest:\t%s\n", m.Digest)
	}
	return w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatBytes renders a byte count with a binary unit.
func formatBytes(n int64) string {
	if n <= 0 {
		return "-"
	}
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
