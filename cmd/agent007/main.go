package main

import (
	"github.com/alecthomas/kong"
)

var version = "dev"

// CLI represents the main CLI structure
type CLI struct {
	ConfigFile  string   `name:"config" short:"c" help:"Config file to load after the standard locations (JSON or TOML)" type:"path"`
	LogLevel    string   `help:"Log level (debug, info, warn, error)"`
	Provider    string   `help:"Backend provider (ollama, openai)"`
	BaseURL     string   `help:"Backend base URL"`
	Model       string   `short:"m" help:"Model to chat with"`
	APIKey      string   `env:"AGENT007_API_KEY" help:"API key for the openai provider"`
	Temperature *float64 `help:"Sampling temperature"`

	Version kong.VersionFlag `help:"Print version and exit"`

	Chat    ChatCmd    `cmd:"" default:"1" help:"Start an interactive chat (default)"`
	Ask     AskCmd     `cmd:"" help:"Ask a single question and print the answer"`
	Models  ModelCmd   `cmd:"" name:"model" help:"Inspect models served by the backend"`
	History HistoryCmd `cmd:"" help:"Browse recorded conversations"`
	Cfg     ConfigCmd  `cmd:"" name:"config" help:"Inspect configuration"`
	Doctor  DoctorCmd  `cmd:"" help:"Check the environment and backend"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("agent007"),
		kong.Description("A small conversational assistant for local language models"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{"version": version},
	)

	err := ctx.Run(&cli)
	if err != nil {
		NewErrorHandler(createCLILogger(cli.LogLevel)).HandleError(err)
	}
}
