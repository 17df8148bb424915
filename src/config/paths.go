package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
)

const appName = "agent007"

// StateDir is where runtime state (archive, logs, input history) lives.
func StateDir() string {
	return filepath.Join(xdg.StateHome, appName)
}

// DefaultDatabasePath returns the transcript archive location.
func DefaultDatabasePath() string {
	return filepath.Join(StateDir(), "transcripts.db")
}

// DefaultLogFile returns the log file used during interactive chat.
func DefaultLogFile() string {
	return filepath.Join(StateDir(), "logs", appName+".log")
}

// DefaultHistoryFile returns the line editor history file.
func DefaultHistoryFile() string {
	return filepath.Join(StateDir(), "input_history")
}

// GetConfigPaths returns the configuration file paths to check
func GetConfigPaths() ConfigPrecedence {
	systemConfigPath := filepath.Join("/etc", appName, "config")
	if runtime.GOOS == "windows" {
		systemConfigPath = filepath.Join(os.Getenv("PROGRAMDATA"), appName, "config")
	}

	return ConfigPrecedence{
		SystemConfig:      systemConfigPath,
		UserConfig:        filepath.Join(xdg.ConfigHome, appName, "config"),
		ProjectConfig:     filepath.Join("."+appName, "config"),
		LocalConfig:       filepath.Join("."+appName, "config.local"),
		DotEnvFile:        ".env",
		EnvironmentPrefix: "AGENT007",
	}
}

// UserConfigFile is where `config init` writes by default.
func UserConfigFile() string {
	return GetConfigPaths().UserConfig + ".json"
}
