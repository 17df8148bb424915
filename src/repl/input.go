package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

// ErrInterrupted is returned by a LineReader when the user aborts the
// prompt with Ctrl+C.
var ErrInterrupted = errors.New("input interrupted")

// LineReader reads one line of user input. It returns io.EOF once input is
// exhausted and ErrInterrupted when the prompt is aborted.
type LineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

var (
	_ LineReader = (*LinerReader)(nil)
	_ LineReader = (*ScannerReader)(nil)
)

// LinerReader is a LineReader with line editing and persistent history.
type LinerReader struct {
	line        *liner.State
	historyFile string
	logger      *slog.Logger
}

// NewLinerReader takes over the terminal. An empty historyFile keeps history
// in memory only.
func NewLinerReader(historyFile string, logger *slog.Logger) *LinerReader {
	if logger == nil {
		logger = slog.Default()
	}
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &LinerReader{
		line:        line,
		historyFile: historyFile,
		logger:      logger.With("component", "liner"),
	}
	r.loadHistory()
	return r
}

func (r *LinerReader) loadHistory() {
	if r.historyFile == "" {
		return
	}
	f, err := os.Open(r.historyFile)
	if err != nil {
		return
	}
	defer f.Close()
	if _, err := r.line.ReadHistory(f); err != nil {
		r.logger.Debug("failed to read input history", "path", r.historyFile, "error", err)
	}
}

// ReadLine implements LineReader.
func (r *LinerReader) ReadLine(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", ErrInterrupted
		}
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history and restores the terminal.
func (r *LinerReader) Close() error {
	r.saveHistory()
	return r.line.Close()
}

func (r *LinerReader) saveHistory() {
	if r.historyFile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0o700); err != nil {
		r.logger.Debug("failed to create history directory", "error", err)
		return
	}
	f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		r.logger.Debug("failed to open history file", "path", r.historyFile, "error", err)
		return
	}
	defer f.Close()
	if _, err := r.line.WriteHistory(f); err != nil {
		r.logger.Debug("failed to write input history", "error", err)
	}
}

// ScannerReader reads lines from any reader, for piped input and tests.
// The prompt is written to out.
type ScannerReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewScannerReader returns a reader over in that echoes prompts to out.
func NewScannerReader(in io.Reader, out io.Writer) *ScannerReader {
	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &ScannerReader{scanner: s, out: out}
}

// ReadLine implements LineReader.
func (r *ScannerReader) ReadLine(prompt string) (string, error) {
	if _, err := fmt.Fprint(r.out, prompt); err != nil {
		return "", err
	}
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

// Close implements LineReader.
func (r *ScannerReader) Close() error {
	return nil
}
