// Package prettier pipes rewritten source through an external prettier
// executable before it is written back.
package prettier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
)

// Formatter invokes the prettier executable with a fixed configuration
// file, forcing the TypeScript parser dialect.
type Formatter struct {
	binary     string
	configPath string
	logger     *slog.Logger
}

// Load reads and validates the prettier configuration at path and locates
// the prettier executable. Called eagerly at startup: a missing or invalid
// config, or a missing executable, aborts the run before any file is
// processed.
//
// The config is parsed jsonc-tolerantly (comments and trailing commas are
// accepted) but is otherwise passed to prettier verbatim via --config.
func Load(path string, logger *slog.Logger) (*Formatter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prettier config %s: %w", path, err)
	}

	var cfg map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return nil, fmt.Errorf("invalid prettier config %s: %w", path, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve prettier config path %s: %w", path, err)
	}

	binary, err := exec.LookPath("prettier")
	if err != nil {
		return nil, fmt.Errorf("prettier executable not found in PATH: %w", err)
	}

	logger.Debug("loaded prettier config", "path", absPath, "options", len(cfg))

	return &Formatter{
		binary:     binary,
		configPath: absPath,
		logger:     logger,
	}, nil
}

// Format runs source through prettier and returns the formatted text.
// filePath is passed for prettier's per-path override resolution only;
// the file itself is never read or written by prettier.
func (f *Formatter) Format(ctx context.Context, filePath string, source []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, f.binary,
		"--config", f.configPath,
		"--parser", "typescript",
		"--stdin-filepath", filePath)

	cmd.Stdin = bytes.NewReader(source)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrText := strings.TrimSpace(stderr.String())
		if stderrText != "" {
			return nil, fmt.Errorf("prettier failed on %s: %s", filePath, stderrText)
		}
		return nil, fmt.Errorf("prettier failed on %s: %w", filePath, err)
	}

	return stdout.Bytes(), nil
}
