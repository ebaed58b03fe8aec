package prettier

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/esmfix/pkg/util"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".prettierrc.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingConfig(t *testing.T) {
	logger := util.NewLogger(util.DefaultLoggerConfig())

	_, err := Load(filepath.Join(t.TempDir(), "nope.json"), logger)
	assert.Error(t, err)
}

func TestLoad_InvalidConfig(t *testing.T) {
	logger := util.NewLogger(util.DefaultLoggerConfig())

	_, err := Load(writeConfig(t, "not json at all"), logger)
	assert.Error(t, err)
}

func TestLoad_ValidConfig(t *testing.T) {
	if _, err := exec.LookPath("prettier"); err != nil {
		t.Skip("prettier executable not available")
	}

	logger := util.NewLogger(util.DefaultLoggerConfig())

	// Comments and trailing commas are tolerated.
	config := `{
	// prefer single quotes
	"singleQuote": true,
	"semi": true,
}`

	formatter, err := Load(writeConfig(t, config), logger)
	require.NoError(t, err)
	assert.NotNil(t, formatter)
}

func TestFormat_RunsPrettier(t *testing.T) {
	if _, err := exec.LookPath("prettier"); err != nil {
		t.Skip("prettier executable not available")
	}

	logger := util.NewLogger(util.DefaultLoggerConfig())

	formatter, err := Load(writeConfig(t, `{"singleQuote": true}`), logger)
	require.NoError(t, err)

	out, err := formatter.Format(context.Background(), "app.ts", []byte(`import {a} from "./a.js"`))
	require.NoError(t, err)

	assert.Contains(t, string(out), "'./a.js'")
}
