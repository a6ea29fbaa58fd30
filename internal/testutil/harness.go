package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/tlxgo/internal/app"
)

// Well-known file names understood by RunIntegrationTest.
const (
	TemplateFile = "template.html"
	ModelFile    = "model.yaml"
	OutputFile   = "out.html"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Output    string
	LogOutput string
	Err       error
	App       *app.App
}

// RunIntegrationTest provides a standardized harness for running integration tests
// using a default background context.
func RunIntegrationTest(t *testing.T, files map[string]string, sets ...string) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, sets...)
}

// RunIntegrationTestWithContext writes files into a temporary directory,
// renders TemplateFile against ModelFile (when present) and the sets, and
// returns the atomically written output.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, sets ...string) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	cfg := app.Config{
		TemplatePath: filepath.Join(tmpDir, TemplateFile),
		Sets:         sets,
		OutPath:      filepath.Join(tmpDir, OutputFile),
		LogLevel:     "debug",
		LogFormat:    "text",
	}
	if _, ok := files[ModelFile]; ok {
		cfg.ModelPath = filepath.Join(tmpDir, ModelFile)
	}

	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	stdout := &app.SafeBuffer{}
	logBuffer := &app.SafeBuffer{}

	var testApp *app.App
	runErr := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("application panicked | %v", r)
			}
		}()
		testApp = app.NewApp(stdout, logBuffer, appConfig)
		return testApp.Run(ctx)
	}()

	if os.Getenv("TLX_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	output, _ := os.ReadFile(cfg.OutPath)
	return &HarnessResult{
		Output:    string(output),
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
	}
}
