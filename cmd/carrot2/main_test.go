package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gluonch/carrot2/componentregistry"
	"github.com/gluonch/carrot2/descriptor"
	"github.com/gluonch/carrot2/errors"
)

// writeFixture creates a descriptor directory and a configuration that
// autoloads from it.
func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	descriptors := filepath.Join(dir, "descriptors")
	require.NoError(t, os.Mkdir(descriptors, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(descriptors, "stopwords.yaml"),
		[]byte("kind: stopwords\nconfig:\n  words: [the, and]\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(descriptors, "frequency.json"),
		[]byte(`{"kind": "frequency", "config": {"top": 2}}`), 0o600))

	cfg := fmt.Sprintf(`
log:
  level: error
autoload:
  enabled: true
  paths: [%q]
components:
  - id: tokenizer
    kind: tokenizer
    config:
      min_length: 2
processes:
  - id: terms
    name: Term frequencies
    stages: [tokenizer, stopwords, frequency]
`, descriptors)
	path := filepath.Join(dir, "carrot2.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestCLI_Processes(t *testing.T) {
	cfg := writeFixture(t)

	out, err := run(t, "--config", cfg, "processes")
	require.NoError(t, err)
	assert.Contains(t, out, "terms")
	assert.Contains(t, out, "Term frequencies")

	out, err = run(t, "--config", cfg, "components", "--json")
	require.NoError(t, err)

	var components []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &components))
	ids := make([]string, 0, len(components))
	for _, c := range components {
		ids = append(ids, c["id"])
	}
	assert.Equal(t, []string{"frequency", "stopwords", "tokenizer"}, ids, "autoloaded factories are listed")
}

func TestCLI_Query(t *testing.T) {
	cfg := writeFixture(t)

	out, err := run(t, "--config", cfg, "query", "terms", "the", "cat", "and", "the", "cat", "sat",
		"--param", "stopwords=sat", "--metrics")
	require.NoError(t, err)

	var report struct {
		RequestID  string           `json:"request_id"`
		Result     []map[string]any `json:"result"`
		Attributes map[string]any   `json:"attributes"`
		Metrics    []metricSample   `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))

	assert.NotEmpty(t, report.RequestID)
	require.Len(t, report.Result, 1)
	assert.Equal(t, "cat", report.Result[0]["term"])
	assert.EqualValues(t, 2, report.Result[0]["count"])
	assert.EqualValues(t, 4, report.Attributes["stopwords_removed"])

	var queries float64
	for _, s := range report.Metrics {
		if s.Name == "carrot2_controller_queries_total" && s.Labels["status"] == "success" {
			queries += s.Value
		}
	}
	assert.Equal(t, 1.0, queries)
}

func TestCLI_Check(t *testing.T) {
	cfg := writeFixture(t)

	out, err := run(t, "--config", cfg, "check", "tokenizer", "stopwords")
	require.NoError(t, err)
	assert.Contains(t, out, "compatible")

	out, err = run(t, "--config", cfg, "check", "frequency", "stopwords", "--json")
	require.NoError(t, err)
	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, false, result["compatible"])
	assert.Contains(t, result["explanation"], "tokens")
}

func TestCLI_Health(t *testing.T) {
	cfg := writeFixture(t)

	out, err := run(t, "--config", cfg, "health", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"component": "carrot2"`)
}

func TestCLI_Errors(t *testing.T) {
	cfg := writeFixture(t)

	_, err := run(t, "--config", cfg, "query", "missing", "text")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownProcess))

	_, err = run(t, "--config", cfg, "query", "terms", "text", "--param", "novalue")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	_, err = run(t, "--config", cfg, "publish", "descriptor.yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMissingConfig))

	_, err = run(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "processes")
	require.Error(t, err)
}

func TestValidateDescriptor(t *testing.T) {
	kinds := descriptor.NewKinds()
	require.NoError(t, componentregistry.Register(kinds))

	require.NoError(t, validateDescriptor(kinds, "tok.yaml", []byte("kind: tokenizer\nconfig:\n  min_length: 2\n")))
	require.NoError(t, validateDescriptor(kinds, "freq.toml", []byte("kind = \"frequency\"\n")))

	err := validateDescriptor(kinds, "tok.yaml", []byte("kind: tokenizer\nconfig:\n  min_length: 0\n"))
	require.Error(t, err, "kind config schema applies")

	err = validateDescriptor(kinds, "x.json", []byte(`{"kind": "clusterer"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))

	err = validateDescriptor(kinds, "x.ini", []byte("kind=tokenizer"))
	require.Error(t, err)
}

func TestCLI_Kinds(t *testing.T) {
	out, err := run(t, "--config", writeFixture(t), "kinds")
	require.NoError(t, err)
	assert.Contains(t, out, "tokenizer")
	assert.Contains(t, out, "KIND")
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"top=3", "stopwords=a,b", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"top": "3", "stopwords": "a,b", "empty": ""}, params)

	_, err = parseParams([]string{"=x"})
	require.Error(t, err)
}
