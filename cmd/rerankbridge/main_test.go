package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/BaSui01/rerankbridge/config"
	"github.com/BaSui01/rerankbridge/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
		assert.NotEmpty(t, c.Short, "command %s should have a short description", c.Name())
	}
	for _, want := range []string{"serve", "rerank", "validate", "health", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}

	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestRerankCmd_Flags(t *testing.T) {
	root := newRootCmd()
	cmd, _, err := root.Find([]string{"rerank"})
	require.NoError(t, err)

	for _, name := range []string{"query", "doc", "docs-file", "top-n", "threshold", "model", "api-url"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag --%s", name)
	}
	assert.Equal(t, "q", cmd.Flags().Lookup("query").Shorthand)
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "rerankbridge dev")
	assert.Contains(t, out, "Git Commit: unknown")
}

func TestRerankCmd(t *testing.T) {
	fake := testutil.NewFakeReranker(t)
	fake.RespondRerank(http.StatusOK, `{"results":[
		{"index":1,"score":0.9},
		{"index":0,"score":0.2},
		{"index":2,"score":0.05}
	]}`)

	out, err := execute(t, "rerank",
		"--api-url", fake.URL(),
		"-q", "what do pandas eat?",
		"-d", "pandas live in china",
		"-d", "pandas eat bamboo",
		"-d", "the sky is blue",
		"--threshold", "0.1",
		"--top-n", "1",
	)
	require.NoError(t, err)

	var results []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "pandas eat bamboo", results[0]["document"])
	assert.InDelta(t, 0.9, results[0]["score"], 1e-9)

	last, ok := fake.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "what do pandas eat?", last.Body["query"])
	assert.Len(t, last.Body["passages"], 3)
}

func TestRerankCmd_DocsFile(t *testing.T) {
	fake := testutil.NewFakeReranker(t)
	fake.RespondRerank(http.StatusOK, `{"results":[{"index":0,"score":0.7}]}`)

	path := filepath.Join(t.TempDir(), "docs.json")
	require.NoError(t, os.WriteFile(path, []byte(`["from file"]`), 0o600))

	out, err := execute(t, "rerank", "--api-url", fake.URL(), "-q", "q", "--docs-file", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"document": "from file"`)
}

func TestRerankCmd_Errors(t *testing.T) {
	fake := testutil.NewFakeReranker(t)
	fake.RespondRerank(http.StatusUnauthorized, `{"detail":"bad key"}`)

	_, err := execute(t, "rerank", "--api-url", fake.URL(), "-q", "q", "-d", "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVOKE_AUTHORIZATION")

	_, err = execute(t, "rerank", "--api-url", fake.URL(), "-d", "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query")
}

func TestValidateCmd(t *testing.T) {
	fake := testutil.NewFakeReranker(t)

	out, err := execute(t, "validate", "--api-url", fake.URL()+"/")
	require.NoError(t, err)
	assert.Contains(t, out, "credentials valid: "+fake.URL())

	fake.RespondHealth(http.StatusServiceUnavailable, `{"status":"loading"}`)
	_, err = execute(t, "validate", "--api-url", fake.URL())
	assert.Error(t, err)
}

func TestValidateCmd_FromConfigFile(t *testing.T) {
	fake := testutil.NewFakeReranker(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reranker:\n  api_url: "+fake.URL()+"\n"), 0o600))

	out, err := execute(t, "--config", path, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "credentials valid")
	require.Len(t, fake.Requests(), 1)
	assert.Equal(t, "/health", fake.Requests()[0].Path)
}

func TestHealthCmd(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	out, err := execute(t, "health", "--addr", healthy.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "OK")

	unhealthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer unhealthy.Close()

	_, err = execute(t, "health", "--addr", unhealthy.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestInitLogger(t *testing.T) {
	logger := initLogger(config.LogConfig{Level: "debug", Format: "json", OutputPaths: []string{"stderr"}})
	require.NotNil(t, logger)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	fallback := initLogger(config.LogConfig{Level: "nonsense", Format: "console"})
	assert.False(t, fallback.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, fallback.Core().Enabled(zapcore.InfoLevel))
}
