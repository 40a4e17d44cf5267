package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dan-solli/listops/pkg/listops"
	"github.com/dan-solli/listops/pkg/store"
)

// parityServer is an OpenAI-compatible endpoint answering filter prompts by
// removing odd numbers.
func parityServer(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		prompt := body.Messages[len(body.Messages)-1].Content
		_, item, _ := strings.Cut(prompt, "<ITEM>\n")
		n, err := strconv.Atoi(strings.TrimSpace(item))

		content := "not json"
		if err == nil {
			content = fmt.Sprintf(`{"explanation": "parity", "remove_item": %t}`, n%2 == 1)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func writeConfig(t *testing.T, dir, serverURL string) string {
	t.Helper()
	path := filepath.Join(dir, "listops.yaml")
	cfg := fmt.Sprintf(`
engine:
  parallel_completions: 2
provider:
  name: openai
  model: test-model
  base_url: %s
  api_key: test-key
cache:
  path: %s
metrics:
  enabled: true
  path: %s
`, serverURL, filepath.Join(dir, "cache.db"), filepath.Join(dir, "listops.prom"))
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	for _, k := range []string{"LISTOPS_PROVIDER", "LISTOPS_MODEL", "OPENAI_API_KEY", "GEMINI_API_KEY", "LISTOPS_PARALLEL"} {
		t.Setenv(k, "")
	}
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFilterCommand_EndToEnd(t *testing.T) {
	var calls atomic.Int64
	server := parityServer(t, &calls)
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, server.URL)

	out, err := execute(t, "[1, 2, 3, 4]", "filter", "--config", cfgPath, "--goal", "remove odd numbers", "--input", "-")
	require.NoError(t, err)

	var res listops.Result[[]int]
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Completed)
	assert.Equal(t, []int{2, 4}, res.Value)
	assert.Equal(t, int64(4), calls.Load())

	// The same run again is served from the cache.
	_, err = execute(t, "[1, 2, 3, 4]", "filter", "--config", cfgPath, "--goal", "remove odd numbers", "--input", "-")
	require.NoError(t, err)
	assert.Equal(t, int64(4), calls.Load())

	metrics, err := os.ReadFile(filepath.Join(dir, "listops.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `listops_operations_total{operation="filter",status="success"} 1`)

	out, err = execute(t, "", "cache", "stats", "--config", cfgPath)
	require.NoError(t, err)
	var st store.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, store.Stats{Entries: 4, Hits: 4}, st)
}

func TestFilterCommand_IncompleteExitsWithError(t *testing.T) {
	var calls atomic.Int64
	server := parityServer(t, &calls)
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, server.URL)

	input := filepath.Join(dir, "items.json")
	require.NoError(t, os.WriteFile(input, []byte(`["one", "two"]`), 0644))

	out, err := execute(t, "", "filter", "--config", cfgPath, "--goal", "remove odd numbers", "--input", input)
	require.ErrorIs(t, err, errIncomplete)

	var res listops.Result[[]string]
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Completed)
	assert.Contains(t, res.Error, "extract boolean")
}

func TestParseList(t *testing.T) {
	list, err := parseList([]byte(`[1, "two", {"three": 3}]`))
	require.NoError(t, err)
	assert.Len(t, list, 3)

	_, err = parseList([]byte(`{"not": "a list"}`))
	assert.Error(t, err)

	_, err = parseList([]byte(`null`))
	assert.Error(t, err)
}

func TestEmit(t *testing.T) {
	var buf bytes.Buffer
	ok := listops.Result[[]string]{Completed: true, Value: []string{"<a>"}}
	require.NoError(t, emit(&buf, ok))
	assert.Contains(t, buf.String(), `"<a>"`)

	buf.Reset()
	err := emit(&buf, listops.Result[int]{Error: "boom"})
	assert.ErrorIs(t, err, errIncomplete)
	assert.Contains(t, buf.String(), `"error": "boom"`)
}
