// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-digest/internal/fetch"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// arxivServer serves two recent cs.CV entries, newest first.
func arxivServer(t *testing.T) *httptest.Server {
	t.Helper()
	now := time.Now().UTC()
	entry := func(id, title string, age time.Duration) string {
		ts := now.Add(-age).Format(time.RFC3339)
		return fmt.Sprintf(`<entry>
  <id>http://arxiv.org/abs/%[1]s</id>
  <title>%[2]s</title>
  <summary>Abstract of %[2]s.</summary>
  <published>%[3]s</published>
  <updated>%[3]s</updated>
  <author><name>Ada Lovelace</name></author>
  <link title="pdf" href="http://arxiv.org/pdf/%[1]s" rel="related" type="application/pdf"/>
  <category term="cs.CV" scheme="http://arxiv.org/schemas/atom"/>
</entry>`, id, title, ts)
	}
	body := `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
<title>ArXiv Query</title>
<id>http://arxiv.org/api/test</id>
<updated>` + now.Format(time.RFC3339) + `</updated>
` + entry("2603.00002v1", "Newer Paper", time.Hour) + entry("2603.00001v1", "Older Paper", 2*time.Hour) + `
</feed>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cat:cs.CV", r.URL.Query().Get("search_query"))
		w.Header().Set("Content-Type", "application/atom+xml")
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// execute runs the CLI with args against a throwaway working directory.
func execute(t *testing.T, cfgBody string, args ...string) (string, error) {
	t.Helper()
	for _, k := range []string{"DRY_RUN", "MAIL_USER", "MAIL_PASS", "MAIL_RECIPIENTS", "MAIL_RECIPIENT", "LLM_API_KEY"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	dir := t.TempDir()
	t.Chdir(dir)
	cfgFile := filepath.Join(dir, "paper-digest.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(cfgBody), 0o644))

	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append(args,
		"--config", cfgFile,
		"--secrets-dir", filepath.Join(dir, "secrets"),
		"--env-file", filepath.Join(dir, ".env"),
	))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func testConfig(baseURL string) string {
	return fmt.Sprintf(`criteria:
  categories: [cs.CV]
data_sources:
  arxiv:
    enable: true
    base_url: %s
top_n: 5
`, baseURL)
}

func TestFetchCommand_JSON(t *testing.T) {
	srv := arxivServer(t)

	out, err := execute(t, testConfig(srv.URL), "fetch", "--json")
	require.NoError(t, err)

	var papers []types.Paper
	require.NoError(t, json.Unmarshal([]byte(out), &papers))
	require.Len(t, papers, 2)
	assert.Equal(t, "Newer Paper", papers[0].Title)
	assert.Equal(t, "Older Paper", papers[1].Title)
	assert.Equal(t, types.SourceArxiv, papers[0].Source)
}

func TestFetchCommand_TopNAndDigestFile(t *testing.T) {
	srv := arxivServer(t)
	digest := filepath.Join(t.TempDir(), "digest.yaml")

	out, err := execute(t, testConfig(srv.URL), "fetch", "--top-n", "1", "--out", digest)
	require.NoError(t, err)
	assert.Contains(t, out, "Newer Paper")
	assert.NotContains(t, out, "Older Paper")

	df, err := fetch.ReadDigestFile(digest)
	require.NoError(t, err)
	assert.Equal(t, 1, df.Config.TopN)
	assert.Equal(t, 2, df.Summary.Total)
	assert.NotEmpty(t, df.Summary.RunID)
	require.Len(t, df.Papers, 1)
}

func TestFetchCommand_NonPositiveTopN(t *testing.T) {
	srv := arxivServer(t)
	for _, n := range []string{"0", "-3"} {
		_, err := execute(t, testConfig(srv.URL), "fetch", "--top-n", n)
		assert.ErrorContains(t, err, "--top-n must be positive", "top-n %s", n)
	}
}

func TestFetchCommand_ExclusiveFormats(t *testing.T) {
	srv := arxivServer(t)
	_, err := execute(t, testConfig(srv.URL), "fetch", "--json", "--csl")
	assert.ErrorContains(t, err, "mutually exclusive")
}

func TestRunCommand_DryRun(t *testing.T) {
	srv := arxivServer(t)
	metricsFile := filepath.Join(t.TempDir(), "paper_digest.prom")
	cfgBody := testConfig(srv.URL) + fmt.Sprintf("metrics:\n  textfile: %s\n", metricsFile)

	out, err := execute(t, cfgBody, "run", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Newer Paper")
	assert.Contains(t, out, "2 papers from 2 fetched")

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `paper_digest_papers_fetched_total{source="ArXiv"} 2`)
}

func TestRunCommand_NoPapersNoSendEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><feed xmlns="http://www.w3.org/2005/Atom"><title>empty</title></feed>`)
	}))
	defer srv.Close()

	out, err := execute(t, testConfig(srv.URL), "run")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunCommand_NoPapersStillWritesDigest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><feed xmlns="http://www.w3.org/2005/Atom"><title>empty</title></feed>`)
	}))
	defer srv.Close()
	digest := filepath.Join(t.TempDir(), "digest.yaml")

	_, err := execute(t, testConfig(srv.URL), "run", "--out", digest)
	require.NoError(t, err)

	df, err := fetch.ReadDigestFile(digest)
	require.NoError(t, err)
	assert.Equal(t, 0, df.Summary.Total)
	assert.Empty(t, df.Papers)
}

func TestRunCommand_InvalidConfig(t *testing.T) {
	_, err := execute(t, "top_n: 0\n", "run", "--dry-run")
	assert.ErrorContains(t, err, "top_n must be positive")
}

func TestVersionCommand(t *testing.T) {
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "paper-digest dev\n", out.String())
}
