package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"classportal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args against the data and uploads dirs under dir.
func run(t *testing.T, dir string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append(args,
		"--data-dir", filepath.Join(dir, "data"),
		"--uploads-dir", filepath.Join(dir, "uploads"),
		"--admin-password", "bootstrap-pass",
		"--log-level", "error",
	))
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestBootstrapCommand(t *testing.T) {
	dir := t.TempDir()

	out := run(t, dir, "bootstrap")
	assert.Contains(t, out, "Created collections:")
	assert.Contains(t, out, "Created admin account 'admin'.")
	for _, name := range db.AllCollections {
		_, err := os.Stat(filepath.Join(dir, "data", name+".json"))
		assert.NoError(t, err, name)
	}

	out = run(t, dir, "bootstrap")
	assert.Equal(t, "Nothing to do.\n", out)
}

func TestSweepCommand(t *testing.T) {
	dir := t.TempDir()
	run(t, dir, "bootstrap")

	orphan := `[{"id":"d1","class":"gone","title":"T","category":"geometrie","type":"cours","file_path":"documents/geometrie/1_t.pdf","created_at":"2024-09-02T08:00:00Z"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", db.CollDocuments+".json"), []byte(orphan), 0644))

	var report db.SweepReport
	require.NoError(t, json.Unmarshal([]byte(run(t, dir, "sweep", "--dry-run")), &report))
	assert.Equal(t, 1, report.OrphanDocuments)

	raw, err := os.ReadFile(filepath.Join(dir, "data", db.CollDocuments+".json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"d1"`, "dry run writes nothing")

	require.NoError(t, json.Unmarshal([]byte(run(t, dir, "sweep", "--dry-run=false")), &report))
	assert.Equal(t, 1, report.OrphanDocuments)

	raw, err = os.ReadFile(filepath.Join(dir, "data", db.CollDocuments+".json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"d1"`)
}
