package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCLI runs commands against one temporary database.
type testCLI struct {
	t      *testing.T
	dir    string
	config string
	db     string
}

func newTestCLI(t *testing.T) *testCLI {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("[samples]\nenabled = false\n"), 0o600))
	return &testCLI{t: t, dir: dir, config: cfg, db: filepath.Join(dir, "agency.db")}
}

// run executes args and returns stdout, stderr and the command error.
func (c *testCLI) run(stdin string, args ...string) (string, string, error) {
	c.t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", c.config, "--db", c.db}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func (c *testCLI) mustRun(args ...string) string {
	c.t.Helper()
	out, errOut, err := c.run("", args...)
	require.NoError(c.t, err, "stdout: %s\nstderr: %s", out, errOut)
	return out
}

// data decodes the payload of a JSON success response.
func (c *testCLI) data(out string, v any) {
	c.t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(c.t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(c.t, "ok", resp.Status, out)
	require.NoError(c.t, json.Unmarshal(resp.Data, v))
}

func TestInit_WithSamples(t *testing.T) {
	c := newTestCLI(t)

	out := c.mustRun("init", "--samples=true")
	assert.Contains(t, out, "✓ Database ready at "+c.db)
	assert.Contains(t, out, "tours: 4  financials: 5  customers: 3")

	// A second init leaves the seeded collections alone.
	out = c.mustRun("init", "--samples=true")
	assert.Contains(t, out, "tours: 4  financials: 5  customers: 3")
}

func TestInit_ConfigDisablesSamples(t *testing.T) {
	c := newTestCLI(t)

	var result InitResult
	c.data(c.mustRun("--format", "json", "init"), &result)
	assert.Equal(t, c.db, result.Path)
	assert.Equal(t, 1, result.Version)
	assert.Zero(t, result.Tours)
	assert.FileExists(t, c.db)
}

func TestInit_WritesMirror(t *testing.T) {
	c := newTestCLI(t)
	mirror := filepath.Join(c.dir, "mirror")
	require.NoError(t, os.WriteFile(c.config, []byte("[samples]\nenabled = true\n\n[mirror]\ndir = \"mirror\"\n"), 0o600))

	c.mustRun("init")
	assert.FileExists(t, filepath.Join(mirror, "tours.json"))
	assert.FileExists(t, filepath.Join(mirror, "financials.json"))
	assert.FileExists(t, filepath.Join(mirror, "customers.json"))
}

func TestRecordCommands(t *testing.T) {
	c := newTestCLI(t)

	out := c.mustRun("add", "customers", `{"id":"c1","name":"Ayşe Yılmaz","phone":"+90 555"}`)
	assert.JSONEq(t, `{"id":"c1","name":"Ayşe Yılmaz","phone":"+90 555"}`, strings.TrimSpace(out))

	out, _, err := c.run(`{"name":"Mehmet Demir","phone":"+90 555"}`, "add", "customers", "-")
	require.NoError(t, err)
	var generated map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &generated))
	assert.NotEmpty(t, generated["id"])

	var got map[string]any
	c.data(c.mustRun("--format", "json", "get", "customers", "c1"), &got)
	assert.Equal(t, "Ayşe Yılmaz", got["name"])

	var all []map[string]any
	c.data(c.mustRun("--format", "json", "list", "customers"), &all)
	assert.Len(t, all, 2)

	var found []map[string]any
	c.data(c.mustRun("--format", "json", "find", "customers", "phone", "+90 555"), &found)
	assert.Len(t, found, 2)

	c.mustRun("put", "customers", `{"id":"c1","name":"Ayşe Kaya"}`)
	out = c.mustRun("get", "customers", "c1")
	assert.JSONEq(t, `{"id":"c1","name":"Ayşe Kaya"}`, strings.TrimSpace(out))

	out = c.mustRun("delete", "customers", "c1")
	assert.Contains(t, out, "✓ Deleted customers/c1")
	c.mustRun("delete", "customers", "c1")

	c.mustRun("clear", "customers")
	out = c.mustRun("list", "customers")
	assert.Empty(t, out)

	c.data(c.mustRun("--format", "json", "list", "customers"), &all)
	assert.Empty(t, all)
}

func TestRecordCommands_Failures(t *testing.T) {
	c := newTestCLI(t)
	c.mustRun("add", "tours", `{"id":"t1","tourDate":"2024-05-01"}`)

	tests := []struct {
		name     string
		stdin    string
		args     []string
		exit     int
		contains string
	}{
		{"duplicate", "", []string{"add", "tours", `{"id":"t1","tourDate":"2024-05-02"}`}, ExitFailure, "DUPLICATE_KEY"},
		{"missing", "", []string{"get", "tours", "nope"}, ExitFailure, "NOT_FOUND"},
		{"unknown collection", "", []string{"list", "bookings"}, ExitFailure, "UNKNOWN_COLLECTION"},
		{"not an index", "", []string{"find", "tours", "notes", "x"}, ExitFailure, "UNKNOWN_COLLECTION"},
		{"schema violation", "", []string{"add", "financials", `{"type":"refund"}`}, ExitFailure, "INVALID_RECORD"},
		{"put without id", "", []string{"put", "tours", `{"tourDate":"2024-05-01"}`}, ExitFailure, "INVALID_RECORD"},
		{"malformed json", "", []string{"add", "tours", `{"id":`}, ExitCommandError, "BAD_INPUT"},
		{"malformed stdin", "nope", []string{"add", "tours"}, ExitCommandError, "BAD_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := c.run(tt.stdin, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.exit, GetExitCode(err))
			assert.Contains(t, out, tt.contains)
		})
	}

	out := c.mustRun("get", "tours", "t1")
	assert.Contains(t, out, `"tourDate":"2024-05-01"`)
}

func TestFailure_JSONEnvelope(t *testing.T) {
	c := newTestCLI(t)

	out, _, err := c.run("", "--format", "json", "get", "tours", "nope")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestStorageUnavailable(t *testing.T) {
	c := newTestCLI(t)
	blocker := filepath.Join(c.dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	c.db = filepath.Join(blocker, "agency.db")

	out, _, err := c.run("", "list", "tours")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "STORAGE_UNAVAILABLE")
}

func TestInvalidConfig(t *testing.T) {
	c := newTestCLI(t)
	require.NoError(t, os.WriteFile(c.config, []byte("[logging]\nlevel = \"loud\"\n"), 0o600))

	out, _, err := c.run("", "list", "tours")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeInvalidConfig)
}

func TestSeed(t *testing.T) {
	c := newTestCLI(t)

	out := c.mustRun("seed")
	assert.Contains(t, out, "✓ Loaded 19 record(s)")

	out = c.mustRun("seed")
	assert.Contains(t, out, "✓ Loaded 0 record(s)")
	assert.Contains(t, out, "skipped (not empty): financials, tours, customers, activities, destinations, settings")
}

func TestSeed_FromDirectory(t *testing.T) {
	c := newTestCLI(t)
	dir := filepath.Join(c.dir, "fixtures")
	require.NoError(t, os.Mkdir(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample-destinations.json"),
		[]byte(`[{"id":"d1","name":"Efes","country":"Türkiye"}]`), 0o600))

	var report map[string]any
	c.data(c.mustRun("--format", "json", "seed", "--dir", dir), &report)
	assert.Equal(t, float64(1), report["destinations"])
	assert.Equal(t, float64(0), report["tours"])

	_, _, err := c.run("", "seed", "--dir", filepath.Join(c.dir, "absent"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSettings(t *testing.T) {
	c := newTestCLI(t)

	var app map[string]any
	c.data(c.mustRun("--format", "json", "settings"), &app)
	assert.Equal(t, "app-settings", app["id"])

	c.mustRun("settings", "app", "--set", `{"companyInfo":{"name":"Nehir Turizm"}}`)
	c.data(c.mustRun("--format", "json", "settings", "app"), &app)
	assert.Equal(t, "Nehir Turizm", app["companyInfo"].(map[string]any)["name"])

	var ai map[string]any
	c.data(c.mustRun("--format", "json", "settings", "ai"), &ai)
	assert.Equal(t, "openai", ai["provider"])
	assert.Equal(t, true, ai["programControl"])

	out, errOut, err := c.run("", "settings", "ai", "--set", `{"provider":"gemini","geminiApiKey":"AIzaSyD-1234567890"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "**************7890")
	assert.NotContains(t, out, "AIzaSyD")
	assert.Contains(t, errOut, "ai settings saved")
	assert.NotContains(t, errOut, "AIzaSyD")

	out = c.mustRun("settings", "ai", "--reveal")
	assert.Contains(t, out, "AIzaSyD-1234567890")

	_, _, err = c.run("", "settings", "billing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSummary(t *testing.T) {
	c := newTestCLI(t)
	c.mustRun("seed")

	out := c.mustRun("summary")
	assert.Contains(t, out, "Currency: TRY")
	assert.Contains(t, out, "20000.00")
	assert.Contains(t, out, "11000.00")

	var result map[string]any
	c.data(c.mustRun("--format", "json", "summary", "--currency", "TRY"), &result)
	assert.Equal(t, "TRY", result["currency"])
	assert.Equal(t, "20000", result["income"])
	assert.Equal(t, "15000", result["expense"])
	assert.Equal(t, "6000", result["tourIncome"])
	assert.ElementsMatch(t, []any{"TRY", "USD", "EUR"}, result["currencies"])
}

func TestExportImport(t *testing.T) {
	src := newTestCLI(t)
	src.mustRun("seed")
	backupPath := filepath.Join(src.dir, "backup.yaml")

	out := src.mustRun("export", "-o", backupPath)
	assert.Contains(t, out, "✓ Exported to "+backupPath)
	data, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "collections:")

	dst := newTestCLI(t)
	out = dst.mustRun("import", backupPath)
	assert.Contains(t, out, "✓ Imported 19 record(s) into 10 collection(s)")

	for _, coll := range []string{"tours", "financials", "customers", "settings"} {
		want := strings.Split(strings.TrimSpace(src.mustRun("list", coll)), "\n")
		got := strings.Split(strings.TrimSpace(dst.mustRun("list", coll)), "\n")
		require.Len(t, got, len(want), coll)
		for i := range want {
			assert.JSONEq(t, want[i], got[i], coll)
		}
	}
}

func TestExport_Stdout(t *testing.T) {
	c := newTestCLI(t)
	c.mustRun("add", "providers", `{"id":"p1","name":"Balon Ltd"}`)

	out := c.mustRun("export")
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	providers := doc["collections"].(map[string]any)["providers"].([]any)
	require.Len(t, providers, 1)
}

func TestImport_UnknownCollection(t *testing.T) {
	c := newTestCLI(t)
	path := filepath.Join(c.dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":1,"collections":{"bookings":[]}}`), 0o600))

	out, _, err := c.run("", "import", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "UNKNOWN_COLLECTION")

	_, _, err = c.run("", "import", filepath.Join(c.dir, "absent.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTourSave(t *testing.T) {
	c := newTestCLI(t)
	tour := `{"id":"tour-1","serialNumber":"T-1","tourName":"Kapadokya","tourDate":"2024-05-01",` +
		`"customerName":"Ayşe Yılmaz","customerPhone":"+90 555","paymentStatus":"completed",` +
		`"expenses":[{"name":"Rehber","amount":100,"currency":"EUR"},{"name":"Bedava","amount":0}]}`

	out := c.mustRun("tour", "save", tour)
	assert.Contains(t, out, "✓ Saved tour tour-1")
	assert.Contains(t, out, "customer created: Ayşe Yılmaz")
	assert.Contains(t, out, "1 expense(s) entered in the ledger")

	// Saving again updates the tour without side effects.
	out = c.mustRun("tour", "save", tour)
	assert.Contains(t, out, "✓ Saved tour tour-1")
	assert.NotContains(t, out, "customer created")
	assert.NotContains(t, out, "entered in the ledger")

	var customers, financials []map[string]any
	c.data(c.mustRun("--format", "json", "list", "customers"), &customers)
	assert.Len(t, customers, 1)
	c.data(c.mustRun("--format", "json", "list", "financials"), &financials)
	require.Len(t, financials, 1)
	assert.Equal(t, "Tur Gideri", financials[0]["category"])
	assert.Equal(t, "Kapadokya - Rehber (T-1)", financials[0]["description"])
	assert.Equal(t, "tour-1", financials[0]["relatedTourId"])

	var res struct {
		Tour struct {
			ID string `json:"id"`
		} `json:"tour"`
	}
	out, _, err := c.run(`{"tourDate":"2024-06-01"}`, "--format", "json", "tour", "save", "-")
	require.NoError(t, err)
	c.data(out, &res)
	assert.NotEmpty(t, res.Tour.ID)

	out = c.mustRun("tour", "delete", "tour-1")
	assert.Contains(t, out, "✓ Deleted tour tour-1")
	_, _, err = c.run("", "get", "tours", "tour-1")
	require.Error(t, err)
	c.data(c.mustRun("--format", "json", "list", "financials"), &financials)
	assert.Len(t, financials, 1)
}

func TestTourSave_Failures(t *testing.T) {
	c := newTestCLI(t)

	out, _, err := c.run("", "tour", "save", `{"tourDate":"2024-05-01","numberOfPeople":-1}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "INVALID_RECORD")

	out, _, err = c.run("", "tour", "save", `{"tourDate":5}`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeBadInput)

	out = c.mustRun("list", "tours")
	assert.Empty(t, out)
}

func TestCatalog(t *testing.T) {
	c := newTestCLI(t)

	out := c.mustRun("catalog", "destinations", "--set", `[{"name":"Göreme","country":"Türkiye"}]`)
	var dest map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &dest))
	assert.Equal(t, "Göreme", dest["name"])
	assert.NotEmpty(t, dest["id"])

	var items []map[string]any
	c.data(c.mustRun("--format", "json", "catalog", "destinations"), &items)
	assert.Len(t, items, 1)

	c.mustRun("catalog", "expenses", "--set", `[{"type":"guide","name":"Rehber"},{"type":"transport","name":"Minibüs"}]`)
	c.data(c.mustRun("--format", "json", "catalog", "expenses", "--type", "guide"), &items)
	require.Len(t, items, 1)
	assert.Equal(t, "Rehber", items[0]["name"])

	// An empty list empties the catalog.
	c.mustRun("catalog", "destinations", "--set", `[]`)
	c.data(c.mustRun("--format", "json", "catalog", "destinations"), &items)
	assert.Empty(t, items)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown catalog", []string{"catalog", "hotels"}},
		{"object instead of list", []string{"catalog", "providers", "--set", `{"name":"x"}`}},
		{"price as text", []string{"catalog", "activities", "--set", `[{"name":"Balon","defaultPrice":"750"}]`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := c.run("", tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, ErrCodeBadInput)
		})
	}
}

func TestNotes(t *testing.T) {
	c := newTestCLI(t)

	assert.Contains(t, c.mustRun("note", "add", "c1", "Aradı, balon turu soruyor"), "✓ Added note ")
	c.mustRun("note", "add", "c2", "Fatura bekliyor")

	var notes []map[string]any
	c.data(c.mustRun("--format", "json", "note", "list", "c1"), &notes)
	require.Len(t, notes, 1)
	assert.Equal(t, "Aradı, balon turu soruyor", notes[0]["content"])

	c.data(c.mustRun("--format", "json", "note", "list"), &notes)
	assert.Len(t, notes, 2)

	out, _, err := c.run("", "note", "add", "", "x")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "INVALID_RECORD")
}
