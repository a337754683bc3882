package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"linehist/pkg/history"
)

// resetFlags restores every flag variable between executions
func resetFlags() {
	verbose = false
	configPath = ""
	historyFile = ""
	logFile = ""
	listLast = 0
	listEscaped = false
	listNumbered = false
	listStats = false
	importEscaped = false
	compactMaxSize.reset()
	compactMaxEntries = history.Inherit
	configForce = false
}

// testEnv points the commands at a temporary config and history file
type testEnv struct {
	dir     string
	config  string
	history string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	return testEnv{
		dir:     dir,
		config:  filepath.Join(dir, "config.yaml"),
		history: filepath.Join(dir, "history"),
	}
}

func (e testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	output := &bytes.Buffer{}
	rootCmd.SetOut(output)
	rootCmd.SetErr(output)
	rootCmd.SetArgs(append([]string{"--config", e.config, "--file", e.history}, args...))
	err := rootCmd.Execute()
	return output.String(), err
}

func (e testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("%v failed: %v\n%s", args, err, out)
	}
	return out
}

// TestRootCommand tests the root command
func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "linehist" {
		t.Errorf("rootCmd.Use = %s, want linehist", rootCmd.Use)
	}

	if rootCmd.Short == "" {
		t.Error("rootCmd.Short should not be empty")
	}

	expectedCommands := []string{"shell", "add", "list", "import", "compact", "config"}
	for _, expected := range expectedCommands {
		found := false
		for _, cmd := range rootCmd.Commands() {
			if cmd.Use == expected || strings.HasPrefix(cmd.Use, expected+" ") {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected subcommand '%s' not found", expected)
		}
	}
}

func TestAddAndList(t *testing.T) {
	env := newTestEnv(t)

	env.mustRun(t, "add", "make", "make", "  ", "ls -l")
	env.mustRun(t, "add", "echo 'a\nb'")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"plain", []string{"list"}, "make\nls -l\necho 'a\nb'\n"},
		{"last", []string{"list", "--last", "1"}, "echo 'a\nb'\n"},
		{"last beyond length", []string{"ls", "-n", "10"}, "make\nls -l\necho 'a\nb'\n"},
		{"escaped", []string{"show", "--escaped"}, "make\nls -l\necho 'a\\nb'\n"},
		{"numbered", []string{"list", "--numbered", "--last", "2"}, "    2  ls -l\n    3  echo 'a\nb'\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := env.mustRun(t, tt.args...); got != tt.want {
				t.Errorf("%v = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestListRejectsNegativeLast(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "list", "--last", "-1"); err == nil {
		t.Error("list --last -1 should fail")
	}
}

func TestListStats(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "add", "one", "two")

	out := env.mustRun(t, "list", "--stats")
	for _, want := range []string{"Entries: 2 (limit 1000)", "Size: 8 B (limit 1.0 MiB)", env.history} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output %q does not contain %q", out, want)
		}
	}
}

func TestListMissingFile(t *testing.T) {
	env := newTestEnv(t)
	if out := env.mustRun(t, "list"); out != "" {
		t.Errorf("list on a missing file printed %q", out)
	}
}

func TestImport(t *testing.T) {
	env := newTestEnv(t)
	source := filepath.Join(env.dir, "source")
	if err := os.WriteFile(source, []byte("one\n\ntwo\ntwo\nthree"), 0644); err != nil {
		t.Fatal(err)
	}

	out := env.mustRun(t, "import", source)
	if !strings.Contains(out, "Imported 3 entries") {
		t.Errorf("import output = %q", out)
	}
	if got := env.mustRun(t, "list"); got != "one\ntwo\nthree\n" {
		t.Errorf("list after import = %q", got)
	}
}

func TestImportEscaped(t *testing.T) {
	env := newTestEnv(t)
	source := filepath.Join(env.dir, "source")
	if err := os.WriteFile(source, []byte("a\\nb\nc\\\\d\n"), 0644); err != nil {
		t.Fatal(err)
	}

	env.mustRun(t, "import", "--escaped", source)

	h, err := history.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Load(env.history, history.DefaultLoadOptions()); err != nil {
		t.Fatal(err)
	}
	got := h.Contents()
	if len(got) != 2 || got[0] != "a\nb" || got[1] != "c\\d" {
		t.Errorf("imported entries = %q", got)
	}
}

func TestImportLines_Filters(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		filters  history.AddOptions
		escaped  bool
		expected []string
	}{
		{
			name:     "blank lines skipped",
			input:    "a\n\nb\n",
			filters:  history.AddOptions{SkipEmpty: true, SkipDup: true},
			expected: []string{"a", "b"},
		},
		{
			name:     "blank lines kept",
			input:    "a\n\nb\n",
			filters:  history.AddOptions{SkipEmpty: false, SkipDup: true},
			expected: []string{"a", "", "b"},
		},
		{
			name:     "duplicates kept",
			input:    "a\na\n",
			filters:  history.AddOptions{},
			expected: []string{"a", "a"},
		},
		{
			name:     "undecodable line skipped",
			input:    "a\n\xff\nb\n",
			filters:  history.AddOptions{},
			escaped:  true,
			expected: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := history.New(nil)
			if err != nil {
				t.Fatal(err)
			}
			imported, err := importLines(h, strings.NewReader(tt.input), tt.filters, tt.escaped)
			if err != nil {
				t.Fatalf("importLines() error = %v", err)
			}
			if imported != len(tt.expected) {
				t.Errorf("importLines() = %d, want %d", imported, len(tt.expected))
			}
			if got := h.Contents(); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Contents() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestImportMissingFile(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "import", filepath.Join(env.dir, "nope")); err == nil {
		t.Error("import of a missing file should fail")
	}
}

func TestCompact(t *testing.T) {
	env := newTestEnv(t)
	if err := os.WriteFile(env.history, []byte("a\n\nb\nb\nc\n"), 0600); err != nil {
		t.Fatal(err)
	}

	out := env.mustRun(t, "compact")
	if !strings.Contains(out, "3 -> 3 entries") {
		t.Errorf("compact output = %q", out)
	}
	data, err := os.ReadFile(env.history)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a\nb\nc\n" {
		t.Errorf("compacted file = %q, want %q", data, "a\nb\nc\n")
	}

	out = env.mustRun(t, "compact", "--max-entries", "2")
	if !strings.Contains(out, "3 -> 2 entries") {
		t.Errorf("compact output = %q", out)
	}

	env.mustRun(t, "compact", "--max-size", "2B")
	data, err = os.ReadFile(env.history)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "c\n" {
		t.Errorf("compacted file = %q, want %q", data, "c\n")
	}
}

func TestCompactRejectsBadLimits(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "compact", "--max-entries", "-5"); err == nil {
		t.Error("negative --max-entries should fail")
	}
	if _, err := env.run(t, "compact", "--max-size", "lots"); err == nil {
		t.Error("invalid --max-size should fail")
	}
}

// TestConfigCommand tests the config subcommands
func TestConfigCommand(t *testing.T) {
	env := newTestEnv(t)

	if got := env.mustRun(t, "config", "path"); got != env.config+"\n" {
		t.Errorf("config path = %q, want %q", got, env.config+"\n")
	}

	env.mustRun(t, "config", "init")
	if _, err := os.Stat(env.config); err != nil {
		t.Fatalf("config init did not write the file: %v", err)
	}

	if _, err := env.run(t, "config", "init"); err == nil {
		t.Error("config init should refuse to overwrite")
	}
	env.mustRun(t, "config", "init", "--force")

	out := env.mustRun(t, "config", "show")
	for _, want := range []string{"history_file: " + env.history, "max_entries: 1000", "max_size: 1MiB"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show output %q does not contain %q", out, want)
		}
	}
}

func TestConfigDrivesLimits(t *testing.T) {
	env := newTestEnv(t)
	if err := os.WriteFile(env.config, []byte("max_entries: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	env.mustRun(t, "add", "a", "b", "c")
	if got := env.mustRun(t, "list"); got != "b\nc\n" {
		t.Errorf("list = %q, want %q", got, "b\nc\n")
	}
}

func TestInvalidConfig(t *testing.T) {
	env := newTestEnv(t)
	if err := os.WriteFile(env.config, []byte("max_size: huge\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := env.run(t, "list"); err == nil {
		t.Error("invalid config should fail")
	}
}

func TestSizeValue(t *testing.T) {
	var s sizeValue
	if s.limit() != history.Inherit || s.String() != "inherit" {
		t.Errorf("unset sizeValue = %d %q", s.limit(), s.String())
	}
	if err := s.Set("4KiB"); err != nil {
		t.Fatal(err)
	}
	if s.limit() != 4096 || s.String() != "4.0 KiB" {
		t.Errorf("sizeValue = %d %q", s.limit(), s.String())
	}
	if err := s.Set("unlimited"); err != nil {
		t.Fatal(err)
	}
	if s.limit() != history.Unbounded {
		t.Errorf("unlimited sizeValue = %d", s.limit())
	}
	s.reset()
	if s.set {
		t.Error("reset should clear the value")
	}
}
