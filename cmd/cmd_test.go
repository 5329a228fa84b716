package cmd

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/twiced-technology-gmbh/keepbrief/internal/brief"
	"github.com/twiced-technology-gmbh/keepbrief/internal/clierr"
	"github.com/twiced-technology-gmbh/keepbrief/internal/config"
	"github.com/twiced-technology-gmbh/keepbrief/internal/output"
)

func TestResolveSource(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		tasksFile string
		envPath   string
		want      source
		wantErr   bool
	}{
		{name: "argument", args: []string{"Keep"}, want: source{export: "Keep"}},
		{name: "env fallback", envPath: "/data/Keep", want: source{export: "/data/Keep"}},
		{name: "tasks only", tasksFile: "tasks.json", envPath: "/data/Keep", want: source{tasksFile: "tasks.json"}},
		{name: "replay", args: []string{"Keep"}, tasksFile: "tasks.json", want: source{export: "Keep", tasksFile: "tasks.json"}},
		{name: "nothing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Set(keyKeepDataPath, tt.envPath)
			t.Cleanup(func() { viper.Set(keyKeepDataPath, "") })

			got, err := resolveSource(tt.args, tt.tasksFile)
			if tt.wantErr {
				if !clierr.HasCode(err, clierr.InvalidInput) {
					t.Fatalf("err = %v, want INVALID_INPUT", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("source = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSourceWatchPath(t *testing.T) {
	if got := (source{export: "Keep", tasksFile: "t.json"}).watchPath(); got != "Keep" {
		t.Errorf("watchPath = %q, want Keep", got)
	}
	if got := (source{tasksFile: "t.json"}).watchPath(); got != "t.json" {
		t.Errorf("watchPath = %q, want t.json", got)
	}
}

func TestParseDomains(t *testing.T) {
	got, err := parseDomains([]string{"Health", "music:10:2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d domains, want 2", len(got))
	}
	if got[0].Name != "health" {
		t.Errorf("name = %q, want health", got[0].Name)
	}
	if want := config.NewDefault().DomainByName("health"); want != nil && got[0] != *want {
		t.Errorf("health = %+v, want default %+v", got[0], *want)
	}
	if got[1] != (config.DomainConfig{Name: "music", Weight: 10, MinTasks: 2}) {
		t.Errorf("music = %+v", got[1])
	}

	for _, bad := range []string{"a:1", "a:x:1", "a:1:2:3"} {
		if _, err := parseDomains([]string{bad}); !clierr.HasCode(err, clierr.InvalidInput) {
			t.Errorf("parseDomains(%q) err = %v, want INVALID_INPUT", bad, err)
		}
	}
}

func TestConfigAccessorsCoverDisplayKeys(t *testing.T) {
	accessors := configAccessors()
	keys := allConfigKeys()
	if len(keys) != len(accessors) {
		t.Errorf("%d display keys, %d accessors", len(keys), len(accessors))
	}
	cfg := config.NewDefault()
	for _, key := range keys {
		acc, ok := accessors[key]
		if !ok {
			t.Errorf("no accessor for %q", key)
			continue
		}
		if acc.writable && acc.set == nil {
			t.Errorf("%q is writable without a setter", key)
		}
		_ = formatConfigValue(acc.get(cfg))
	}
}

func TestConfigSetters(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		wantErr bool
	}{
		{key: "brief.top_n", value: "5"},
		{key: "brief.top_n", value: "five", wantErr: true},
		{key: "strict_domains", value: "true"},
		{key: "strict_domains", value: "maybe", wantErr: true},
		{key: "duplicates.similarity", value: "edit"},
		{key: "duplicates.similarity", value: "cosine", wantErr: true},
		{key: "duplicates.threshold", value: "0.8"},
		{key: "extractor.timeout", value: "90s"},
		{key: "extractor.timeout", value: "soon", wantErr: true},
		{key: "notes.exclude_labels", value: "Archive*, Recipes"},
	}

	accessors := configAccessors()
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := config.NewDefault()
			err := accessors[tt.key].set(cfg, tt.value)
			if tt.wantErr {
				if !clierr.HasCode(err, clierr.InvalidInput) {
					t.Fatalf("err = %v, want INVALID_INPUT", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("config invalid after set: %v", err)
			}
		})
	}

	cfg := config.NewDefault()
	_ = accessors["notes.exclude_labels"].set(cfg, "Archive*, Recipes")
	if got := formatConfigValue(cfg.Notes.ExcludeLabels); got != "Archive*, Recipes" {
		t.Errorf("exclude_labels = %q", got)
	}
}

func TestNormalizeFlagName(t *testing.T) {
	if got := normalizeFlagName(nil, "log_level"); got != "log-level" {
		t.Errorf("normalized = %q, want log-level", got)
	}
}

func TestBriefPrintPreview(t *testing.T) {
	b := brief.Brief{
		RunID:       "run-1",
		GeneratedAt: time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC),
	}

	t.Run("json keeps stdout parseable", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		r := briefRun{preview: true, stdout: &stdout, stderr: &stderr}
		if err := r.print(b, output.FormatJSON); err != nil {
			t.Fatal(err)
		}
		var got map[string]any
		if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
			t.Fatalf("stdout is not JSON: %v\n%s", err, stdout.String())
		}
		if got["run_id"] != "run-1" {
			t.Errorf("run_id = %v", got["run_id"])
		}
		if stderr.Len() == 0 {
			t.Error("preview was dropped")
		}
	})

	t.Run("table appends preview to stdout", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		r := briefRun{preview: true, stdout: &stdout, stderr: &stderr}
		if err := r.print(b, output.FormatTable); err != nil {
			t.Fatal(err)
		}
		var table bytes.Buffer
		output.BriefTable(&table, b)
		if stdout.Len() <= table.Len() {
			t.Error("preview missing from stdout")
		}
		if stderr.Len() != 0 {
			t.Errorf("stderr = %q, want empty", stderr.String())
		}
	})
}
