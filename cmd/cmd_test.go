package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ziadkadry99/sitemermaid/internal/actions"
	"github.com/ziadkadry99/sitemermaid/internal/config"
	"github.com/ziadkadry99/sitemermaid/internal/diagrams"
	"github.com/ziadkadry99/sitemermaid/internal/notifications"
)

const snapshot = `{"configuration": {"projectName": "Shop"},
  "sitemap": {"rootNodes": [{"id": "1", "pageName": "Home", "children": [{"id": "2", "pageName": "About"}]}]}}`

func TestBatchName(t *testing.T) {
	root := filepath.Join("snapshots")
	got := batchName(root, filepath.Join(root, "a", "doc.json"))
	if want := filepath.Join("a", "doc.mmd"); got != want {
		t.Errorf("batchName = %q, want %q", got, want)
	}
}

func TestSessionOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Grouping = config.GroupingParent
	cfg.Title = "Custom"

	opts := sessionOptions(cfg, nil)
	if opts.Grouping != diagrams.GroupByParent || opts.Title != "Custom" || opts.Theme != cfg.Render.Theme {
		t.Errorf("unexpected options: %+v", opts)
	}
	if hostPaths(cfg).Roots != cfg.Paths.Roots {
		t.Error("roots path not carried over")
	}
}

func TestRunBatch(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{"a/doc.json", "b/c/doc.json"} {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(snapshot), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	t.Setenv("CI", "true")
	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()

	if err := runBatch(context.Background(), cfg, root, "**/*.json", 2); err != nil {
		t.Fatalf("runBatch: %v", err)
	}

	for _, rel := range []string{"a/doc.mmd", "b/c/doc.mmd"} {
		data, err := os.ReadFile(filepath.Join(cfg.OutputDir, rel))
		if err != nil {
			t.Fatalf("reading %s: %v", rel, err)
		}
		text := string(data)
		if !strings.Contains(text, "title: Shop Sitemap") || !strings.Contains(text, `1 --- 2["About"]`) {
			t.Errorf("%s:\n%s", rel, text)
		}
	}
}

func TestNewAppFromFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "doc.json")
	if err := os.WriteFile(input, []byte(snapshot), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Input = input
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.Database = filepath.Join(dir, "notes.db")

	a, err := newApp(context.Background(), cfg, newLogger(), appOptions{persist: true})
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()

	if err := a.regenerate(context.Background(), ""); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "sitemap.txt")); err != nil {
		t.Errorf("sitemap.txt not written: %v", err)
	}
	notes, err := a.notifier.Store().List(context.Background(), notifications.ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) == 0 {
		t.Error("expected the save to be recorded as a notification")
	}
}

func TestAppGenerate(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "doc.json")
	if err := os.WriteFile(input, []byte(snapshot), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultConfig()
	cfg.Input = input
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.CopyOnGenerate = false

	a, err := newApp(context.Background(), cfg, newLogger(), appOptions{})
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()

	tests := []struct {
		name     string
		startID  string
		wantOp   string
		wantErr  bool
		contains string
		excludes string
	}{
		{name: "whole sitemap", wantOp: actions.GenerateAll.Operation(), contains: `1 --- 2["About"]`},
		{name: "subtree", startID: "2", wantOp: actions.GenerateStartHere.Operation(), contains: `2["About"]`, excludes: "Home"},
		{name: "unknown start", startID: "99", wantOp: actions.GenerateStartHere.Operation(), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := a.generate(context.Background(), tt.startID, "")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if res.Notification.Title != tt.wantOp {
				t.Errorf("notification title = %q, want %q", res.Notification.Title, tt.wantOp)
			}
			wantSeverity := notifications.SeverityInfo
			if tt.wantErr {
				wantSeverity = notifications.SeverityCritical
			}
			if res.Notification.Severity != wantSeverity {
				t.Errorf("severity = %q, want %q", res.Notification.Severity, wantSeverity)
			}
			if tt.contains != "" && !strings.Contains(res.Diagram, tt.contains) {
				t.Errorf("diagram missing %q:\n%s", tt.contains, res.Diagram)
			}
			if tt.excludes != "" && strings.Contains(res.Diagram, tt.excludes) {
				t.Errorf("diagram contains %q:\n%s", tt.excludes, res.Diagram)
			}
		})
	}
}

func TestNewAppMissingInput(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Input = filepath.Join(t.TempDir(), "missing.json")
	cfg.Wait.Attempts = 2
	cfg.Wait.IntervalMS = 1

	if _, err := newApp(context.Background(), cfg, newLogger(), appOptions{}); err == nil {
		t.Fatal("expected an error for a missing snapshot")
	}
}
