package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	configPath string
	workspace  string
	output     string
}

func setupCLITestEnv(t *testing.T) cliTestEnv {
	t.Helper()
	root := t.TempDir()
	env := cliTestEnv{
		configPath: filepath.Join(root, "config.toml"),
		workspace:  filepath.Join(root, "workspace"),
		output:     filepath.Join(root, "output"),
	}
	doc := fmt.Sprintf(`[paths]
workspace_dir = %q
output_dir = %q
log_dir = %q
`, env.workspace, env.output, filepath.Join(root, "logs"))
	if err := os.WriteFile(env.configPath, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func writeBriefFile(t *testing.T, dir, slug, titleText string) string {
	t.Helper()
	path := filepath.Join(dir, slug+".yaml")
	doc := fmt.Sprintf(`slug: %s
title: %q
premise: "A test premise for the brief."
scenes:
  - prompt: "an establishing shot"
`, slug, titleText)
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write brief: %v", err)
	}
	return path
}
