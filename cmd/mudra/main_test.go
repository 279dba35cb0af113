package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSettingsURL(t *testing.T) {
	tests := map[string]string{
		":8080":          "http://127.0.0.1:8080/",
		"127.0.0.1:9000": "http://127.0.0.1:9000/",
		"localhost:80":   "http://localhost:80/",
	}
	for addr, want := range tests {
		if got := settingsURL(addr); got != want {
			t.Errorf("settingsURL(%q) = %q, want %q", addr, got, want)
		}
	}
}

func TestFindWebDir_DataDir(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	dataDir := t.TempDir()
	if got := findWebDir(dataDir); got != "" {
		t.Errorf("findWebDir() = %q, want empty", got)
	}

	web := filepath.Join(dataDir, "web")
	if err := os.Mkdir(web, 0755); err != nil {
		t.Fatal(err)
	}
	if got := findWebDir(dataDir); got != web {
		t.Errorf("findWebDir() = %q, want %q", got, web)
	}
}
