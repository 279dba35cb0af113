package plugin

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeManifest creates dir/name/plugin.json and returns the plugin directory.
func writeManifest(t *testing.T, dir string, m Manifest) string {
	t.Helper()

	pluginDir := filepath.Join(dir, m.Name)
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}

	manifestBytes, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pluginDir, "plugin.json"), manifestBytes, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return pluginDir
}

func TestManager_Discover(t *testing.T) {
	tmpDir := t.TempDir()
	pluginDir := writeManifest(t, tmpDir, Manifest{
		Name:        "system-control",
		Version:     "1.0.0",
		Description: "Media controls",
		Executable:  "system-control",
		Actions:     []string{"play-pause", "volume-up"},
	})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 {
		t.Fatalf("expected 1 plugin, got %d", len(plugins))
	}

	plugin := plugins[0]
	if plugin.Manifest.Name != "system-control" {
		t.Errorf("expected plugin name 'system-control', got %q", plugin.Manifest.Name)
	}
	if plugin.Path != pluginDir {
		t.Errorf("expected path %q, got %q", pluginDir, plugin.Path)
	}
	if want := filepath.Join(pluginDir, "system-control"); plugin.Executable != want {
		t.Errorf("expected executable %q, got %q", want, plugin.Executable)
	}
}

func TestManager_List_SortedByName(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		writeManifest(t, tmpDir, Manifest{Name: name, Executable: name, Actions: []string{"a"}})
	}

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	var names []string
	for _, p := range manager.List() {
		names = append(names, p.Manifest.Name)
	}
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestManager_Discover_SkipsBadPlugins(t *testing.T) {
	tmpDir := t.TempDir()

	// Invalid JSON
	bad := filepath.Join(tmpDir, "bad")
	if err := os.MkdirAll(bad, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bad, "plugin.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	// No manifest at all
	if err := os.MkdirAll(filepath.Join(tmpDir, "empty"), 0755); err != nil {
		t.Fatal(err)
	}

	// Missing executable
	writeManifest(t, tmpDir, Manifest{Name: "noexec", Actions: []string{"a"}})

	// Executable outside the plugin directory
	writeManifest(t, tmpDir, Manifest{Name: "escape", Executable: "../../bin/sh", Actions: []string{"a"}})

	writeManifest(t, tmpDir, Manifest{Name: "good", Executable: "good", Actions: []string{"a"}})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 || plugins[0].Manifest.Name != "good" {
		t.Errorf("expected only 'good' to be discovered, got %d plugins", len(plugins))
	}
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	manager := NewManager(filepath.Join(t.TempDir(), "missing"))
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() on missing dir should not fail: %v", err)
	}
	if len(manager.List()) != 0 {
		t.Error("expected no plugins")
	}
}

func TestManager_Discover_Rescan(t *testing.T) {
	tmpDir := t.TempDir()
	pluginDir := writeManifest(t, tmpDir, Manifest{Name: "gone", Executable: "gone", Actions: []string{"a"}})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(pluginDir); err != nil {
		t.Fatal(err)
	}
	if err := manager.Discover(); err != nil {
		t.Fatal(err)
	}
	if _, err := manager.Get("gone"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("Get after rescan error = %v, want ErrPluginNotFound", err)
	}
}

func TestManager_Resolve(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, Manifest{Name: "media", Executable: "media", Actions: []string{"next-track"}})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatal(err)
	}

	if _, err := manager.Resolve("media", "next-track"); err != nil {
		t.Errorf("Resolve() error = %v", err)
	}
	if _, err := manager.Resolve("media", "rewind"); !errors.Is(err, ErrActionNotFound) {
		t.Errorf("Resolve unknown action error = %v, want ErrActionNotFound", err)
	}
	if _, err := manager.Resolve("other", "next-track"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("Resolve unknown plugin error = %v, want ErrPluginNotFound", err)
	}
}

func TestManager_PluginDir(t *testing.T) {
	manager := NewManager("/some/path/plugins")
	if manager.PluginDir() != "/some/path/plugins" {
		t.Errorf("expected plugin dir '/some/path/plugins', got %q", manager.PluginDir())
	}
}
