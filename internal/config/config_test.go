package config

import (
	"os"
	"path/filepath"
	"testing"
)

func mockEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig() returned nil")
	}
	if cfg.MaxProc != 1 {
		t.Errorf("DefaultConfig() MaxProc = %d, want 1", cfg.MaxProc)
	}
	if cfg.MusicSourceDir != "" {
		t.Errorf("DefaultConfig() MusicSourceDir = %q, want empty", cfg.MusicSourceDir)
	}
	if len(cfg.ValidArtExts) == 0 {
		t.Error("DefaultConfig() ValidArtExts should be non-empty")
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	configDir := filepath.Join(tmpDir, "rosefs")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configContent := `
music_source_dir = "/music"
fuse_mount_dir = "/mnt/rosefs"
max_proc = 4

[[artist_aliases]]
artist = "Remedios"
aliases = ["Remy"]
`
	configPath := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	env := mockEnv(map[string]string{"XDG_CONFIG_HOME": tmpDir})
	cfg, err := LoadWithEnv(env)
	if err != nil {
		t.Fatalf("LoadWithEnv() error: %v", err)
	}

	if cfg.MusicSourceDir != "/music" {
		t.Errorf("MusicSourceDir = %q, want /music", cfg.MusicSourceDir)
	}
	if cfg.MaxProc != 4 {
		t.Errorf("MaxProc = %d, want 4", cfg.MaxProc)
	}
	if got := cfg.AliasesFor("Remedios"); len(got) != 1 || got[0] != "Remy" {
		t.Errorf("AliasesFor(Remedios) = %v, want [Remy]", got)
	}
	if got := cfg.ParentsOf("Remy"); len(got) != 1 || got[0] != "Remedios" {
		t.Errorf("ParentsOf(Remy) = %v, want [Remedios]", got)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	configDir := filepath.Join(tmpDir, "rosefs")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	configPath := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(configPath, []byte(`music_source_dir = "/from-file"`), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	env := mockEnv(map[string]string{
		"XDG_CONFIG_HOME":          tmpDir,
		"ROSEFS_MUSIC_SOURCE_DIR":  "/from-env",
	})
	cfg, err := LoadWithEnv(env)
	if err != nil {
		t.Fatalf("LoadWithEnv() error: %v", err)
	}
	if cfg.MusicSourceDir != "/from-env" {
		t.Errorf("MusicSourceDir = %q, want /from-env (env override)", cfg.MusicSourceDir)
	}
}

func TestLoadNoConfigFile(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	env := mockEnv(map[string]string{"XDG_CONFIG_HOME": tmpDir})

	cfg, err := LoadWithEnv(env)
	if err != nil {
		t.Fatalf("LoadWithEnv() error: %v", err)
	}
	if cfg.MaxProc != 1 {
		t.Errorf("LoadWithEnv() without file should use default MaxProc, got %d", cfg.MaxProc)
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	configDir := filepath.Join(tmpDir, "rosefs")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	configPath := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(configPath, []byte("this is not = [valid toml"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	env := mockEnv(map[string]string{"XDG_CONFIG_HOME": tmpDir})
	if _, err := LoadWithEnv(env); err == nil {
		t.Error("LoadWithEnv() with invalid TOML should return error")
	}
}

func TestGetConfigPathXDG(t *testing.T) {
	t.Parallel()
	env := mockEnv(map[string]string{"XDG_CONFIG_HOME": "/custom/config/path"})
	path := getConfigPathWithEnv(env)
	want := filepath.Join("/custom/config/path", "rosefs", "config.toml")
	if path != want {
		t.Errorf("getConfigPathWithEnv() = %q, want %q", path, want)
	}
}

func TestGetConfigPathFallback(t *testing.T) {
	t.Parallel()
	env := mockEnv(map[string]string{})
	path := getConfigPathWithEnv(env)
	home, _ := os.UserHomeDir()
	want := filepath.Join(home, ".config", "rosefs", "config.toml")
	if path != want {
		t.Errorf("getConfigPathWithEnv() = %q, want %q", path, want)
	}
}
