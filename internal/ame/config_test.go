package ame

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ame/internal/aur"
)

func fakeEnv(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestLoadConfigDefaults(t *testing.T) {
	getenv := fakeEnv(map[string]string{"HOME": "/home/u"})
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), getenv, nil)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.AURURL != aur.DefaultURL {
		t.Errorf("AURURL = %q", cfg.AURURL)
	}
	if cfg.CacheDir != "/home/u/.cache/ame" {
		t.Errorf("CacheDir = %q", cfg.CacheDir)
	}
	if cfg.RPCBatchSize != 150 || cfg.RPCTimeout != 20*time.Second {
		t.Errorf("rpc settings = %d, %v", cfg.RPCBatchSize, cfg.RPCTimeout)
	}
	if cfg.Elevator != "sudo" || cfg.Pacman != "pacman" || cfg.Makepkg != "makepkg" {
		t.Errorf("tools = %q %q %q", cfg.Elevator, cfg.Pacman, cfg.Makepkg)
	}
	if !cfg.BuildLogs || cfg.NoConfirm || cfg.SkipReview {
		t.Errorf("flags = %+v", cfg)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`aur_url: https://aur.example.org
cache_dir: /var/cache/ame
rpc_batch_size: 0
rpc_timeout: 5s
elevator: doas
noconfirm: true
verbosity: debug
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	environ := []string{
		"PATH=/usr/bin",
		"AME_CACHE_DIR=/tmp/ame",
		"AME_AUR_URL=https://mirror.example.org/",
		"AME_SKIP_REVIEW=1",
		"AME_BUILD_LOGS=false",
	}
	cfg, err := loadConfig(path, fakeEnv(nil), environ)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.CacheDir != "/tmp/ame" {
		t.Errorf("CacheDir = %q, want the env override", cfg.CacheDir)
	}
	if cfg.AURURL != "https://mirror.example.org" {
		t.Errorf("AURURL = %q", cfg.AURURL)
	}
	if cfg.RPCBatchSize != 150 {
		t.Errorf("RPCBatchSize = %d, want the default for 0", cfg.RPCBatchSize)
	}
	if cfg.RPCTimeout != 5*time.Second || cfg.Elevator != "doas" || cfg.Verbosity != "debug" {
		t.Errorf("file settings not applied: %+v", cfg)
	}
	if !cfg.NoConfirm || !cfg.SkipReview || cfg.BuildLogs {
		t.Errorf("boolean settings = %+v", cfg)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("verbosity: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(bad, fakeEnv(nil), nil); err == nil {
		t.Error("malformed YAML accepted")
	}

	missing := filepath.Join(dir, "none.yaml")
	if _, err := loadConfig(missing, fakeEnv(nil), []string{"AME_VERBOSITY=loud"}); err == nil {
		t.Error("unknown verbosity accepted")
	}
	if _, err := loadConfig(missing, fakeEnv(nil), []string{"AME_NOCONFIRM=maybe"}); err == nil {
		t.Error("malformed boolean accepted")
	}
}

func TestDefaultPathsHonourXDG(t *testing.T) {
	getenv := fakeEnv(map[string]string{
		"HOME":            "/home/u",
		"XDG_CACHE_HOME":  "/xdg/cache",
		"XDG_CONFIG_HOME": "/xdg/config",
	})
	if got := defaultCacheDir(getenv); got != "/xdg/cache/ame" {
		t.Errorf("defaultCacheDir() = %q", got)
	}
	if got := defaultConfigFile(getenv); got != "/xdg/config/ame/config.yaml" {
		t.Errorf("defaultConfigFile() = %q", got)
	}
	if got := defaultConfigFile(fakeEnv(map[string]string{"HOME": "/home/u"})); got != "/home/u/.config/ame/config.yaml" {
		t.Errorf("defaultConfigFile() = %q", got)
	}
}
