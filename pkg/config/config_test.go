package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name    string `yaml:"name"`
	Workers int    `yaml:"workers"`
}

func (s *sample) Validate() error {
	if s.Workers < 1 {
		return errors.New("workers must be positive")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("LICKDEX_TEST_NAME", "from-env")
	path := writeFile(t, "name: ${LICKDEX_TEST_NAME}\n")

	cfg := sample{Workers: 4}
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "from-env" || cfg.Workers != 4 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_Validates(t *testing.T) {
	path := writeFile(t, "workers: 0\n")
	cfg := sample{Workers: 4}
	err := Load(path, &cfg)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Fatalf("err = %v, want validation failure", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg := sample{Workers: 1}
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err == nil {
		t.Fatal("missing file should fail")
	}
}

func TestLoadOptional(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	cfg := sample{Workers: 2}
	if err := LoadOptional(missing, &cfg); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if cfg.Workers != 2 {
		t.Errorf("defaults changed: %+v", cfg)
	}

	bad := sample{}
	if err := LoadOptional(missing, &bad); err == nil {
		t.Fatal("defaults are still validated")
	}

	path := writeFile(t, "workers: 9\n")
	if err := LoadOptional(path, &cfg); err != nil || cfg.Workers != 9 {
		t.Fatalf("LoadOptional existing: %+v %v", cfg, err)
	}
}
