package config

import (
	"os"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("CONFIG_FILE")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != "0.0.0.0" || cfg.Server.HTTPPort != "8080" {
		t.Errorf("server defaults: %+v", cfg.Server)
	}
	if cfg.Database.Driver != "" {
		t.Errorf("database must default to file-only mode, got %q", cfg.Database.Driver)
	}
	if cfg.Store.Dir == "" {
		t.Error("store.dir must have a default")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("logging defaults: %+v", cfg.Logging)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"
	content := `
server:
  address: 127.0.0.1
  http_port: "9090"
database:
  driver: postgres
  dsn: postgres://u:p@localhost:5432/calcfleet
auth:
  service_tokens: ["tok-1", "tok-2"]
firmware:
  public_base: https://fleet.example.com
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.HTTPPort != "9090" {
		t.Errorf("port = %q", cfg.Server.HTTPPort)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %q", cfg.Database.Driver)
	}
	if len(cfg.Auth.ServiceTokens) != 2 || cfg.Auth.ServiceTokens[0] != "tok-1" {
		t.Errorf("tokens = %v", cfg.Auth.ServiceTokens)
	}
	if cfg.Firmware.PublicBase != "https://fleet.example.com" {
		t.Errorf("public base = %q", cfg.Firmware.PublicBase)
	}
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"
	if err := os.WriteFile(path, []byte("database:\n  driver: oracle\n  dsn: x\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for unsupported driver")
	}
}
