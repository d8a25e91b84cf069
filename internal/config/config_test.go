package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gravitas-games/sekaiscout/internal/catalog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Relay.Capacity != 10 || cfg.Relay.PollInterval != time.Second || cfg.Relay.ReconnectDelay != 10*time.Second {
		t.Fatalf("unexpected relay defaults: %+v", cfg.Relay)
	}
	if cfg.Catalog.RefreshInterval != 6*time.Hour || cfg.Catalog.RetryInterval != 5*time.Minute {
		t.Fatalf("unexpected catalog defaults: %+v", cfg.Catalog)
	}
	if cfg.TargetCategory() != catalog.MysekaiMaterial || cfg.Harvest.TargetID != 12 {
		t.Fatalf("unexpected harvest defaults: %+v", cfg.Harvest)
	}
	if cfg.Catalog.URLTemplate != catalog.DefaultURLTemplate {
		t.Fatalf("unexpected url template %q", cfg.Catalog.URLTemplate)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9000
relay:
  backend: redis
  address: redis:6379
  poll_interval: 250ms
harvest:
  target_type: mysekai_item
  target_id: 7
dump:
  enabled: true
  dir: /tmp/dumps
`)
	t.Setenv("SEKAISCOUT_SERVER_PORT", "9100")
	t.Setenv("SEKAISCOUT_RELAY_RECONNECT_DELAY", "3s")
	t.Setenv("SEKAISCOUT_CRYPTO_KEY", "0123456789abcdef")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Address() != "127.0.0.1:9100" {
		t.Fatalf("expected env to override port, got %s", cfg.Address())
	}
	if cfg.Relay.Address != "redis:6379" || cfg.Relay.PollInterval != 250*time.Millisecond {
		t.Fatalf("file values lost: %+v", cfg.Relay)
	}
	if cfg.Relay.ReconnectDelay != 3*time.Second {
		t.Fatalf("expected reconnect delay from env, got %v", cfg.Relay.ReconnectDelay)
	}
	if cfg.Crypto.Key != "0123456789abcdef" {
		t.Fatalf("expected crypto key from env, got %q", cfg.Crypto.Key)
	}
	if cfg.TargetCategory() != catalog.MysekaiItem || cfg.Harvest.TargetID != 7 {
		t.Fatalf("unexpected harvest config: %+v", cfg.Harvest)
	}
	if !cfg.Dump.Enabled || cfg.Dump.Dir != "/tmp/dumps" {
		t.Fatalf("unexpected dump config: %+v", cfg.Dump)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"backend":  "relay:\n  backend: kafka\n",
		"memory":   "relay:\n  backend: memory\n",
		"category": "harvest:\n  target_type: gems\n",
		"ca pair":  "proxy:\n  ca_cert: ca.pem\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	_, err := Load(writeConfig(t, "harvest:\n  target_type: gems\n"))
	if !errors.Is(err, catalog.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestLoadEmbeddedMemoryRelay(t *testing.T) {
	cfg, err := Load(writeConfig(t, "relay:\n  backend: memory\nproxy:\n  embedded: true\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Relay.Backend != "memory" || !cfg.Proxy.Embedded {
		t.Fatalf("unexpected config: %+v %+v", cfg.Relay, cfg.Proxy)
	}
}

func TestLoadParseErrors(t *testing.T) {
	if _, err := Load(writeConfig(t, "server: [")); err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Fatalf("expected parse error, got %v", err)
	}

	t.Setenv("SEKAISCOUT_SERVER_PORT", "not-an-int")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected env error, got %v", err)
	}
}
