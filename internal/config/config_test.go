package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		services []Service
		wantErr  string
	}{
		{
			name: "valid mixed registry",
			services: []Service{
				{Name: "liane", Transport: TransportDDP, Method: "webhookUpdate"},
				{Name: "audit", Transport: TransportHTTP, URL: "http://audit.local/hooks"},
			},
		},
		{
			name:     "missing name",
			services: []Service{{Transport: TransportHTTP, URL: "http://x"}},
			wantErr:  "without a name",
		},
		{
			name: "duplicate name",
			services: []Service{
				{Name: "liane", Transport: TransportDDP, Method: "a"},
				{Name: "liane", Transport: TransportHTTP, URL: "http://x"},
			},
			wantErr: "duplicate service name",
		},
		{
			name:     "unknown transport",
			services: []Service{{Name: "x", Transport: "smtp"}},
			wantErr:  "unknown transport kind",
		},
		{
			name:     "ddp without method",
			services: []Service{{Name: "x", Transport: TransportDDP}},
			wantErr:  "requires a method",
		},
		{
			name:     "http without url",
			services: []Service{{Name: "x", Transport: TransportHTTP}},
			wantErr:  "requires a url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Services: tt.services}
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error got %v, want one containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFileWithDefaults(t *testing.T) {
	data := `
provider:
  app_id: "123"
  app_secret: "shh"
services:
  - name: liane
    transport: ddp
    method: webhookUpdate
    fields: [feed, messages]
  - name: audit
    transport: http
    url: http://audit.local/hooks
    test: true
`
	path := filepath.Join(t.TempDir(), "hookfan.yaml")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 8000 || cfg.Server.WebhookPath != "/subscriptions" {
		t.Fatalf("server defaults missing: %+v", cfg.Server)
	}
	if cfg.Server.StrictStatus {
		t.Fatalf("strict status must default off")
	}
	if cfg.Dispatch.Timeout != 15*time.Second {
		t.Fatalf("dispatch timeout default got %v", cfg.Dispatch.Timeout)
	}
	if cfg.DDP.URL() != "ws://localhost:3000/websocket" {
		t.Fatalf("ddp url got %q", cfg.DDP.URL())
	}

	if len(cfg.Services) != 2 {
		t.Fatalf("expected 2 services, got %d", len(cfg.Services))
	}
	liane := cfg.Services[0]
	if liane.Name != "liane" || liane.Transport != TransportDDP || liane.Method != "webhookUpdate" {
		t.Fatalf("ddp service parsed wrong: %+v", liane)
	}
	if len(liane.Fields) != 2 {
		t.Fatalf("fields parsed wrong: %+v", liane.Fields)
	}
	if !cfg.Services[1].Test {
		t.Fatalf("test flag dropped: %+v", cfg.Services[1])
	}

	if !cfg.HasTransport(TransportDDP) || !cfg.HasTransport(TransportHTTP) {
		t.Fatalf("HasTransport wrong for %+v", cfg.Services)
	}
}

func TestLoadRejectsInvalidRegistry(t *testing.T) {
	data := `
services:
  - name: bad
    transport: carrier-pigeon
`
	path := filepath.Join(t.TempDir(), "hookfan.yaml")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatalf("expected load to reject unknown transport kind")
	}
}
