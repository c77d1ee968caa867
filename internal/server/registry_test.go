package server

import (
	"testing"

	"github.com/any-hub/any-fs/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Hub: config.HubConfig{Name: "S1", Namespace: "S1", Root: "S1"},
		Backends: []config.BackendConfig{
			{Name: "S2", Category: "pdf", Address: "127.0.0.1:4302", Root: "S2"},
			{Name: "S3", Category: "txt", Address: "127.0.0.1:4303", Root: "S3"},
			{Name: "S4", Category: "zip", Address: "127.0.0.1:4304", Root: "S4"},
		},
	}
}

func TestEndpointRegistryRoutes(t *testing.T) {
	reg, err := NewEndpointRegistry(testConfig())
	if err != nil {
		t.Fatalf("registry error: %v", err)
	}

	cases := []struct {
		file  string
		name  string
		local bool
	}{
		{"main.c", "S1", true},
		{"doc.pdf", "S2", false},
		{"dir/notes.txt", "S3", false},
		{"bundle.zip", "S4", false},
	}
	for _, tc := range cases {
		t.Run(tc.file, func(t *testing.T) {
			ep, ok := reg.ForFile(tc.file)
			if !ok {
				t.Fatalf("no endpoint for %s", tc.file)
			}
			if ep.Name != tc.name || ep.Local != tc.local {
				t.Fatalf("unexpected endpoint %+v", ep)
			}
		})
	}

	if _, ok := reg.ForFile("virus.exe"); ok {
		t.Fatalf("unknown extension should not route")
	}
}

func TestEndpointRegistryOrder(t *testing.T) {
	reg, err := NewEndpointRegistry(testConfig())
	if err != nil {
		t.Fatalf("registry error: %v", err)
	}

	var keys []string
	for _, ep := range reg.List() {
		keys = append(keys, ep.Category.Key)
	}
	if got := len(keys); got != 4 || keys[0] != "c" || keys[1] != "pdf" || keys[2] != "txt" || keys[3] != "zip" {
		t.Fatalf("unexpected order %v", keys)
	}

	remote := reg.Remote()
	if len(remote) != 3 {
		t.Fatalf("expected 3 remote endpoints, got %d", len(remote))
	}
	for _, ep := range remote {
		if ep.Local || ep.Address == "" {
			t.Fatalf("unexpected remote endpoint %+v", ep)
		}
	}
}

func TestEndpointRegistryMissingBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Backends = cfg.Backends[:2]
	if _, err := NewEndpointRegistry(cfg); err == nil {
		t.Fatalf("expected error when zip backend is missing")
	}
	if _, err := NewEndpointRegistry(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
