package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gogpu/pushbuf"
	"github.com/gogpu/pushbuf/hw"
)

func TestRun(t *testing.T) {
	for _, backend := range []string{hw.BackendNV04, hw.BackendNV05} {
		t.Run(backend, func(t *testing.T) {
			cfg := pushbuf.DefaultConfig()
			cfg.Backend = backend
			subs, stats, err := run(cfg, 5)
			if err != nil {
				t.Fatalf("run() error = %v", err)
			}
			if len(subs) == 0 {
				t.Fatal("run() submitted nothing")
			}
			// 10-vertex polygon plus a 24-vertex strip.
			if want := 8 + 22; stats.Triangles != want {
				t.Errorf("Triangles = %d, want %d", stats.Triangles, want)
			}

			var out bytes.Buffer
			printStream(&out, 0, subs[0])
			if strings.Contains(out.String(), "truncated") {
				t.Errorf("stream truncated:\n%s", out.String())
			}
		})
	}
}

func TestLoadConfigDefault(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.VRAMHandle == 0 || cfg.GARTHandle == 0 {
		t.Errorf("loadConfig() handles = %#x, %#x, want non-zero", cfg.VRAMHandle, cfg.GARTHandle)
	}
}
