package runlog

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/samcharles93/listener/internal/logger"
)

func TestCreateGeneratesName(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	d, err := Create(root, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.ID == "" {
		t.Fatal("expected generated run id")
	}
	if st, err := os.Stat(d.Path); err != nil || !st.IsDir() {
		t.Fatalf("run directory not created: %v", err)
	}
}

func TestCreateRejectsPathNames(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"a/b", "..", `a\b`} {
		if _, err := Create(t.TempDir(), name); err == nil {
			t.Errorf("expected error for run name %q", name)
		}
	}
}

func TestDumpJSONAndLines(t *testing.T) {
	t.Parallel()
	d, err := Create(t.TempDir(), "run1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := d.DumpJSON("config.json", map[string]int{"cell_size": 20}); err != nil {
		t.Fatalf("DumpJSON: %v", err)
	}
	var cfg map[string]int
	if err := ReadJSON(d.File("config.json"), &cfg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if cfg["cell_size"] != 20 {
		t.Fatalf("unexpected config: %v", cfg)
	}

	losses := [][]float64{{4.1, 3.9}, {3.2, 3.0}}
	if err := DumpJSONLines(d, "losses.jsons", losses); err != nil {
		t.Fatalf("DumpJSONLines: %v", err)
	}
	b, err := os.ReadFile(d.File("losses.jsons"))
	if err != nil {
		t.Fatalf("read losses: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 || lines[0] != "[4.1,3.9]" {
		t.Fatalf("unexpected losses file: %q", string(b))
	}
}

func TestProgressLogsETA(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := logger.JSON(&buf, slog.LevelInfo)

	clock := time.Unix(0, 0)
	p := StartTask(log, "Iteration", 4)
	p.now = func() time.Time { return clock }
	p.start, p.last = clock, clock

	clock = clock.Add(2 * time.Second)
	p.Update(1)
	clock = clock.Add(100 * time.Millisecond)
	p.Update(2) // throttled
	clock = clock.Add(6 * time.Second)
	p.Update(4)
	p.End()

	out := buf.String()
	if strings.Count(out, `"msg":"progress"`) != 2 {
		t.Fatalf("expected 2 progress lines, got: %s", out)
	}
	if !strings.Contains(out, `"eta":"6s"`) {
		t.Fatalf("expected eta of 6s after first step, got: %s", out)
	}
	if !strings.Contains(out, `"msg":"task finished"`) {
		t.Fatalf("expected task finished line, got: %s", out)
	}
}
