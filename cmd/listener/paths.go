package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samcharles93/listener/internal/runlog"
)

const (
	envListenerRunsDir = "LISTENER_RUNS_DIR"

	checkpointName = "model.safetensors"
)

// resolveRunsDir picks the runs root: the flag, then $LISTENER_RUNS_DIR, then ./runs.
func resolveRunsDir(flag string) string {
	if dir := strings.TrimSpace(flag); dir != "" {
		return filepath.Clean(dir)
	}
	if dir := strings.TrimSpace(os.Getenv(envListenerRunsDir)); dir != "" {
		return filepath.Clean(dir)
	}
	return "runs"
}

// resolveCheckpointOut returns where train writes its model. An explicit
// path wins; otherwise the model goes into the run directory.
func resolveCheckpointOut(flag string, run *runlog.Dir) (string, error) {
	flag = strings.TrimSpace(flag)
	if flag == "" {
		return run.File(checkpointName), nil
	}
	out := filepath.Clean(flag)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", err
	}
	return out, nil
}

// resolveCheckpointIn accepts either a checkpoint file or a run directory
// containing one.
func resolveCheckpointIn(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("--checkpoint is required")
	}
	st, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if st.IsDir() {
		path = filepath.Join(path, checkpointName)
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("no %s in run directory: %w", checkpointName, err)
		}
	}
	return filepath.Clean(path), nil
}
