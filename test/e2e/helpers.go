//go:build e2e

package e2e

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
)

var (
	buildOnce sync.Once
	binPath   string
	buildErr  error
	buildOut  []byte
)

// GetBinaryPath builds the CLI once per test binary and returns its path.
func GetBinaryPath(t *testing.T) string {
	t.Helper()
	buildOnce.Do(func() {
		dir, err := os.MkdirTemp("", "cloudsweep-e2e")
		if err != nil {
			buildErr = err
			return
		}
		binPath = filepath.Join(dir, "cloudsweep")
		cmd := exec.Command("go", "build", "-o", binPath, "./cmd/cloudsweep")
		cmd.Dir = "../../"
		cmd.Env = os.Environ()
		buildOut, buildErr = cmd.CombinedOutput()
	})
	if buildErr != nil {
		t.Fatalf("Build failed: %v\n%s", buildErr, buildOut)
	}
	return binPath
}

// RunCLI runs the binary without a terminal and with an isolated HOME.
func RunCLI(t *testing.T, args ...string) (string, int) {
	t.Helper()
	cmd := exec.Command(GetBinaryPath(t), args...)
	home := t.TempDir()
	cmd.Env = append(os.Environ(),
		"HOME="+home,
		"AWS_ACCESS_KEY_ID=test",
		"AWS_SECRET_ACCESS_KEY=test",
		"AWS_EC2_METADATA_DISABLED=true",
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return out.String(), 0
	case errors.As(err, &exitErr):
		return out.String(), exitErr.ExitCode()
	}
	t.Fatalf("failed to run cloudsweep: %v", err)
	return "", -1
}
