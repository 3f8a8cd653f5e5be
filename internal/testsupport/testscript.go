package testsupport

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/intorma/torma/task"
	"github.com/rogpeppe/go-internal/testscript"
)

var (
	buildOnce sync.Once
	tormaPath string
	buildErr  error
)

// BuildTorma builds the torma binary once and returns its path.
func BuildTorma(t testing.TB) string {
	t.Helper()

	buildOnce.Do(func() {
		moduleRoot, err := findModuleRoot()
		if err != nil {
			buildErr = err
			return
		}

		binDir, err := os.MkdirTemp("", "torma-bin-")
		if err != nil {
			buildErr = err
			return
		}

		tormaPath = filepath.Join(binDir, "torma")
		cmd := exec.Command("go", "build", "-o", tormaPath, "./cmd/torma")
		cmd.Dir = moduleRoot
		output, err := cmd.CombinedOutput()
		if err != nil {
			buildErr = fmt.Errorf("build torma: %w: %s", err, strings.TrimSpace(string(output)))
		}
	})

	if buildErr != nil {
		t.Fatalf("%v", buildErr)
	}

	return tormaPath
}

// SetupScriptEnv configures common environment variables for testscript:
// a private HOME, file storage under $WORK/data, no colour and no API key.
func SetupScriptEnv(t testing.TB, env *testscript.Env) error {
	t.Helper()

	env.Setenv("TORMA", BuildTorma(t))

	homeDir := filepath.Join(env.WorkDir, "home")
	if err := EnsureHomeDirs(homeDir); err != nil {
		return err
	}
	env.Setenv("HOME", homeDir)
	env.Setenv("TORMA_STORAGE_BACKEND", "file")
	env.Setenv("TORMA_STORAGE_PATH", filepath.Join(env.WorkDir, "data"))
	env.Setenv("TORMA_LOG_LEVEL", "warn")
	env.Setenv("NO_COLOR", "1")
	env.Setenv("GEMINI_API_KEY", "")
	env.Setenv("EDITOR", "")
	return nil
}

// CmdEnvSet stores the trimmed contents of a file in an env var.
func CmdEnvSet(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("envset does not support negation")
	}
	if len(args) != 2 {
		ts.Fatalf("usage: envset VAR FILE")
	}

	value := strings.TrimSpace(ts.ReadFile(args[1]))
	ts.Setenv(args[0], value)
}

// CmdTaskID finds a task by customer name in a JSON task list and stores
// its ID in an env var.
func CmdTaskID(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("taskid does not support negation")
	}
	if len(args) != 3 {
		ts.Fatalf("usage: taskid FILE CUSTOMER VAR")
	}

	var items []task.Task
	data := ts.ReadFile(args[0])
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		ts.Fatalf("parse task list: %v", err)
	}

	customer := args[1]
	for _, item := range items {
		if item.CustomerName == customer {
			ts.Setenv(args[2], item.ID)
			return
		}
	}

	ts.Fatalf("task for customer %q not found", customer)
}

func findModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find module root (go.mod)")
		}
		dir = parent
	}
}
