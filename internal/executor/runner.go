package executor

import (
	"context"
	"os/exec"
	"runtime"
)

// Runner abstracts subprocess execution so tests can script compiler
// behavior without real toolchains.
type Runner interface {
	// Run executes exe in dir and returns combined stdout+stderr. MSVC
	// writes diagnostics to stdout and GCC/Clang to stderr; capturing both
	// streams together covers either convention.
	Run(ctx context.Context, dir, exe string, args ...string) ([]byte, error)

	// LookPath resolves an executable name against PATH.
	LookPath(exe string) (string, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, dir, exe string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

func (execRunner) LookPath(exe string) (string, error) {
	return exec.LookPath(exe)
}

// shellCommand wraps a hook command line for the host shell. Pre/post hooks
// are written as shell lines in the workspace file.
func shellCommand(line string) (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", line}
	}

	return "sh", []string{"-c", line}
}
