package executor

import "fmt"

// ToolchainNotFoundError reports a missing compiler/linker executable. It is
// fatal for the toolchain and distinct from a compilation failure.
type ToolchainNotFoundError struct {
	Toolchain string
	Path      string
}

func (e *ToolchainNotFoundError) Error() string {
	return fmt.Sprintf("compiler executable not found at %q (toolchain %s)", e.Path, e.Toolchain)
}

// HookError reports a failed pre/post build or link command.
type HookError struct {
	Stage   string // pre-build, pre-link, post-link, post-build
	Command string
	Output  string
	Err     error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s command failed: %s: %v", e.Stage, e.Command, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}
