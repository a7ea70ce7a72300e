package executor

import (
	"sync"

	"github.com/google/uuid"
)

// BuildState tracks which projects already compiled or failed during one
// build session. Entries are scoped by an optional (platform, arch) context
// key so multi-ABI builds don't clobber each other's bookkeeping: a project
// compiled for arm64 is never reported compiled for x86_64.
type BuildState struct {
	mu sync.Mutex

	// SessionID identifies one build session in logs.
	SessionID string

	compiled map[string]map[string]bool
	failed   map[string]map[string]bool
}

func NewBuildState() *BuildState {
	return &BuildState{
		SessionID: uuid.NewString(),
		compiled:  make(map[string]map[string]bool),
		failed:    make(map[string]map[string]bool),
	}
}

func contextKey(platform, arch string) string {
	if platform == "" && arch == "" {
		return ""
	}

	return platform + "|" + arch
}

// IsProjectCompiled reports whether the project was compiled under exactly
// this context. A context-scoped query never consults another context's
// state.
func (s *BuildState) IsProjectCompiled(name, platform, arch string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.compiled[contextKey(platform, arch)][name]
}

// IsProjectFailed reports whether the project failed under this context.
func (s *BuildState) IsProjectFailed(name, platform, arch string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.failed[contextKey(platform, arch)][name]
}

// MarkCompiled records a successful build of the project in this context.
func (s *BuildState) MarkCompiled(name, platform, arch string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := contextKey(platform, arch)
	if s.compiled[key] == nil {
		s.compiled[key] = make(map[string]bool)
	}

	s.compiled[key][name] = true
}

// MarkFailed records a failed build of the project in this context.
func (s *BuildState) MarkFailed(name, platform, arch string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := contextKey(platform, arch)
	if s.failed[key] == nil {
		s.failed[key] = make(map[string]bool)
	}

	s.failed[key][name] = true
}

// Reset clears all bookkeeping while keeping the session id.
func (s *BuildState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.compiled = make(map[string]map[string]bool)
	s.failed = make(map[string]map[string]bool)
}
