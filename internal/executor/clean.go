package executor

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/RihenUniverse/jenga/internal/cache"
	"github.com/RihenUniverse/jenga/internal/manifest"
)

// Clean deletes exactly the outputs recorded for a project in the cache,
// then clears the project's cache entries, link records and manifests.
// Returns the files actually removed.
func (e *Executor) Clean(name string) ([]string, error) {
	if _, ok := e.ws.Projects[name]; !ok {
		return nil, fmt.Errorf("unknown project %q (valid: %s)",
			name, strings.Join(e.ws.ProjectNames(), ", "))
	}

	if e.store == nil {
		return nil, nil
	}

	st, err := e.store.GetProject(name)
	if err != nil {
		return nil, err
	}

	var removed []string
	if st != nil {
		for _, output := range st.Outputs {
			if err := os.Remove(output); err != nil {
				if !os.IsNotExist(err) {
					e.log.Warn("failed to remove output",
						slog.String("path", output), slog.Any("error", err))
				}
				continue
			}

			removed = append(removed, output)
		}
	}

	if err := e.store.DeleteProject(name); err != nil {
		return removed, err
	}

	for _, config := range e.ws.Configurations {
		for _, platform := range e.ws.Platforms {
			if err := e.store.DeleteLink(cache.LinkKey(name, config, platform)); err != nil {
				return removed, err
			}

			mPath := manifest.Path(e.manifestDir, name, config, platform)
			if err := os.Remove(mPath); err != nil && !os.IsNotExist(err) {
				e.log.Warn("failed to remove manifest",
					slog.String("path", mPath), slog.Any("error", err))
			}
		}
	}

	e.log.Info("cleaned project",
		slog.String("project", name), slog.Int("removed", len(removed)))

	return removed, nil
}
