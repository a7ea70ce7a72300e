package executor

import (
	"os"
	"slices"

	"github.com/RihenUniverse/jenga/internal/fingerprint"
)

// needsRecompile decides whether one translation unit must be rebuilt.
// Checks run in order and short-circuit on the first hit:
// output absent, never cached, source changed, options changed, any
// discovered dependency changed or vanished.
func (e *Executor) needsRecompile(src, obj, optionsHash string) (bool, string) {
	if e.opts.Force {
		return true, "forced rebuild"
	}

	if _, err := os.Stat(obj); err != nil {
		return true, "object file missing"
	}

	if e.store == nil {
		return true, "cache disabled"
	}

	entry, err := e.store.GetFile(src)
	if err != nil || entry == nil {
		return true, "not in cache"
	}

	fp, err := fingerprint.File(src, e.strategy)
	if err != nil {
		return true, "source unreadable"
	}

	if fp != entry.Fingerprint {
		return true, "source changed"
	}

	if entry.OptionsHash != optionsHash {
		return true, "compile options changed"
	}

	for _, dep := range entry.Deps {
		depFp, err := fingerprint.File(dep, e.strategy)
		if err != nil {
			return true, "dependency missing: " + dep
		}

		if depFp != entry.DepFingerprints[dep] {
			return true, "dependency changed: " + dep
		}
	}

	return false, ""
}

// needsRelink decides whether the link step can be skipped. It is skipped
// only when the output exists, the combined object-set fingerprint matches
// the last successful link, and the resolved library identity set plus the
// library files' fingerprints are unchanged.
func (e *Executor) needsRelink(key, output, objectsFp string, libs []string, libsFp string) (bool, string) {
	if e.opts.Force {
		return true, "forced rebuild"
	}

	if _, err := os.Stat(output); err != nil {
		return true, "output missing"
	}

	if e.store == nil {
		return true, "cache disabled"
	}

	entry, err := e.store.GetLink(key)
	if err != nil || entry == nil {
		return true, "no link record"
	}

	if entry.ObjectsFingerprint != objectsFp {
		return true, "objects changed"
	}

	if !slices.Equal(entry.Libraries, libs) {
		return true, "library set changed"
	}

	if entry.LibsFingerprint != libsFp {
		return true, "library contents changed"
	}

	return false, ""
}

// linkInputs fingerprints the link step's inputs: the object-file set and
// the library files that exist on disk. libs must already be sorted.
func (e *Executor) linkInputs(objects, libFiles []string) (objectsFp, libsFp string, err error) {
	objFps := make([]string, 0, len(objects))
	for _, obj := range objects {
		fp, err := fingerprint.File(obj, e.strategy)
		if err != nil {
			return "", "", err
		}

		objFps = append(objFps, fp)
	}

	libFps := make([]string, 0, len(libFiles))
	for _, lib := range libFiles {
		fp, err := fingerprint.File(lib, e.strategy)
		if err != nil {
			// Libraries outside the workspace (system libs) may not
			// resolve to files; identity alone covers them.
			continue
		}

		libFps = append(libFps, fp)
	}

	return fingerprint.Combine(objFps), fingerprint.Combine(libFps), nil
}

// sortedLibs builds the link-identity set: dependency outputs by path plus
// plain library names.
func sortedLibs(res *resolution) []string {
	libs := make([]string, 0, len(res.libFiles)+len(res.extraLinks))
	libs = append(libs, res.libFiles...)
	libs = append(libs, res.extraLinks...)
	slices.Sort(libs)
	return libs
}
