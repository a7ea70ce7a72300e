// Package fingerprint computes the change-detection values the incremental
// engine compares between builds: per-file fingerprints, the project-wide
// compile-options hash and combined link-input fingerprints.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"
)

// Strategy selects how file fingerprints are computed.
type Strategy int

const (
	// Signature hashes mtime nanoseconds and size. Stat-only, O(1), the
	// default for large trees.
	Signature Strategy = iota

	// Content hashes the full file bytes. Survives checkouts that keep
	// content but rewrite mtimes.
	Content
)

// ParseStrategy maps a workspace/config value to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "", "signature":
		return Signature, nil
	case "content":
		return Content, nil
	default:
		return Signature, fmt.Errorf("unknown fingerprint strategy %q (valid: signature, content)", s)
	}
}

// File returns the fingerprint of a file under the given strategy, or an
// error if the file cannot be read/statted.
func File(path string, strategy Strategy) (string, error) {
	switch strategy {
	case Content:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}

		sum := blake3.Sum256(data)
		return hex.EncodeToString(sum[:]), nil
	default:
		info, err := os.Stat(path)
		if err != nil {
			return "", err
		}

		h := sha256.New()
		h.Write([]byte(strconv.FormatInt(info.ModTime().UnixNano(), 10)))
		h.Write([]byte("|"))
		h.Write([]byte(strconv.FormatInt(info.Size(), 10)))
		return hex.EncodeToString(h.Sum(nil)), nil
	}
}

// Options is the full set of project-wide inputs to a compile command.
// Any change to its hash invalidates every file in the project, because
// flags are project-wide.
type Options struct {
	Language     string
	Dialect      string
	Optimization string
	DebugSymbols bool
	WarningLevel string

	Defines       []string
	IncludeDirs   []string
	Links         []string
	LibDirs       []string
	CompilerFlags []string
	LinkerFlags   []string

	Config   string
	Platform string
}

// Hash concatenates the fields in a fixed order, with every list sorted
// independently first so a list-order change alone never forces a rebuild.
func (o Options) Hash() string {
	h := sha256.New()

	writeField := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}

	writeList := func(list []string) {
		sorted := make([]string, len(list))
		copy(sorted, list)
		sort.Strings(sorted)
		writeField(strings.Join(sorted, "|"))
	}

	writeField(o.Language)
	writeField(o.Dialect)
	writeField(o.Optimization)
	writeField(strconv.FormatBool(o.DebugSymbols))
	writeField(o.WarningLevel)
	writeList(o.Defines)
	writeList(o.IncludeDirs)
	writeList(o.Links)
	writeList(o.LibDirs)
	writeList(o.CompilerFlags)
	writeList(o.LinkerFlags)
	writeField(o.Config)
	writeField(o.Platform)

	return hex.EncodeToString(h.Sum(nil))
}

// Combine folds a set of fingerprints into one value. The parts are sorted
// first, so callers get an order-insensitive identity for a *set* of inputs
// (the link cache relies on this).
func Combine(parts []string) string {
	sorted := make([]string, len(parts))
	copy(sorted, parts)
	sort.Strings(sorted)

	h := sha256.New()
	for _, p := range sorted {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil))
}
