// Package corpusversion checks the on-disk pool root's declared format
// version against the range this build understands (§4.10). It is a thin
// compatibility check, not the corpus serialization format itself, which
// stays out of scope per spec.md §1's Non-goals.
//
// Grounded directly on the teacher's internal/packagemanager/resolver.go
// use of github.com/Masterminds/semver/v3 (semver.NewConstraint,
// semver.NewVersion), reused here for corpus-format compatibility instead
// of package dependency resolution.
package corpusversion

import (
	"fmt"
	"io"
	"strings"

	semver "github.com/Masterminds/semver/v3"

	"github.com/orizon-lang/orizon-fuzz/internal/errors"
	"github.com/orizon-lang/orizon-fuzz/internal/runtime/vfs"
)

// FileName is the name of the version marker file written at a pool root.
const FileName = "VERSION"

// Current is the delta/path encoding version this build produces.
const Current = "1.0.0"

// SupportedRange is the semver constraint this build accepts when reading
// an existing pool root. It tracks Current's major version: a corpus
// written by a future incompatible major bump is rejected rather than
// silently misread.
const SupportedRange = "^1.0.0"

// Write records Current at <root>/VERSION.
func Write(fs vfs.FileSystem, root string) error {
	f, err := fs.Create(vfs.Join(root, FileName))
	if err != nil {
		return fmt.Errorf("corpusversion: create %s: %w", FileName, err)
	}
	defer f.Close()

	_, err = f.Write([]byte(Current + "\n"))

	return err
}

// Read returns the version string recorded at <root>/VERSION.
func Read(fs vfs.FileSystem, root string) (string, error) {
	f, err := fs.Open(vfs.Join(root, FileName))
	if err != nil {
		return "", fmt.Errorf("corpusversion: open %s: %w", FileName, err)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("corpusversion: read %s: %w", FileName, err)
	}

	return strings.TrimSpace(string(b)), nil
}

// Check reports whether versionString satisfies SupportedRange.
func Check(versionString string) (bool, error) {
	v, err := semver.NewVersion(versionString)
	if err != nil {
		return false, fmt.Errorf("corpusversion: parse %q: %w", versionString, err)
	}

	c, err := semver.NewConstraint(SupportedRange)
	if err != nil {
		return false, fmt.Errorf("corpusversion: parse constraint %q: %w", SupportedRange, err)
	}

	return c.Check(v), nil
}

// EnsureCompatible reads <root>/VERSION, creating it with Current if
// absent, and returns an error if the recorded version falls outside
// SupportedRange.
func EnsureCompatible(fs vfs.FileSystem, root string) error {
	v, err := Read(fs, root)
	if err != nil {
		return Write(fs, root)
	}

	ok, err := Check(v)
	if err != nil {
		return err
	}

	if !ok {
		return errors.CorpusVersionUnsupported(root, v, SupportedRange)
	}

	return nil
}
