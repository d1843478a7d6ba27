// Package pathutil provides path and name validation for the staging pipeline.
//
// Every component that touches the filesystem resolves candidate paths through
// SafeJoin first; there is no other enforcement point.
package pathutil

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/agentic-project/agentic/pkg/errclass"
)

// ReservedDirName is the pipeline's own control directory under the project
// root. Staged paths may never target it; an approved write landing there
// could rewrite manifests and decisions.
const ReservedDirName = ".agentic"

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ValidateName checks actor/template name safety.
func ValidateName(name string) error {
	if name == "" {
		return errclass.ErrNameInvalid.WithMessage("name must not be empty")
	}

	// NFC normalize
	name = norm.NFC.String(name)

	if name == ".." || strings.Contains(name, "..") {
		return errclass.ErrNameInvalid.WithMessagef("name must not contain '..': %s", name)
	}

	if strings.ContainsAny(name, "/\\") {
		return errclass.ErrNameInvalid.WithMessagef("name must not contain separators: %s", name)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return errclass.ErrNameInvalid.WithMessagef("name must not contain control characters: %q", name)
		}
	}

	if !nameRegex.MatchString(name) {
		return errclass.ErrNameInvalid.WithMessagef("name must match [a-zA-Z0-9._-]+: %s", name)
	}

	return nil
}

// ValidateRelPath checks that rel is a usable project-root-relative path:
// non-empty, not absolute, no '~' expansion, no '..' segments, no control
// characters, and outside the reserved control directory. The check is
// purely lexical and works before the file exists.
func ValidateRelPath(rel string) error {
	if strings.TrimSpace(rel) == "" {
		return errclass.ErrPathTraversal.WithMessage("empty path not allowed")
	}

	rel = norm.NFC.String(rel)

	if strings.HasPrefix(rel, "~") {
		return errclass.ErrPathTraversal.WithMessagef("absolute path not allowed: %s", rel)
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, "\\") {
		return errclass.ErrPathTraversal.WithMessagef("absolute path not allowed: %s", rel)
	}

	for _, r := range rel {
		if unicode.IsControl(r) {
			return errclass.ErrPathTraversal.WithMessagef("control characters in path: %q", rel)
		}
	}

	// Check both separator conventions before cleaning
	for _, seg := range strings.FieldsFunc(filepath.ToSlash(rel), func(r rune) bool { return r == '/' }) {
		if seg == ".." {
			return errclass.ErrPathTraversal.WithMessagef("path traversal detected: %s", rel)
		}
	}

	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return errclass.ErrPathTraversal.WithMessagef("path traversal detected: %s", rel)
	}
	if strings.HasPrefix(cleaned, string(filepath.Separator)) {
		return errclass.ErrPathTraversal.WithMessagef("path traversal detected: %s", rel)
	}

	if first, _, _ := strings.Cut(filepath.ToSlash(cleaned), "/"); first == ReservedDirName {
		return errclass.ErrPathTraversal.WithMessagef("path targets the control directory: %s", rel)
	}

	return nil
}

// SafeJoin validates rel and resolves it under root, returning the absolute
// target path. The lexical check runs first (works for paths that do not
// exist yet), then the closest existing ancestor is resolved through symlinks
// and re-checked, so a symlinked ancestor cannot smuggle the target outside
// root.
func SafeJoin(root, rel string) (string, error) {
	if err := ValidateRelPath(rel); err != nil {
		return "", err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", errclass.ErrPathTraversal.WithMessagef("cannot resolve root: %v", err)
	}

	target := filepath.Join(absRoot, filepath.FromSlash(norm.NFC.String(rel)))

	// Lexical containment after Clean
	if target != absRoot && !strings.HasPrefix(target, absRoot+string(filepath.Separator)) {
		return "", errclass.ErrPathTraversal.WithMessagef("path escapes root: %s", rel)
	}

	// Resolve root symlinks for the ancestor comparison
	resolvedRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", errclass.ErrPathTraversal.WithMessagef("cannot resolve root: %v", err)
	}

	// Resolve the target through any existing ancestors; the target itself
	// may not exist yet.
	resolvedTarget, err := filepath.EvalSymlinks(target)
	if err != nil {
		if os.IsNotExist(err) {
			resolvedTarget = resolveClosestAncestor(target)
		} else {
			return "", errclass.ErrPathTraversal.WithMessagef("cannot resolve target: %v", err)
		}
	}

	if resolvedTarget != resolvedRoot &&
		!strings.HasPrefix(resolvedTarget+string(filepath.Separator), resolvedRoot+string(filepath.Separator)) {
		return "", errclass.ErrPathTraversal.WithMessagef("path escapes root: %s", rel)
	}

	return target, nil
}

// resolveClosestAncestor walks up from path to find the closest existing
// ancestor, resolves it, then appends the remaining components.
func resolveClosestAncestor(path string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		if os.IsNotExist(err) {
			// Recurse up
			resolved = resolveClosestAncestor(dir)
		} else {
			return filepath.Clean(path)
		}
	}
	return filepath.Join(resolved, base)
}
