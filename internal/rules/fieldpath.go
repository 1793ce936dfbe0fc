// internal/rules/fieldpath.go
package rules

import (
	"errors"
	"strings"

	"github.com/solatis/dialkeeper/internal/types"
)

/*
 * Path resolution for extras trees.
 *
 * Hosts read the extras a rewrite produced with dotted paths such as
 * "sip.transport" or "billing.account.id". Segments name children; the
 * first child with a matching name wins, matching Node.Child.
 *
 * Limits: paths deeper than types.MaxTreeDepth are rejected up front, since
 * no tree accepted by NewAction can be that deep.
 */

// ErrEmptyPath indicates a path with no segments.
var ErrEmptyPath = errors.New("empty path")

// ErrPathNotFound indicates a path that does not resolve in the tree.
var ErrPathNotFound = errors.New("path not found")

// ErrPathTooDeep indicates a path with more segments than MaxTreeDepth.
var ErrPathTooDeep = errors.New("path exceeds maximum tree depth")

// ParsePath splits a dotted path into segments.
// Empty segments ("a..b", leading or trailing dots) are rejected.
func ParsePath(path string) ([]string, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	segs := strings.Split(path, ".")
	if len(segs) > types.MaxTreeDepth {
		return nil, ErrPathTooDeep
	}
	for _, s := range segs {
		if s == "" {
			return nil, ErrEmptyPath
		}
	}
	return segs, nil
}

// ResolvePath returns the node at a dotted path below root.
func ResolvePath(root *types.Node, path string) (*types.Node, error) {
	segs, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	n := root.Lookup(segs...)
	if n == nil {
		return nil, ErrPathNotFound
	}
	return n, nil
}

// ResolveValue returns the leaf value at a dotted path below root.
// Inner nodes resolve to ErrPathNotFound.
func ResolveValue(root *types.Node, path string) (string, error) {
	n, err := ResolvePath(root, path)
	if err != nil {
		return "", err
	}
	if !n.IsLeaf() {
		return "", ErrPathNotFound
	}
	return n.Value, nil
}
