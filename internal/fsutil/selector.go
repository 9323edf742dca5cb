package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// pattern is one compiled entry of a Selector.
type pattern struct {
	raw     string
	negated bool
	base    string
	globs   []glob.Glob
}

func (p *pattern) match(rel string) bool {
	for _, g := range p.globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// Selector is an ordered list of glob patterns describing a set of files.
type Selector struct {
	patterns []*pattern
}

// Match describes one file selected by a Selector.
type Match struct {
	// Path is the absolute (or root-joined) path of the file.
	Path string
	// Rel is the slash path of the file relative to the root.
	Rel string
	// BaseRel is the slash path of the file relative to the static base of
	// the pattern that selected it.
	BaseRel string
}

// NewSelector compiles the given patterns. At least one positive pattern is
// required.
func NewSelector(patterns ...string) (*Selector, error) {
	s := &Selector{}
	positives := 0
	for _, raw := range patterns {
		p, err := compilePattern(raw)
		if err != nil {
			return nil, err
		}
		if !p.negated {
			positives++
		}
		s.patterns = append(s.patterns, p)
	}
	if positives == 0 {
		return nil, errors.New("selector needs at least one positive pattern")
	}
	return s, nil
}

// MustSelector is like NewSelector but panics on an invalid pattern.
func MustSelector(patterns ...string) *Selector {
	s, err := NewSelector(patterns...)
	if err != nil {
		panic(err)
	}
	return s
}

func compilePattern(raw string) (*pattern, error) {
	p := &pattern{raw: raw}
	expr := strings.TrimSpace(raw)
	if strings.HasPrefix(expr, "!") {
		p.negated = true
		expr = expr[1:]
	}
	expr = normalize(expr)
	if expr == "" || expr == "." {
		return nil, fmt.Errorf("invalid pattern %q: empty", raw)
	}
	if path.IsAbs(expr) {
		return nil, fmt.Errorf("invalid pattern %q: must be relative to the root", raw)
	}

	for _, variant := range doubleStarVariants(expr) {
		g, err := glob.Compile(variant, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", raw, err)
		}
		p.globs = append(p.globs, g)
	}
	p.base = staticBase(expr)
	return p, nil
}

// normalize converts a user pattern into a clean slash path without a
// leading "./".
func normalize(expr string) string {
	expr = filepath.ToSlash(expr)
	for strings.HasPrefix(expr, "./") {
		expr = expr[2:]
	}
	return expr
}

// doubleStarVariants returns the pattern plus every variant in which a
// "**/" segment matches zero directories.
func doubleStarVariants(expr string) []string {
	seen := map[string]bool{expr: true}
	queue := []string{expr}
	for i := 0; i < len(queue); i++ {
		cur := queue[i]
		var next []string
		if strings.HasPrefix(cur, "**/") {
			next = append(next, cur[3:])
		}
		for idx := strings.Index(cur, "/**/"); idx >= 0; {
			next = append(next, cur[:idx]+cur[idx+3:])
			off := strings.Index(cur[idx+1:], "/**/")
			if off < 0 {
				break
			}
			idx = idx + 1 + off
		}
		for _, n := range next {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return queue
}

func hasMeta(segment string) bool {
	return strings.ContainsAny(segment, "*?[{")
}

// staticBase returns the leading directories of a pattern that contain no
// wildcard. For a literal file path it is the parent directory.
func staticBase(expr string) string {
	segments := strings.Split(expr, "/")
	var base []string
	for i, seg := range segments {
		if hasMeta(seg) || i == len(segments)-1 {
			break
		}
		base = append(base, seg)
	}
	if len(base) == 0 {
		return "."
	}
	return strings.Join(base, "/")
}

// Patterns returns the raw patterns in their original order.
func (s *Selector) Patterns() []string {
	out := make([]string, 0, len(s.patterns))
	for _, p := range s.patterns {
		out = append(out, p.raw)
	}
	return out
}

// Match reports whether the root-relative slash path is selected: some
// positive pattern matches it and no exclusion does.
func (s *Selector) Match(rel string) bool {
	rel = normalize(rel)
	if s.excluded(rel) {
		return false
	}
	for _, p := range s.patterns {
		if !p.negated && p.match(rel) {
			return true
		}
	}
	return false
}

func (s *Selector) excluded(rel string) bool {
	for _, p := range s.patterns {
		if p.negated && p.match(rel) {
			return true
		}
	}
	return false
}

// Bases returns the distinct static base directories of the positive
// patterns, in pattern order.
func (s *Selector) Bases() []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range s.patterns {
		if p.negated || seen[p.base] {
			continue
		}
		seen[p.base] = true
		out = append(out, p.base)
	}
	return out
}

// UnreachableNegations returns the exclusion patterns whose base directory
// shares no subtree with any positive pattern. Such an exclusion can never
// remove a selected file.
func (s *Selector) UnreachableNegations() []string {
	var out []string
	for _, neg := range s.patterns {
		if !neg.negated {
			continue
		}
		reachable := false
		for _, pos := range s.patterns {
			if pos.negated {
				continue
			}
			if within(neg.base, pos.base) || within(pos.base, neg.base) {
				reachable = true
				break
			}
		}
		if !reachable {
			out = append(out, neg.raw)
		}
	}
	return out
}

// within reports whether dir equals parent or lies below it.
func within(dir, parent string) bool {
	if parent == "." || dir == parent {
		return true
	}
	return strings.HasPrefix(dir, parent+"/")
}

// Expand walks root and returns every selected regular file. Files are
// reported once, attributed to the first positive pattern that matches
// them, in lexical walk order per pattern. Missing base directories select
// nothing.
func (s *Selector) Expand(root string) ([]Match, error) {
	var out []Match
	seen := make(map[string]bool)

	for _, p := range s.patterns {
		if p.negated {
			continue
		}
		baseDir := filepath.Join(root, filepath.FromSlash(p.base))
		if _, err := os.Stat(baseDir); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}

		err := filepath.WalkDir(baseDir, func(fullPath string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}
			relOS, err := filepath.Rel(root, fullPath)
			if err != nil {
				return err
			}
			rel := filepath.ToSlash(relOS)
			if seen[rel] || !p.match(rel) || s.excluded(rel) {
				return nil
			}
			seen[rel] = true

			baseRel := rel
			if p.base != "." {
				baseRel = strings.TrimPrefix(rel, p.base+"/")
			}
			out = append(out, Match{Path: fullPath, Rel: rel, BaseRel: baseRel})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", p.raw, err)
		}
	}
	return out, nil
}
