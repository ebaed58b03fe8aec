// Package resolve implements the specifier resolution decision procedure:
// given a relative import specifier and the file index, determine the
// on-disk-equivalent suffix a strict-ESM loader needs, or leave the
// specifier alone.
package resolve

import (
	"path/filepath"
	"strings"
)

// FileSet is the exact-membership view of the file index the resolver
// consults.
type FileSet interface {
	Has(path string) bool
}

// Resolver maps raw specifiers to rewritten specifiers against a fixed
// file set. Safe for concurrent use: resolution is a pure function of
// (containing directory, specifier, file set, jsx flag).
type Resolver struct {
	files FileSet
	jsx   bool
}

// New creates a Resolver over the given file set. When jsx is true,
// specifiers that resolve to .tsx sources get a .jsx suffix instead of .js.
func New(files FileSet, jsx bool) *Resolver {
	return &Resolver{files: files, jsx: jsx}
}

// Resolve returns the rewritten specifier for a relative import found in
// fromFile, and whether a rewrite applies.
//
// The decision procedure, in order:
//  1. Non-relative specifiers (no leading ".") are bare package names:
//     unchanged.
//  2. Specifiers already carrying a resolved runtime extension (.js, .jsx):
//     unchanged.
//  3. Otherwise the specifier is resolved against fromFile's directory and
//     tested against the file set: file forms (.ts, .d.ts, then .tsx) take
//     priority over directory-index forms (/index.ts, /index.d.ts, then
//     /index.tsx).
//  4. No match: unchanged. An unresolvable specifier is never an error.
func (r *Resolver) Resolve(fromFile, specifier string) (string, bool) {
	if !strings.HasPrefix(specifier, ".") {
		return specifier, false
	}

	if strings.HasSuffix(specifier, ".js") || strings.HasSuffix(specifier, ".jsx") {
		return specifier, false
	}

	candidate := filepath.Join(filepath.Dir(fromFile), filepath.FromSlash(specifier))

	if r.files.Has(candidate+".ts") || r.files.Has(candidate+".d.ts") {
		return specifier + ".js", true
	}
	if r.files.Has(candidate + ".tsx") {
		return specifier + r.scriptExt(), true
	}

	// Directory-index forms. A trailing slash on the specifier already
	// separates it from "index".
	sep := "/"
	if strings.HasSuffix(specifier, "/") {
		sep = ""
	}

	if r.files.Has(filepath.Join(candidate, "index.ts")) || r.files.Has(filepath.Join(candidate, "index.d.ts")) {
		return specifier + sep + "index.js", true
	}
	if r.files.Has(filepath.Join(candidate, "index.tsx")) {
		return specifier + sep + "index" + r.scriptExt(), true
	}

	return specifier, false
}

func (r *Resolver) scriptExt() string {
	if r.jsx {
		return ".jsx"
	}
	return ".js"
}
