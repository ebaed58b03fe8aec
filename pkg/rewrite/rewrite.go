// Package rewrite locates every module specifier in a parsed source file
// and splices resolved specifiers back into the original bytes.
//
// Rewriting is a surgical byte-range edit guided by the concrete syntax
// tree: every byte outside a rewritten specifier, including comments and
// blank lines, passes through bit-for-bit. There is no pretty-printing
// step to undo.
package rewrite

import (
	"fmt"
	"log/slog"
	"sort"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/esmfix/pkg/parser"
	"github.com/gnana997/esmfix/pkg/parser/queries"
	"github.com/gnana997/esmfix/pkg/resolve"
)

// Rewriter rewrites relative specifiers in single files. Safe for
// concurrent use across files; each call parses with a pooled parser.
type Rewriter struct {
	parsers *parser.Manager
	queries *queries.Manager
	logger  *slog.Logger
}

// NewRewriter creates a Rewriter on top of shared parser and query
// managers.
func NewRewriter(parsers *parser.Manager, queryMgr *queries.Manager, logger *slog.Logger) *Rewriter {
	if logger == nil {
		logger = slog.Default()
	}

	return &Rewriter{
		parsers: parsers,
		queries: queryMgr,
		logger:  logger,
	}
}

// Result is the outcome of rewriting one file.
type Result struct {
	// Output is the rewritten source. Equal to the input when Rewrites
	// is zero.
	Output []byte

	// Rewrites is the number of specifiers that changed.
	Rewrites int
}

// replacement records one specifier edit as a byte range and its new text.
type replacement struct {
	start uint
	end   uint
	text  string
}

// RewriteSource parses source and rewrites every relative specifier the
// resolver maps to a new suffix.
//
// Specifier positions come from two passes over the same tree: the
// compiled specifier query (static imports, re-exports, dynamic import
// calls) and a structural walk that catches type-level import("...")
// references. The two are de-duplicated by start byte before splicing.
//
// A tree with parse errors is still rewritten; tree-sitter yields a
// partial tree and the passes rewrite whatever specifier nodes they find.
func (r *Rewriter) RewriteSource(res *resolve.Resolver, path string, source []byte) (*Result, error) {
	lang := parser.DetectLanguage(path)
	if lang == parser.LanguageUnknown {
		return nil, fmt.Errorf("unsupported file extension: %s", path)
	}
	isTSX := parser.IsTSXFile(path)

	tree, err := r.parsers.Parse(source, lang, isTSX)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	defer tree.Close()

	query, err := r.queries.SpecifierQuery(lang, isTSX)
	if err != nil {
		return nil, err
	}

	captures, err := r.queries.Matches(tree, query, source)
	if err != nil {
		return nil, fmt.Errorf("specifier query failed on %s: %w", path, err)
	}

	seen := make(map[uint]struct{})
	var edits []replacement

	for _, capture := range captures {
		if _, ok := seen[capture.StartByte]; ok {
			continue
		}
		seen[capture.StartByte] = struct{}{}

		resolved, changed := res.Resolve(path, capture.Text)
		if !changed {
			continue
		}

		r.logger.Debug("rewriting specifier",
			"file", path,
			"capture", capture.Name,
			"from", capture.Text,
			"to", resolved)

		edits = append(edits, replacement{
			start: capture.StartByte,
			end:   capture.EndByte,
			text:  resolved,
		})
	}

	for _, spec := range collectTypeImportSpecifiers(tree.RootNode(), source) {
		if _, ok := seen[spec.start]; ok {
			continue
		}
		seen[spec.start] = struct{}{}

		resolved, changed := res.Resolve(path, spec.text)
		if !changed {
			continue
		}

		r.logger.Debug("rewriting type import specifier",
			"file", path,
			"from", spec.text,
			"to", resolved)

		edits = append(edits, replacement{
			start: spec.start,
			end:   spec.end,
			text:  resolved,
		})
	}

	if len(edits) == 0 {
		return &Result{Output: source}, nil
	}

	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	return &Result{
		Output:   applyReplacements(source, edits),
		Rewrites: len(edits),
	}, nil
}

// specifierRange is a specifier found by the structural walk.
type specifierRange struct {
	start uint
	end   uint
	text  string
}

// collectTypeImportSpecifiers walks the CST for type-level import("...")
// references: an argument list directly preceded by an `import` token,
// outside a call_expression (the query already captures dynamic import
// calls). The specifier is the first argument when it is a plain string.
func collectTypeImportSpecifiers(node *ts.Node, source []byte) []specifierRange {
	var out []specifierRange
	walkTypeImports(node, source, &out)
	return out
}

func walkTypeImports(node *ts.Node, source []byte, out *[]specifierRange) {
	if node == nil {
		return
	}

	if node.Kind() != "call_expression" {
		count := node.ChildCount()
		var prev *ts.Node
		for i := uint(0); i < count; i++ {
			child := node.Child(i)
			if prev != nil && prev.Kind() == "import" && isArgumentList(child.Kind()) {
				if spec := firstStringArgument(child, source); spec != nil {
					*out = append(*out, *spec)
				}
			}
			prev = child
		}
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		walkTypeImports(node.Child(i), source, out)
	}
}

// isArgumentList reports whether a node kind wraps the parenthesized
// argument of an import reference. Grammar versions differ on the wrapper
// kind in type position.
func isArgumentList(kind string) bool {
	switch kind {
	case "arguments", "parenthesized_expression":
		return true
	}
	return false
}

// firstStringArgument returns the fragment range of an argument list's
// first argument if that argument is a string literal.
func firstStringArgument(args *ts.Node, source []byte) *specifierRange {
	first := args.NamedChild(0)
	if first == nil || first.Kind() != "string" {
		return nil
	}

	for i := uint(0); i < first.NamedChildCount(); i++ {
		fragment := first.NamedChild(i)
		if fragment.Kind() != "string_fragment" {
			continue
		}
		return &specifierRange{
			start: fragment.StartByte(),
			end:   fragment.EndByte(),
			text:  fragment.Utf8Text(source),
		}
	}

	return nil
}

// applyReplacements splices the edits into source, producing a new byte
// slice. Edits must be sorted by start position and non-overlapping.
func applyReplacements(source []byte, edits []replacement) []byte {
	result := make([]byte, 0, len(source)+8*len(edits))

	lastOffset := uint(0)
	for _, edit := range edits {
		result = append(result, source[lastOffset:edit.start]...)
		result = append(result, edit.text...)
		lastOffset = edit.end
	}

	return append(result, source[lastOffset:]...)
}
