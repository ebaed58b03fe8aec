package queries

// Specifiers contains tree-sitter query patterns for module specifier
// extraction.
//
// The patterns capture the string fragment (the text between the quotes)
// of every import-like specifier position that carries a module path:
// static imports, re-exports (export ... from), and the first argument of
// dynamic import() calls.
//
// Type-level `import("...")` references are not matched here; the grammar
// does not expose them through a field the query language can anchor on
// across versions, so the rewriter finds them with a structural walk.
//
// Captures:
//   - @specifier.static  - static import source
//   - @specifier.reexport - export-from source
//   - @specifier.dynamic - dynamic import() first argument
const Specifiers = `
; Static import: import x from './a'; import './side-effect';
(import_statement
  source: (string (string_fragment) @specifier.static)
)

; Re-export: export { x } from './a'; export * from './a';
(export_statement
  source: (string (string_fragment) @specifier.reexport)
)

; Dynamic import: import('./a') - only the first argument is a specifier
(call_expression
  function: (import)
  arguments: (arguments . (string (string_fragment) @specifier.dynamic))
)
`
