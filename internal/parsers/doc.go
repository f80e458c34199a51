// Package parsers turns source files into typed content blocks.
//
// Each sub-package handles a family of file extensions and implements
// driven.Parser. The Registry selects a parser by extension. Shared block
// helpers live here so the sub-packages emit blocks the same way.
package parsers
