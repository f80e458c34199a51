// Package html parses HTML pages into heading, text, table and image
// blocks. Pages whose structure yields no text fall back to readability
// extraction, then to plain tag stripping.
package html
