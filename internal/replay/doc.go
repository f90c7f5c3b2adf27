// Package replay applies YAML edit scripts to a piece table of grapheme
// clusters.
//
// A script names the initial text, a list of operations and, optionally,
// the text expected at the end:
//
//	initial: "hello world"
//	ops:
//	  - {op: insert_slice, index: 6, value: "big "}
//	  - {op: remove, index: 0}
//	  - {op: remove_range, index: 0, end: 4}
//	expect: "big world"
//
// Text is normalized to NFC and split into grapheme clusters, so indexes
// count user-perceived characters. "é" written with a combining accent is
// one element, as is a flag emoji. After each operation the clusters next
// to the edit are segmented again, so a combining mark inserted after "e"
// merges into a single "é" element.
//
// With verification enabled the Runner mirrors every operation on a plain
// slice and stops at the first operation whose result differs.
package replay
