// Package report renders link trees for people and tools.
//
// Writers:
//   - TableWriter: colorized terminal table, one row per node in pre-order
//   - JSONWriter: nested {"linktree": node} document, readable by ReadJSON
//   - MarkdownWriter: summary, node table and category breakdown
//
// All writers implement Writer.
// Colors come from an explicit Palette; nothing here reads global state.
package report
