// Package ui renders the CLI's human-readable output.
//
// [Palette] wraps a handful of [lipgloss.Style] values; the format functions in this package use [Styles]
// to render sync summaries and ranked track lists. lipgloss drops colors automatically when the output is not a terminal.
package ui
