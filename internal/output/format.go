// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"todosync/internal/service"
	"todosync/internal/syncer"
)

const (
	// ListSeparator is the separator line for list sections.
	ListSeparator = "------------"
)

// Sync states shown by the lists command.
const (
	StatusLocal   = "local"   // never pushed
	StatusPending = "pending" // changed or deleted since the last pass
	StatusSynced  = "synced"
)

// FormatItem formats an item line inside a list section.
// Format: "    {N:>4}  {DESCRIPTION}\n", with "[x] " before completed items.
// Items without a number (num < 1) show "-".
func FormatItem(w io.Writer, num int, item service.TaskItem) {
	desc := normalizeText(item.Description)
	if item.Completed {
		desc = "[x] " + desc
	}
	if num < 1 {
		fmt.Fprintf(w, "    %4s  %s\n", "-", desc)
		return
	}
	fmt.Fprintf(w, "    %4d  %s\n", num, desc)
}

// FormatListHeader formats a list section header. A zero letter is omitted.
func FormatListHeader(w io.Writer, letter rune, name string) {
	title := normalizeText(name)
	if letter != 0 {
		title = fmt.Sprintf("%c) %s", letter, title)
	}
	fmt.Fprintln(w, ListSeparator)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, ListSeparator)
}

// FormatListName formats a list line for the lists command.
// Format: "{NAME}  [{STATUS}]\n"
func FormatListName(w io.Writer, list service.TaskList) {
	fmt.Fprintf(w, "%s  [%s]\n", normalizeText(list.Name), SyncStatus(list))
}

// SyncStatus describes where a list stands with the remote side.
func SyncStatus(list service.TaskList) string {
	switch {
	case !list.Correlated():
		return StatusLocal
	case list.Synced():
		return StatusSynced
	default:
		return StatusPending
	}
}

// FormatReport formats the summary of a synchronization pass.
func FormatReport(w io.Writer, r syncer.Report) {
	if !r.Changed() {
		fmt.Fprintln(w, "up to date")
		return
	}
	fmt.Fprintf(w, "pulled: %d new, %d updated\n", r.PulledCreated, r.PulledUpdated)
	if r.Adopted > 0 {
		fmt.Fprintf(w, "adopted: %d\n", r.Adopted)
	}
	fmt.Fprintf(w, "pushed: %d new, %d updated\n", r.PushedCreated, r.PushedUpdated)
	fmt.Fprintf(w, "deleted: %d remote, %d local\n", r.RemoteDeleted, r.LocalDeleted)
}

// normalizeText normalizes a name or description for display.
// - Empty or whitespace-only text becomes "(untitled)"
// - Newlines are replaced with spaces
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")

	if strings.TrimSpace(s) == "" {
		return "(untitled)"
	}
	return s
}
