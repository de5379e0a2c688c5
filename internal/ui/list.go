package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/onair/internal/models"
)

var _ list.Item = historyItem{}

// historyItem wraps [models.HistoryEntry] to implement [list.Item].
type historyItem struct {
	entry *models.HistoryEntry
}

func (i historyItem) FilterValue() string { return i.entry.ProgramID }
func (i historyItem) Title() string {
	return fmt.Sprintf("%s %s", i.entry.Action, i.entry.ProgramID)
}
func (i historyItem) Description() string {
	desc := i.entry.CreatedAt().Local().Format("15:04:05")
	if i.entry.EndTime != 0 {
		desc = fmt.Sprintf("%s • ends %s", desc, time.Unix(i.entry.EndTime, 0).Local().Format("15:04"))
	}
	if !i.entry.Succeeded() {
		desc = fmt.Sprintf("%s • %s", desc, i.entry.Error)
	}
	return desc
}

func historyItems(entries []*models.HistoryEntry) []list.Item {
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = historyItem{entry: e}
	}
	return items
}
