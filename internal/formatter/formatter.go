// package formatter renders program state and history as plain text, Markdown, CSV and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/onair/internal/models"
	"github.com/desertthunder/onair/internal/shared"
)

// Format names an output encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name or a common alias ("txt", "md").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
}

// FormatDuration renders seconds as H:MM:SS. Negative values render as 0:00:00.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// Elapsed returns seconds since the program's base time (vpos base, falling back to start).
// now must already be corrected onto the server clock.
func Elapsed(s models.ProgramState, now time.Time) int64 {
	base := s.VposBaseTime
	if base == 0 {
		base = s.StartTime
	}
	if base == 0 || s.Status != models.StatusOnAir {
		return 0
	}
	return max(now.Unix()-base, 0)
}

// Remaining returns seconds until the scheduled end, never negative.
func Remaining(s models.ProgramState, now time.Time) int64 {
	if s.EndTime == 0 || s.Status == models.StatusEnd {
		return 0
	}
	return max(s.EndTime-now.Unix(), 0)
}

// ProgramView is the exported shape of a program at a point in time.
type ProgramView struct {
	models.ProgramState
	Password         string `json:"password,omitempty"`
	ElapsedSeconds   int64  `json:"elapsedSeconds"`
	RemainingSeconds int64  `json:"remainingSeconds"`
	At               int64  `json:"at"`
}

// NewProgramView computes derived times. The password is left out unless withPassword is set.
func NewProgramView(s models.ProgramState, now time.Time, withPassword bool) ProgramView {
	v := ProgramView{
		ProgramState:     s,
		ElapsedSeconds:   Elapsed(s, now),
		RemainingSeconds: Remaining(s, now),
		At:               now.Unix(),
	}
	if withPassword {
		v.Password = s.Password
	}
	return v
}

func formatTime(epoch int64) string {
	if epoch == 0 {
		return "-"
	}
	return time.Unix(epoch, 0).Local().Format("2006-01-02 15:04:05")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// ProgramToText renders a program as plain text.
func ProgramToText(v ProgramView) ([]byte, error) {
	var buf bytes.Buffer

	if v.ProgramID == "" {
		buf.WriteString("No program selected\n")
		return buf.Bytes(), nil
	}

	fmt.Fprintf(&buf, "Program: %s\n", v.ProgramID)
	if v.Title != "" {
		fmt.Fprintf(&buf, "Title: %s\n", v.Title)
	}
	fmt.Fprintf(&buf, "Status: %s\n", v.Status)
	fmt.Fprintf(&buf, "Start: %s\n", formatTime(v.StartTime))
	fmt.Fprintf(&buf, "End: %s\n", formatTime(v.EndTime))
	if v.Status == models.StatusOnAir {
		fmt.Fprintf(&buf, "Elapsed: %s\n", FormatDuration(v.ElapsedSeconds))
	}
	if v.Status != models.StatusEnd {
		fmt.Fprintf(&buf, "Remaining: %s\n", FormatDuration(v.RemainingSeconds))
	}
	fmt.Fprintf(&buf, "Viewers: %d  Comments: %d\n", v.Viewers, v.Comments)
	fmt.Fprintf(&buf, "Ad points: %d  Gift points: %d\n", v.AdPoint, v.GiftPoint)
	fmt.Fprintf(&buf, "Member only: %s\n", yesNo(v.IsMemberOnly))
	fmt.Fprintf(&buf, "Auto extension: %s\n", yesNo(v.AutoExtensionEnabled))
	if v.Password != "" {
		fmt.Fprintf(&buf, "Password: %s\n", v.Password)
	}
	if v.ViewURI != "" {
		fmt.Fprintf(&buf, "Watch: %s\n", v.ViewURI)
	}

	return buf.Bytes(), nil
}

// ProgramToMarkdown renders a program as a Markdown section with a statistics table.
func ProgramToMarkdown(v ProgramView) ([]byte, error) {
	var buf bytes.Buffer

	if v.ProgramID == "" {
		buf.WriteString("_No program selected_\n")
		return buf.Bytes(), nil
	}

	title := v.Title
	if title == "" {
		title = v.ProgramID
	}
	fmt.Fprintf(&buf, "# %s\n\n", title)

	if v.Description != "" {
		fmt.Fprintf(&buf, "%s\n\n", v.Description)
	}

	fmt.Fprintf(&buf, "**Program**: %s\n", v.ProgramID)
	fmt.Fprintf(&buf, "**Status**: %s\n", v.Status)
	fmt.Fprintf(&buf, "**Schedule**: %s - %s\n", formatTime(v.StartTime), formatTime(v.EndTime))
	if v.ViewURI != "" {
		fmt.Fprintf(&buf, "**Watch**: [%s](%s)\n", v.ViewURI, v.ViewURI)
	}
	buf.WriteString("\n## Statistics\n\n")
	buf.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&buf, "| Viewers | %d |\n", v.Viewers)
	fmt.Fprintf(&buf, "| Comments | %d |\n", v.Comments)
	fmt.Fprintf(&buf, "| Ad points | %d |\n", v.AdPoint)
	fmt.Fprintf(&buf, "| Gift points | %d |\n", v.GiftPoint)
	fmt.Fprintf(&buf, "| Elapsed | %s |\n", FormatDuration(v.ElapsedSeconds))
	fmt.Fprintf(&buf, "| Remaining | %s |\n", FormatDuration(v.RemainingSeconds))

	return buf.Bytes(), nil
}

// ProgramToCSV renders a program as a single header row plus one record.
func ProgramToCSV(v ProgramView) ([]byte, error) {
	headers := []string{"ProgramID", "Title", "Status", "StartTime", "EndTime", "Viewers", "Comments", "AdPoint", "GiftPoint", "Elapsed", "Remaining"}
	record := []string{
		v.ProgramID,
		v.Title,
		string(v.Status),
		strconv.FormatInt(v.StartTime, 10),
		strconv.FormatInt(v.EndTime, 10),
		strconv.Itoa(v.Viewers),
		strconv.Itoa(v.Comments),
		strconv.Itoa(v.AdPoint),
		strconv.Itoa(v.GiftPoint),
		strconv.FormatInt(v.ElapsedSeconds, 10),
		strconv.FormatInt(v.RemainingSeconds, 10),
	}
	return writeCSV(headers, [][]string{record})
}

// ProgramToJSON renders a program as indented JSON.
func ProgramToJSON(v ProgramView) ([]byte, error) {
	return shared.MarshalJSON(v)
}

// RenderProgram dispatches on format.
func RenderProgram(v ProgramView, format Format) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return ProgramToMarkdown(v)
	case FormatCSV:
		return ProgramToCSV(v)
	case FormatJSON:
		return ProgramToJSON(v)
	default:
		return ProgramToText(v)
	}
}

// HistoryToText renders history entries, one per line.
func HistoryToText(entries []*models.HistoryEntry) ([]byte, error) {
	var buf bytes.Buffer

	if len(entries) == 0 {
		buf.WriteString("No history\n")
		return buf.Bytes(), nil
	}

	for _, e := range entries {
		result := "ok"
		if !e.Succeeded() {
			result = "failed: " + e.Error
		}
		fmt.Fprintf(&buf, "%s  %-14s %-12s end=%s  %s\n",
			e.CreatedAt().Local().Format("2006-01-02 15:04:05"), e.Action, e.ProgramID, formatTime(e.EndTime), result)
	}

	return buf.Bytes(), nil
}

// HistoryToCSV renders history entries with columns: ID, ProgramID, Action, Status, EndTime, Error, CreatedAt
func HistoryToCSV(entries []*models.HistoryEntry) ([]byte, error) {
	headers := []string{"ID", "ProgramID", "Action", "Status", "EndTime", "Error", "CreatedAt"}
	records := make([][]string, 0, len(entries))
	for _, e := range entries {
		records = append(records, []string{
			e.ID(),
			e.ProgramID,
			string(e.Action),
			string(e.Status),
			strconv.FormatInt(e.EndTime, 10),
			e.Error,
			e.CreatedAt().UTC().Format(time.RFC3339),
		})
	}
	return writeCSV(headers, records)
}

// RenderHistory dispatches on format. Markdown falls back to text.
func RenderHistory(entries []*models.HistoryEntry, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return HistoryToCSV(entries)
	case FormatJSON:
		type row struct {
			ID        string        `json:"id"`
			ProgramID string        `json:"programId"`
			Action    models.Action `json:"action"`
			Status    models.Status `json:"status"`
			EndTime   int64         `json:"endTime"`
			Error     string        `json:"error,omitempty"`
			CreatedAt time.Time     `json:"createdAt"`
		}
		rows := make([]row, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, row{e.ID(), e.ProgramID, e.Action, e.Status, e.EndTime, e.Error, e.CreatedAt()})
		}
		return shared.MarshalJSON(rows)
	default:
		return HistoryToText(entries)
	}
}

func writeCSV(headers []string, records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteExport writes rendered output to path.
//
// Defaults to {programID}.{ext} when path is empty.
func WriteExport(data []byte, programID string, format Format, path string) (string, error) {
	if path == "" {
		if programID == "" {
			programID = "program"
		}
		path = fmt.Sprintf("%s.%s", programID, extension(format))
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

func extension(f Format) string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatCSV:
		return "csv"
	case FormatJSON:
		return "json"
	default:
		return "txt"
	}
}
