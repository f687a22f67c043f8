package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/leeovery/studyplan/internal/backup"
	"github.com/leeovery/studyplan/internal/cache"
	"github.com/leeovery/studyplan/internal/csvio"
	"github.com/leeovery/studyplan/internal/task"
)

// PrettyFormatter implements the Formatter interface for human-readable
// terminal output: aligned columns, a bold header and status colors. Styles
// degrade to plain text when the writer is not a terminal.
type PrettyFormatter struct {
	header lipgloss.Style
	done   lipgloss.Style
	active lipgloss.Style
	faint  lipgloss.Style
}

// NewPrettyFormatter creates a PrettyFormatter whose styles are rendered for w.
func NewPrettyFormatter(w io.Writer) *PrettyFormatter {
	r := lipgloss.NewRenderer(w)
	return &PrettyFormatter{
		header: r.NewStyle().Bold(true),
		done:   r.NewStyle().Foreground(lipgloss.Color("42")),
		active: r.NewStyle().Foreground(lipgloss.Color("214")),
		faint:  r.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// maxTitleWidth is the maximum title length in list output before truncation.
const maxTitleWidth = 50

// FormatTaskList renders tasks as an aligned column table with a header row.
// Empty lists produce "No tasks found." with no headers.
func (f *PrettyFormatter) FormatTaskList(w io.Writer, tasks []task.Task) error {
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "No tasks found.")
		return err
	}

	headers := []string{"ID", "DUE", "STATUS", "SUBJECT", "TITLE"}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	rows := make([][]string, len(tasks))
	for i, t := range tasks {
		rows[i] = []string{t.ID, t.DueDate, string(t.Status), t.Subject, truncateTitle(t.Title, maxTitleWidth)}
		for j, cell := range rows[i] {
			widths[j] = max(widths[j], lipgloss.Width(cell))
		}
	}

	if _, err := fmt.Fprintln(w, f.header.Render(padRow(headers, widths))); err != nil {
		return err
	}
	for i, row := range rows {
		line := padRow(row, widths)
		if _, err := fmt.Fprintln(w, f.statusStyle(tasks[i].Status).Render(line)); err != nil {
			return err
		}
	}
	return nil
}

// FormatTaskDetail renders a task as key-value pairs with aligned labels.
func (f *PrettyFormatter) FormatTaskDetail(w io.Writer, t task.Task) error {
	fmt.Fprintf(w, "%-10s%s\n", "ID:", t.ID)
	fmt.Fprintf(w, "%-10s%s\n", "Title:", t.Title)
	fmt.Fprintf(w, "%-10s%s\n", "Subject:", t.Subject)
	fmt.Fprintf(w, "%-10s%s\n", "Due:", t.DueDate)
	_, err := fmt.Fprintf(w, "%-10s%s\n", "Status:", f.statusStyle(t.Status).Render(string(t.Status)))
	return err
}

// FormatTransition renders a status toggle as plain text.
func (f *PrettyFormatter) FormatTransition(w io.Writer, id string, from, to task.Status) error {
	_, err := fmt.Fprintf(w, "%s: %s → %s\n", id, from, f.statusStyle(to).Render(string(to)))
	return err
}

// FormatImport renders import counts, one per line.
func (f *PrettyFormatter) FormatImport(w io.Writer, res csvio.ImportResult) error {
	nums := []int{res.Added, res.DuplicateSkipped, res.Invalid}
	lineFmt := fmt.Sprintf("%%-20s%%%dd\n", numWidth(nums))
	fmt.Fprintf(w, lineFmt, "Added:", res.Added)
	fmt.Fprintf(w, lineFmt, "Duplicates skipped:", res.DuplicateSkipped)
	_, err := fmt.Fprintf(w, lineFmt, "Invalid rows:", res.Invalid)
	return err
}

// FormatBackups renders the backup listing, newest first.
func (f *PrettyFormatter) FormatBackups(w io.Writer, infos []backup.Info) error {
	if len(infos) == 0 {
		_, err := fmt.Fprintln(w, "No backups found.")
		return err
	}
	for _, info := range infos {
		created := f.faint.Render(info.Created.Local().Format("2006-01-02 15:04:05"))
		if _, err := fmt.Fprintf(w, "%s  %s  %d bytes\n", info.Name, created, info.Size); err != nil {
			return err
		}
	}
	return nil
}

// FormatStats renders the summary counts, then the per-subject breakdown.
// Numbers are right-aligned.
func (f *PrettyFormatter) FormatStats(w io.Writer, s cache.Stats) error {
	const labelW = 13
	numW := numWidth([]int{s.Total, s.ToDo, s.InProgress, s.Done, s.Overdue})
	summaryFmt := fmt.Sprintf("%%-%ds%%%dd\n", labelW, numW)
	indentFmt := fmt.Sprintf("  %%-%ds%%%dd\n", labelW, numW)

	fmt.Fprintf(w, summaryFmt, "Total:", s.Total)

	fmt.Fprintln(w)
	fmt.Fprintln(w, f.header.Render("Status:"))
	fmt.Fprintf(w, indentFmt, "To Do:", s.ToDo)
	fmt.Fprintf(w, indentFmt, "In progress:", s.InProgress)
	fmt.Fprintf(w, indentFmt, "Done:", s.Done)
	fmt.Fprintf(w, indentFmt, "Overdue:", s.Overdue)

	if len(s.BySubject) == 0 {
		return nil
	}

	subjectW := 0
	var nums []int
	for _, sc := range s.BySubject {
		subjectW = max(subjectW, lipgloss.Width(sc.Subject)+1)
		nums = append(nums, sc.Total, sc.Done)
	}
	n := numWidth(nums)
	subjectFmt := fmt.Sprintf("  %%-%ds%%%dd  (%%%dd done)\n", subjectW+1, n, n)

	fmt.Fprintln(w)
	fmt.Fprintln(w, f.header.Render("Subjects:"))
	for _, sc := range s.BySubject {
		fmt.Fprintf(w, subjectFmt, sc.Subject+":", sc.Total, sc.Done)
	}
	return nil
}

// FormatMessage writes the message followed by a newline.
func (f *PrettyFormatter) FormatMessage(w io.Writer, msg string) error {
	_, err := fmt.Fprintln(w, msg)
	return err
}

func (f *PrettyFormatter) statusStyle(s task.Status) lipgloss.Style {
	switch s {
	case task.StatusDone:
		return f.done
	case task.StatusInProgress:
		return f.active
	default:
		return lipgloss.NewStyle()
	}
}

// padRow left-aligns cells to widths, separated by two spaces. The last cell
// is not padded.
func padRow(cells []string, widths []int) string {
	var sb strings.Builder
	for i, c := range cells {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(c)
		if i < len(cells)-1 {
			sb.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(c)))
		}
	}
	return sb.String()
}

// numWidth returns the width needed to display the widest number in the slice.
// Returns at least 3 to ensure consistent spacing with right-aligned numbers.
func numWidth(nums []int) int {
	w := 3
	for _, n := range nums {
		if s := strconv.Itoa(n); len(s) > w {
			w = len(s)
		}
	}
	return w
}

// truncateTitle truncates a title to maxWidth runes, appending "..." if it
// exceeds the limit.
func truncateTitle(title string, maxWidth int) string {
	r := []rune(title)
	if len(r) <= maxWidth {
		return title
	}
	if maxWidth <= 3 {
		return strings.Repeat(".", maxWidth)
	}
	return string(r[:maxWidth-3]) + "..."
}
