package check

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
)

// Status is the outcome of one report line
type Status int

const (
	StatusOK Status = iota
	StatusCreated
	StatusWarning
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusCreated:
		return "created"
	case StatusWarning:
		return "warning"
	default:
		return "failed"
	}
}

func (s Status) symbol() string {
	switch s {
	case StatusOK, StatusCreated:
		return "✓"
	case StatusWarning:
		return "⚠"
	default:
		return "✗"
	}
}

// Item is one line of the check report
type Item struct {
	Section string
	Subject string
	Status  Status
	Detail  string
}

// Report accumulates the lines produced by a check run
type Report struct {
	items []Item
}

// NewReport creates an empty report
func NewReport() *Report {
	return &Report{}
}

// Add appends one line
func (r *Report) Add(item Item) {
	r.items = append(r.items, item)
}

// Items returns the lines in the order they were added
func (r *Report) Items() []Item {
	return r.items
}

// addFile records the config file check
func (r *Report) addFile(res FileCheckResult) []Item {
	item := Item{Section: "file", Subject: res.Path}
	switch {
	case res.Error != nil:
		item.Status, item.Detail = StatusFailed, res.Error.Error()
	case res.Created:
		item.Status, item.Detail = StatusCreated, "written from template"
	case res.Exists:
		item.Status = StatusOK
	default:
		item.Status, item.Detail = StatusWarning, "does not exist"
	}
	r.Add(item)
	return []Item{item}
}

// addValidation records a validation outcome followed by one line per
// warning it carried
func (r *Report) addValidation(section string, res ValidationResult) []Item {
	head := Item{Section: section, Subject: res.Path}
	switch {
	case res.Valid:
		head.Status = StatusOK
	case res.Error != nil:
		head.Status, head.Detail = StatusFailed, res.Error.Error()
	default:
		head.Status, head.Detail = StatusWarning, "not validated"
	}
	added := []Item{head}
	for _, w := range res.Warnings {
		added = append(added, Item{Section: section, Subject: res.Path, Status: StatusWarning, Detail: w})
	}
	for _, it := range added {
		r.Add(it)
	}
	return added
}

// ReportSummary counts report lines by status
type ReportSummary struct {
	OK       int
	Created  int
	Warnings int
	Failed   int
}

// Summary tallies the report
func (r *Report) Summary() ReportSummary {
	var s ReportSummary
	for _, it := range r.items {
		switch it.Status {
		case StatusOK:
			s.OK++
		case StatusCreated:
			s.Created++
		case StatusWarning:
			s.Warnings++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// summaryDetails lists the non-zero counters worth calling out
func summaryDetails(s ReportSummary) []string {
	var details []string
	if s.Created > 0 {
		details = append(details, fmt.Sprintf("%d created", s.Created))
	}
	if s.Failed > 0 {
		details = append(details, fmt.Sprintf("%d failed", s.Failed))
	}
	if s.Warnings > 0 {
		details = append(details, fmt.Sprintf("%d warning(s)", s.Warnings))
	}
	return details
}

var (
	statusColors = map[Status]lipgloss.Color{
		StatusOK:      lipgloss.Color("10"),
		StatusCreated: lipgloss.Color("10"),
		StatusWarning: lipgloss.Color("11"),
		StatusFailed:  lipgloss.Color("9"),
	}
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// Table renders the report as a bordered table
func (r *Report) Table() string {
	rows := make([][]string, 0, len(r.items))
	for _, it := range r.items {
		rows = append(rows, []string{it.Status.symbol() + " " + it.Status.String(), it.Section, it.Subject, it.Detail})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("STATUS", "CHECK", "SUBJECT", "DETAIL").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 0 && row >= 0 && row < len(r.items) {
				return cellStyle.Foreground(statusColors[r.items[row].Status])
			}
			return cellStyle
		}).
		String()
}

// Print writes the table and a one-line verdict
func (r *Report) Print() {
	fmt.Println(r.Table())

	s := r.Summary()
	verdict := color.New(color.FgGreen, color.Bold)
	mark := "✓"
	switch {
	case s.Failed > 0:
		verdict, mark = color.New(color.FgRed, color.Bold), "✗"
	case s.Warnings > 0:
		verdict, mark = color.New(color.FgYellow, color.Bold), "⚠"
	}
	verdict.Print(mark + " Check completed")

	if details := summaryDetails(s); len(details) > 0 {
		fmt.Printf(" (%s)\n", strings.Join(details, ", "))
	} else {
		fmt.Println(", all checks passed")
	}
}

// printItems echoes freshly recorded lines under the running section
func printItems(items []Item) {
	for _, it := range items {
		c := color.New(color.FgGreen)
		switch it.Status {
		case StatusWarning:
			c = color.New(color.FgYellow)
		case StatusFailed:
			c = color.New(color.FgRed)
		}
		if it.Detail == "" {
			c.Printf("  %s %s\n", it.Status.symbol(), it.Subject)
		} else {
			c.Printf("  %s %s: %s\n", it.Status.symbol(), it.Subject, it.Detail)
		}
	}
}
