package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/verustcode/codesync/internal/config"
	"github.com/verustcode/codesync/internal/model"
)

// ErrNoCode is returned when the project has nothing to analyze
var ErrNoCode = errors.New("project has no code")

// maxListed caps the entry names printed in a summary
const maxListed = 10

// Summary describes the size and shape of a project's code. Provider file
// listings (JSON arrays of {name, type}) are broken down by entry type.
type Summary struct {
	lang language.Tag
}

// NewSummary creates a summary analyzer printing numbers for lang
func NewSummary(lang language.Tag) *Summary {
	return &Summary{lang: lang}
}

func (s *Summary) Name() string { return config.AnalyzerSummary }

type listingEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
}

// Analyze returns a plain-text summary of project.Code
func (s *Summary) Analyze(ctx context.Context, project *model.Project) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	code := project.Code
	if strings.TrimSpace(code) == "" {
		return "", ErrNoCode
	}

	p := message.NewPrinter(s.lang)
	var b strings.Builder

	p.Fprintf(&b, "Project: %s\n", project.Name)
	if project.GitRepositoryURL != "" {
		p.Fprintf(&b, "Repository: %s\n", project.GitRepositoryURL)
	}
	if project.Branch != "" {
		p.Fprintf(&b, "Branch: %s\n", project.Branch)
	}
	p.Fprintf(&b, "Size: %d bytes\n", len(code))
	p.Fprintf(&b, "Lines: %d\n", strings.Count(code, "\n")+1)

	var entries []listingEntry
	if err := json.Unmarshal([]byte(code), &entries); err == nil && len(entries) > 0 {
		writeListing(p, &b, entries)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func writeListing(p *message.Printer, b *strings.Builder, entries []listingEntry) {
	byType := make(map[string]int)
	for _, e := range entries {
		t := e.Type
		if t == "" {
			t = "unknown"
		}
		byType[t]++
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	p.Fprintf(b, "Entries: %d\n", len(entries))
	for _, t := range types {
		p.Fprintf(b, "  %s: %d\n", t, byType[t])
	}

	names := make([]string, 0, maxListed)
	for _, e := range entries {
		if len(names) == maxListed {
			break
		}
		name := e.Path
		if name == "" {
			name = e.Name
		}
		if name != "" {
			names = append(names, name)
		}
	}
	if len(names) > 0 {
		p.Fprintf(b, "Top entries: %s\n", strings.Join(names, ", "))
	}
}
