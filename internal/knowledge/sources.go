package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/models"
)

// Document is one unit of source text handed to ingestion.
// Classification fields are optional; set values override Classify.
type Document struct {
	Title        string            `yaml:"title" json:"title"`
	Text         string            `yaml:"text" json:"text"`
	SourceKind   models.SourceKind `yaml:"sourceKind" json:"sourceKind"`
	Category     string            `yaml:"category" json:"category"`
	Importance   string            `yaml:"importance" json:"importance"`
	AcademicYear string            `yaml:"academicYear" json:"academicYear"`
	Keywords     []string          `yaml:"keywords" json:"keywords"`
	Format       string            `yaml:"format" json:"format"` // text (default), markdown or html
}

// EventRecord is a structured event entry rendered into document text
type EventRecord struct {
	Title        string `yaml:"title" json:"title"`
	Date         string `yaml:"date" json:"date"`
	Venue        string `yaml:"venue" json:"venue"`
	Status       string `yaml:"status" json:"status"`
	Description  string `yaml:"description" json:"description"`
	Registration string `yaml:"registration" json:"registration"`
	AcademicYear string `yaml:"academicYear" json:"academicYear"`
}

// TeamRecord is a structured team member entry rendered into document text
type TeamRecord struct {
	Name    string `yaml:"name" json:"name"`
	Role    string `yaml:"role" json:"role"`
	Domain  string `yaml:"domain" json:"domain"`
	Bio     string `yaml:"bio" json:"bio"`
	Contact string `yaml:"contact" json:"contact"`
}

// SourceFile is the on-disk import format
type SourceFile struct {
	Overview  string        `yaml:"overview" json:"overview"`
	Documents []Document    `yaml:"documents" json:"documents"`
	Events    []EventRecord `yaml:"events" json:"events"`
	Team      []TeamRecord  `yaml:"team" json:"team"`
}

// LoadSources reads a YAML or JSON import file, or a single Markdown or HTML page,
// and returns the documents to ingest
func LoadSources(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge sources: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	fallbackTitle := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var file SourceFile
	switch ext {
	case ".md", ".markdown":
		_, title := MarkdownToText(string(data))
		return []Document{pageDocument(string(data), title, fallbackTitle, FormatMarkdown)}, nil
	case ".html", ".htm":
		_, title, err := HTMLToText(string(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse knowledge sources %s: %w", path, err)
		}
		return []Document{pageDocument(string(data), title, fallbackTitle, FormatHTML)}, nil
	case ".json":
		err = json.Unmarshal(data, &file)
	default:
		err = yaml.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse knowledge sources %s: %w", path, err)
	}

	return file.Flatten(), nil
}

func pageDocument(body, title, fallbackTitle, format string) Document {
	if title == "" {
		title = fallbackTitle
	}
	return Document{
		Title:      title,
		Text:       body,
		SourceKind: models.SourceManual,
		Format:     format,
	}
}

// Flatten flattens the file into documents, rendering structured records and the overview
func (f *SourceFile) Flatten() []Document {
	docs := make([]Document, 0, len(f.Documents)+len(f.Events)+len(f.Team)+1)

	for _, d := range f.Documents {
		if d.SourceKind == "" {
			d.SourceKind = models.SourceManual
		}
		docs = append(docs, d)
	}
	for _, e := range f.Events {
		docs = append(docs, e.Document())
	}
	for _, m := range f.Team {
		docs = append(docs, m.Document())
	}
	if overview := f.overviewDocument(); overview != nil {
		docs = append(docs, *overview)
	}
	return docs
}

// Document renders an event record as ingestible text
func (e EventRecord) Document() Document {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is a GDG event", e.Title)
	if e.Date != "" {
		fmt.Fprintf(&b, " on %s", e.Date)
	}
	if e.Venue != "" {
		fmt.Fprintf(&b, " at %s", e.Venue)
	}
	b.WriteString(".")
	switch strings.ToLower(e.Status) {
	case "completed", "past":
		b.WriteString(" This event was held and is completed.")
	case "upcoming":
		b.WriteString(" This is an upcoming event.")
	case "ongoing":
		b.WriteString(" This event is currently ongoing.")
	}
	if e.Description != "" {
		b.WriteString(" ")
		b.WriteString(strings.TrimSpace(e.Description))
	}
	if e.Registration != "" {
		fmt.Fprintf(&b, " Registration: %s", e.Registration)
	}

	return Document{
		Title:        e.Title,
		Text:         b.String(),
		SourceKind:   models.SourceStructuredImport,
		Category:     CategoryEvents,
		AcademicYear: e.AcademicYear,
	}
}

// Document renders a team record as ingestible text
func (m TeamRecord) Document() Document {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is part of the GDG team", m.Name)
	if m.Role != "" {
		fmt.Fprintf(&b, " as %s", m.Role)
	}
	if m.Domain != "" {
		fmt.Fprintf(&b, " for the %s domain", m.Domain)
	}
	b.WriteString(".")
	if m.Bio != "" {
		b.WriteString(" ")
		b.WriteString(strings.TrimSpace(m.Bio))
	}
	if m.Contact != "" {
		fmt.Fprintf(&b, " Contact: %s", m.Contact)
	}

	return Document{
		Title:      m.Name + " - " + m.Role,
		Text:       b.String(),
		SourceKind: models.SourceStructuredImport,
		Category:   CategoryTeam,
	}
}

func (f *SourceFile) overviewDocument() *Document {
	if strings.TrimSpace(f.Overview) == "" && len(f.Events) == 0 && len(f.Team) == 0 {
		return nil
	}

	var b strings.Builder
	if f.Overview != "" {
		b.WriteString(strings.TrimSpace(f.Overview))
		b.WriteString("\n")
	}
	if len(f.Events) > 0 {
		titles := make([]string, 0, len(f.Events))
		for _, e := range f.Events {
			titles = append(titles, e.Title)
		}
		fmt.Fprintf(&b, "The community has run %d events including %s.\n", len(f.Events), strings.Join(titles, ", "))
	}
	if len(f.Team) > 0 {
		names := make([]string, 0, len(f.Team))
		for _, m := range f.Team {
			names = append(names, m.Name)
		}
		fmt.Fprintf(&b, "The team has %d members: %s.\n", len(f.Team), strings.Join(names, ", "))
	}

	return &Document{
		Title:      "Community overview",
		Text:       b.String(),
		SourceKind: models.SourceDerived,
		Category:   CategoryAbout,
	}
}
