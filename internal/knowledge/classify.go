package knowledge

import (
	"regexp"
	"sort"
	"strings"

	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/models"
)

// Categories assigned by Classify
const (
	CategoryEvents       = "events"
	CategoryTeam         = "team"
	CategoryRegistration = "registration"
	CategoryCertificates = "certificates"
	CategoryContact      = "contact"
	CategoryAbout        = "about"
	CategoryGeneral      = "general"
)

// Classification is what Classify is confident about. Empty fields mean no opinion.
type Classification struct {
	Category          string
	Importance        models.Importance
	TemporalRelevance models.TemporalRelevance
	Keywords          []string
	AcademicYear      string
}

type categoryRule struct {
	category string
	pattern  *regexp.Regexp
}

// Order matters: the first matching rule wins.
var categoryRules = []categoryRule{
	{CategoryRegistration, regexp.MustCompile(`(?i)\b(register|registration|sign[ -]?up|rsvp|enrol+|deadline)\b`)},
	{CategoryCertificates, regexp.MustCompile(`(?i)\b(certificates?|certification|certified)\b`)},
	{CategoryContact, regexp.MustCompile(`(?i)\b(contact|e-?mail|reach (us|out)|phone|instagram|linkedin)\b`)},
	{CategoryTeam, regexp.MustCompile(`(?i)\b(team|lead|organi[sz]er|core member|coordinator|mentor|president)\b`)},
	{CategoryEvents, regexp.MustCompile(`(?i)\b(events?|workshops?|hackathons?|study ?jams?|devfest|meetups?|sessions?|webinars?|bootcamps?)\b`)},
	{CategoryAbout, regexp.MustCompile(`(?i)\b(about|mission|vision|community|google developer groups?|gdg)\b`)},
}

var (
	highImportancePattern = regexp.MustCompile(`(?i)\b(deadline|last date|contact|e-?mail|lead|president|organi[sz]er)\b`)
	pastPattern           = regexp.MustCompile(`(?i)\b(completed|concluded|was held|were held|recap|took place|last year)\b`)
	futurePattern         = regexp.MustCompile(`(?i)\b(upcoming|will be held|register now|coming soon|scheduled for|next)\b`)
	currentPattern        = regexp.MustCompile(`(?i)\b(ongoing|currently|this week|now open|live now)\b`)
	academicYearPattern   = regexp.MustCompile(`\b(20\d{2})\s*[-/]\s*(\d{2}|20\d{2})\b`)
	wordPattern           = regexp.MustCompile(`[a-z][a-z0-9+#.-]{2,}`)
)

var keywordVocabulary = map[string]bool{
	"android": true, "flutter": true, "cloud": true, "firebase": true, "kotlin": true,
	"ai": true, "ml": true, "gemini": true, "web": true, "devfest": true,
	"hackathon": true, "workshop": true, "study": true, "jam": true, "certificate": true,
	"registration": true, "team": true, "lead": true, "contact": true, "event": true,
	"events": true, "speaker": true, "mentor": true, "gdg": true, "google": true,
}

// Classify derives classification fields from chunk text using keyword rules
func Classify(text string) Classification {
	var c Classification

	for _, rule := range categoryRules {
		if rule.pattern.MatchString(text) {
			c.Category = rule.category
			break
		}
	}

	switch {
	case pastPattern.MatchString(text):
		c.TemporalRelevance = models.TemporalPast
	case futurePattern.MatchString(text):
		c.TemporalRelevance = models.TemporalFuture
	case currentPattern.MatchString(text):
		c.TemporalRelevance = models.TemporalCurrent
	}

	switch {
	case highImportancePattern.MatchString(text) || c.Category == CategoryRegistration || c.Category == CategoryContact:
		c.Importance = models.ImportanceHigh
	case c.Category == CategoryEvents && c.TemporalRelevance == models.TemporalPast:
		c.Importance = models.ImportanceLow
	}

	if m := academicYearPattern.FindStringSubmatch(text); m != nil {
		c.AcademicYear = m[1] + "-" + lastTwo(m[2])
	}

	c.Keywords = extractKeywords(text)
	return c
}

func lastTwo(s string) string {
	if len(s) > 2 {
		return s[len(s)-2:]
	}
	return s
}

func extractKeywords(text string) []string {
	seen := make(map[string]bool)
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		w = strings.TrimRight(w, ".-")
		if keywordVocabulary[w] {
			seen[w] = true
		}
	}
	if len(seen) == 0 {
		return nil
	}
	keywords := make([]string, 0, len(seen))
	for w := range seen {
		keywords = append(keywords, w)
	}
	sort.Strings(keywords)
	return keywords
}

// Merge applies a classification to fields that are still unset or at their default.
// Explicit values already on the chunk always win.
func Merge(chunk *models.KnowledgeChunk, c Classification) bool {
	changed := false
	if c.Category != "" && (chunk.Category == "" || chunk.Category == models.DefaultCategory) && chunk.Category != c.Category {
		chunk.Category = c.Category
		changed = true
	}
	if c.Importance != "" && (chunk.Importance == "" || chunk.Importance == models.DefaultImportance) && chunk.Importance != c.Importance {
		chunk.Importance = c.Importance
		changed = true
	}
	if c.TemporalRelevance != "" && (chunk.TemporalRelevance == "" || chunk.TemporalRelevance == models.DefaultTemporal) && chunk.TemporalRelevance != c.TemporalRelevance {
		chunk.TemporalRelevance = c.TemporalRelevance
		changed = true
	}
	if len(chunk.Keywords) == 0 && len(c.Keywords) > 0 {
		chunk.Keywords = c.Keywords
		changed = true
	}
	if chunk.AcademicYear == "" && c.AcademicYear != "" {
		chunk.AcademicYear = c.AcademicYear
		changed = true
	}
	chunk.ApplyDefaults()
	return changed
}

// Backfill classifies a stored chunk and fills only defaulted fields.
// It reports whether anything changed.
func Backfill(chunk *models.KnowledgeChunk) bool {
	return Merge(chunk, Classify(chunk.Title+"\n"+chunk.Text))
}
