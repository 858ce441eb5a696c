// Package match scores a resume against a job description using stemmed
// keyword overlap plus a couple of structural heuristics.
package match

import (
	"regexp"
	"strings"

	"github.com/kljensen/snowball"
)

// Score weights. Keyword coverage dominates; the structural checks reward
// resumes that an applicant tracking system can actually parse.
const (
	coverageWeight = 70.0
	sectionWeight  = 15.0
	contactWeight  = 15.0
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?\d[\d \-().]{7,}\d`)
)

// sectionHeadings are the standard resume sections recruiters and ATS
// software expect to find.
var sectionHeadings = []string{"experience", "education", "skills"}

// Result is the outcome of matching one resume against a job description.
type Result struct {
	// Score is bounded to [0,100].
	Score int `json:"score"`
	// Coverage is the fraction of job keywords found in the resume.
	Coverage float64 `json:"coverage"`
	// Matched and Missing hold job-description keywords in their original
	// surface form, in first-seen order.
	Matched []string `json:"matched"`
	Missing []string `json:"missing"`
}

// Matcher matches resume text against the keyword set of one job description.
type Matcher struct {
	// stem -> surface form, plus ordered surface list for stable output.
	stems    map[string]string
	keywords []string
}

// Keywords tokenizes a job description into deduplicated, stopword-free
// keywords in their original order. Deduplication is by stem, so "engineers"
// and "engineering" collapse into one keyword.
func Keywords(jobDescription string) []string {
	m := NewMatcher(jobDescription)
	return m.keywords
}

// NewMatcher builds a Matcher from a job description. Keywords keep the
// casing they had in the job description ("PostgreSQL" stays "PostgreSQL");
// stopword filtering and stemming are case-insensitive.
func NewMatcher(jobDescription string) *Matcher {
	m := &Matcher{stems: make(map[string]string)}
	for _, tok := range tokenize(jobDescription) {
		lower := strings.ToLower(tok)
		if stopwords[lower] || len(lower) < 2 {
			continue
		}
		s := stem(lower)
		if _, seen := m.stems[s]; seen {
			continue
		}
		m.stems[s] = tok
		m.keywords = append(m.keywords, tok)
	}
	return m
}

// Match scores resume text against the job keywords. An empty resume or a
// job description with no usable keywords scores zero.
func (m *Matcher) Match(resumeText string) Result {
	res := Result{Matched: []string{}, Missing: []string{}}
	if strings.TrimSpace(resumeText) == "" || len(m.keywords) == 0 {
		res.Missing = append(res.Missing, m.keywords...)
		return res
	}

	found := make(map[string]bool)
	for _, tok := range tokenize(resumeText) {
		s := stem(strings.ToLower(tok))
		if _, ok := m.stems[s]; ok {
			found[s] = true
		}
	}

	for _, kw := range m.keywords {
		if found[stem(strings.ToLower(kw))] {
			res.Matched = append(res.Matched, kw)
		} else {
			res.Missing = append(res.Missing, kw)
		}
	}
	res.Coverage = float64(len(res.Matched)) / float64(len(m.keywords))

	lower := strings.ToLower(resumeText)
	sections := 0
	for _, h := range sectionHeadings {
		if strings.Contains(lower, h) {
			sections++
		}
	}
	contact := 0
	if emailRe.MatchString(resumeText) {
		contact++
	}
	if phoneRe.MatchString(resumeText) {
		contact++
	}

	score := coverageWeight*res.Coverage +
		sectionWeight*float64(sections)/float64(len(sectionHeadings)) +
		contactWeight*float64(contact)/2
	res.Score = Clamp(int(score + 0.5))
	return res
}

// Clamp bounds a score to [0,100].
func Clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Email returns the first email address found in the text, if any.
func Email(text string) string {
	return emailRe.FindString(text)
}

// tokenize splits text on whitespace and strips surrounding punctuation,
// keeping the original casing of each token.
func tokenize(text string) []string {
	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?()[]{}\"'`•·|/\\-–—")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func stem(word string) string {
	s, err := snowball.Stem(word, "english", false)
	if err != nil {
		return word
	}
	return s
}
