// Package clean normalizes scraped company names and locations.
package clean

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/rules"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
	experienceRe = regexp.MustCompile(`(?i)(\d+|years|yrs|0 to \d+)`)
	rangeRe      = regexp.MustCompile(`(?i)\b\d+\s*To\s*(\d+)?\b`)
	parenRe      = regexp.MustCompile(`\(.*?\)`)
	dashTailRe   = regexp.MustCompile(`\s*-\s*.*$`)
	emptyListRe  = regexp.MustCompile(`,\s*,`)
)

// Cleaner applies a rule set to company names and locations. It is safe for
// concurrent use.
type Cleaner struct {
	junkCompany []string
	suffixes    []*regexp.Regexp
	listing     []*regexp.Regexp
}

// New compiles the word lists in r.
func New(r *rules.Rules) *Cleaner {
	c := &Cleaner{}
	for _, kw := range r.JunkCompanyKeywords {
		c.junkCompany = append(c.junkCompany, strings.ToLower(kw))
	}
	c.suffixes = wordPatterns(r.CompanySuffixes)
	// Order matters: cities run before leftover fragments so that "Navi"
	// from "Navi Mumbai" is still caught.
	c.listing = append(c.listing, wordPatterns(r.JunkKeywords)...)
	c.listing = append(c.listing, wordPatterns(r.CityPatterns)...)
	c.listing = append(c.listing, wordPatterns(r.LeftoverFragments)...)
	return c
}

// Default returns a Cleaner for the built-in rules.
func Default() *Cleaner {
	return New(rules.Default())
}

func wordPatterns(words []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		if strings.TrimSpace(w) == "" {
			continue
		}
		out = append(out, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(w)+`\b`))
	}
	return out
}

func normalize(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}

// IsJunkCompany reports whether name is empty or contains a junk keyword.
func (c *Cleaner) IsJunkCompany(name string) bool {
	if strings.TrimSpace(name) == "" {
		return true
	}
	lower := strings.ToLower(name)
	for _, kw := range c.junkCompany {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// CompanyName strips legal and generic suffixes from a scraped company name.
// Names that end up empty or junk become model.Unknown.
func (c *Cleaner) CompanyName(name string) string {
	name = normalize(name)
	if name == "" {
		return model.Unknown
	}
	for _, re := range c.suffixes {
		name = strings.TrimSpace(re.ReplaceAllString(name, ""))
	}
	if c.IsJunkCompany(name) {
		return model.Unknown
	}
	return whitespaceRe.ReplaceAllString(name, " ")
}

// CompanyFromLink recovers a company name from a job URL slug of the form
// /job-listings-<title words>-<company words>-<city>-<exp>-<id>.
func (c *Cleaner) CompanyFromLink(link string) string {
	if link == "" {
		return model.Unknown
	}
	u, err := url.Parse(link)
	if err != nil {
		return model.Unknown
	}
	parts := strings.Split(u.Path, "-")
	if len(parts) <= 3 {
		return model.Unknown
	}
	company := strings.Join(parts[2:len(parts)-3], " ")
	return c.CompanyName(titleWords(company))
}

// titleWords title-cases s and also capitalizes a letter that follows an
// apostrophe, so "o'neil" becomes "O'Neil".
func titleWords(s string) string {
	// Casers carry state, so one is built per call.
	runes := []rune(cases.Title(language.Und).String(s))
	for i := 1; i < len(runes); i++ {
		if runes[i-1] == '\'' {
			runes[i] = unicode.ToUpper(runes[i])
		}
	}
	return string(runes)
}

// StripExperience removes experience ranges ("2-5 Yrs", "0 to 3 years") that
// job boards glue onto the company line.
func StripExperience(text string) string {
	return strings.TrimSpace(experienceRe.ReplaceAllString(text, ""))
}

// ListingCompany cleans the company column of a scraped listing: the job
// title, hiring keywords, city names, experience ranges, parenthesised notes
// and anything after a dash are removed.
func (c *Cleaner) ListingCompany(raw, jobTitle string) string {
	text := normalize(raw)
	if text == "" {
		return model.Unknown
	}

	if jobTitle = strings.TrimSpace(jobTitle); jobTitle != "" {
		titleRe := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(jobTitle))
		text = titleRe.ReplaceAllString(text, "")
	}

	for _, re := range c.listing {
		text = re.ReplaceAllString(text, "")
	}

	text = rangeRe.ReplaceAllString(text, "")
	text = parenRe.ReplaceAllString(text, "")
	text = dashTailRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(multiSpaceRe.ReplaceAllString(text, " "))

	if text == "" {
		return model.Unknown
	}
	return text
}

// Location removes parenthesised notes and stray separators from a location.
func Location(raw string) string {
	text := normalize(raw)
	if text == "" {
		return model.Unknown
	}
	text = strings.TrimSpace(parenRe.ReplaceAllString(text, ""))
	text = multiSpaceRe.ReplaceAllString(text, " ")
	text = emptyListRe.ReplaceAllString(text, ",")
	if text == "" {
		return model.Unknown
	}
	return text
}
