package resolver

import (
	"regexp"
	"strings"

	"github.com/gosimple/unidecode"
	"golang.org/x/text/unicode/norm"
)

var (
	slugReplacer = strings.NewReplacer(
		"&", " and ",
		"Ä", "Ae", "ä", "ae", "Ö", "Oe", "ö", "oe", "Ü", "Ue", "ü", "ue",
	)

	// decamelize splits "HD720p", "fooHD", "fooBar" and "HDVideo" into words.
	// A trailing "s" stays attached, so "APIs" is one word.
	decamelize = []struct {
		re   *regexp.Regexp
		repl string
	}{
		{regexp.MustCompile(`([A-Z]{2,})(\d+)`), "$1 $2"},
		{regexp.MustCompile(`([a-z\d]+)([A-Z]{2,})`), "$1 $2"},
		{regexp.MustCompile(`([a-z\d])([A-Z])`), "$1 $2"},
		{regexp.MustCompile(`([A-Z]+)([A-Z][a-rt-z\d]+)`), "$1 $2"},
	}

	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify turns a stream profile such as "High Quality (720p)" into
// "high-quality-720p". Non-Latin scripts are transliterated, so
// "Высокое качество" becomes "vysokoe-kachestvo". Different profiles may
// produce the same slug.
func Slugify(s string) string {
	s = slugReplacer.Replace(norm.NFC.String(s))
	s = unidecode.Unidecode(s)

	for _, d := range decamelize {
		s = d.re.ReplaceAllString(s, d.repl)
	}

	s = nonSlugChars.ReplaceAllString(strings.ToLower(s), "-")

	return strings.Trim(s, "-")
}
