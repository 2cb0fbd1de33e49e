package report

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// headerDecoration is what models put in front of a header line
// ("## DIAGNOSIS:", "**DIAGNOSIS:**", "> DIAGNOSIS:").
const headerDecoration = " \t#*_>\ufeff"

// maxHeaderLen bounds how long an unknown all-caps label may be and still
// count as a section header.
const maxHeaderLen = 48

// linePrefix matches decoration plus an optional enumeration ("1.", "2)")
// or bullet ("-", "•", "+") in front of a header.
const linePrefix = `^[ \t#*_>\x{FEFF}]*(?:(?:\d{1,3}[.)]|[-•+])[ \t]*[*_]*)?`

var (
	enumeration = regexp.MustCompile(`^\d{1,3}[.)]`)
	bullets     = []string{"-", "•", "+"}
)

type headerRegexps struct {
	line   *regexp.Regexp // header opening a line
	inline *regexp.Regexp // header anywhere
}

var headerPatterns sync.Map // header -> headerRegexps

// Extract returns the text following header's colon up to the next header
// line or the end of text, trimmed. A header opening a line wins over one
// inside running text; inline, the header must not continue a preceding word,
// so "CLINICAL DIAGNOSIS:" is not taken for "DIAGNOSIS". Only the first
// occurrence counts. Extract returns "" when header does not occur.
func Extract(text, header string) string {
	start := locateHeader(text, header)
	if start < 0 {
		return ""
	}
	body := text[start:]
	return strings.TrimSpace(body[:sectionEnd(body)])
}

// locateHeader returns the offset just past the header's colon, or -1.
func locateHeader(text, header string) int {
	res, ok := headerPattern(header)
	if !ok {
		return -1
	}
	if loc := res.line.FindStringIndex(text); loc != nil {
		return loc[1]
	}
	for _, loc := range res.inline.FindAllStringIndex(text, -1) {
		if !continuesWord(text[:loc[0]]) {
			return loc[1]
		}
	}
	return -1
}

// continuesWord reports whether before ends in a word that an inline header
// match would extend ("CLINICAL " + "DIAGNOSIS:").
func continuesWord(before string) bool {
	before = strings.TrimRight(before, " \t*_")
	if before == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(before)
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func headerPattern(header string) (headerRegexps, bool) {
	if v, ok := headerPatterns.Load(header); ok {
		return v.(headerRegexps), true
	}
	words := strings.Fields(header)
	if len(words) == 0 {
		return headerRegexps{}, false
	}
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	label := strings.Join(words, `[ \t]+`) + `[ \t*_]*:[*_]*`
	res := headerRegexps{
		line:   regexp.MustCompile(`(?im)` + linePrefix + label),
		inline: regexp.MustCompile(`(?i)\b` + label),
	}
	headerPatterns.Store(header, res)
	return res, true
}

// sectionEnd finds the newline that precedes the next header line in body.
// The first line of body is the remainder of the header line itself and never
// terminates the section.
func sectionEnd(body string) int {
	nl := strings.IndexByte(body, '\n')
	for nl >= 0 {
		next := nl + 1
		line := body[next:]
		rest := strings.IndexByte(line, '\n')
		if rest >= 0 {
			line = line[:rest]
		}
		if isHeaderLine(line) {
			return nl
		}
		if rest < 0 {
			break
		}
		nl = next + rest
	}
	return len(body)
}

// isHeaderLine reports whether line opens a new section: a known header in
// any case, or a short all-caps label, followed by a colon. Enumerated lines
// ("2. DIAGNOSIS:") count like plain ones; bulleted lines only for known
// headers, so "- NOTE: ..." inside a body does not cut it.
func isHeaderLine(line string) bool {
	line = strings.TrimLeft(strings.TrimRight(line, "\r"), headerDecoration)
	knownOnly := false
	if m := enumeration.FindString(line); m != "" {
		line = strings.TrimLeft(line[len(m):], headerDecoration)
	} else {
		for _, b := range bullets {
			if strings.HasPrefix(line, b) {
				line = strings.TrimLeft(line[len(b):], headerDecoration)
				knownOnly = true
				break
			}
		}
	}
	colon := strings.IndexByte(line, ':')
	if colon <= 0 {
		return false
	}
	label := strings.TrimRight(line[:colon], " \t*_")
	if label == "" || len(label) > maxHeaderLen {
		return false
	}
	if knownOnly {
		return isKnownHeader(label)
	}
	return isKnownHeader(label) || isCapsLabel(label)
}

func isCapsLabel(s string) bool {
	if len(s) < 2 {
		return false
	}
	letters := 0
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			letters++
		case unicode.IsDigit(r), r == ' ', r == '&', r == '/', r == '-', r == '(', r == ')':
		default:
			return false
		}
	}
	return letters >= 2
}

func isKnownHeader(label string) bool {
	label = strings.Join(strings.Fields(label), " ")
	for _, rule := range sectionRules {
		for _, h := range rule.headers {
			if strings.EqualFold(label, h) {
				return true
			}
		}
	}
	return false
}
