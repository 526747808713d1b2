package taskoutput

import (
	"regexp"
	"strings"
)

// DefaultCitationTitle is used for citations that carry a url but no title.
const DefaultCitationTitle = "Source"

var (
	contentMarker = regexp.MustCompile(`\bcontent\s*=\s*(['"])`)

	// A quote closing the content value is followed by another keyword
	// argument, or by closing parens at the end of the input.
	trailingField = regexp.MustCompile(`^\s*,\s*[A-Za-z_]\w*\s*=`)
	closingTail   = regexp.MustCompile(`^\s*\)*\s*$`)

	// Attribute (url='x') and mapping ('url': 'x') forms, either quote style.
	urlPattern   = regexp.MustCompile(`(?:\burl\s*=\s*|['"]url['"]\s*:\s*)(?:'((?:[^'\\]|\\.)*)'|"((?:[^"\\]|\\.)*)")`)
	titlePattern = regexp.MustCompile(`(?:\btitle\s*=\s*|['"]title['"]\s*:\s*)(?:'((?:[^'\\]|\\.)*)'|"((?:[^"\\]|\\.)*)")`)
)

// Citation is a (url, title) pair found in composite text.
type Citation struct {
	URL   string
	Title string
}

// Composite is the result of scanning a stringified composite object.
type Composite struct {
	// Content is the unescaped content value, or the raw text when no
	// content marker was found.
	Content string

	// Citations are the url/title pairs found outside the content value.
	Citations []Citation

	// Found reports whether a content marker was located.
	Found bool
}

// LooksComposite reports whether text carries a content marker.
func LooksComposite(text string) bool {
	return contentMarker.MatchString(text)
}

// ParseComposite extracts the content value and citations from the string
// form of a composite object. It never fails: without a content marker the
// text is returned unmodified as Content.
func ParseComposite(text string) Composite {
	result := Composite{Content: text}

	spanStart, spanEnd := -1, -1
	if m := contentMarker.FindStringSubmatchIndex(text); m != nil {
		quote := text[m[2]]
		start := m[1]
		end := contentEnd(text[start:], quote)

		result.Content = unescape(text[start : start+end])
		result.Found = true
		spanStart, spanEnd = start, start+end
	}

	result.Citations = citations(text, spanStart, spanEnd)
	return result
}

// contentEnd returns the length of the quoted value at the start of rest.
// The value ends at the first unescaped quote followed by another field or
// by the closing parens of the object. Failing that, it ends at the last
// unescaped quote, and failing that, at the end of input.
func contentEnd(rest string, quote byte) int {
	last := -1
	for i := 0; i < len(rest); i++ {
		if rest[i] != quote || escaped(rest, i) {
			continue
		}
		after := rest[i+1:]
		if trailingField.MatchString(after) || closingTail.MatchString(after) {
			return i
		}
		last = i
	}
	if last >= 0 {
		return last
	}
	return len(rest)
}

// escaped reports whether the byte at i is preceded by an odd number of backslashes.
func escaped(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

// unescape resolves the escape sequences of a quoted repr value.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch next := s[i]; next {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\', '\'', '"':
			b.WriteByte(next)
		default:
			b.WriteByte('\\')
			b.WriteByte(next)
		}
	}
	return b.String()
}

// citations pairs every url outside the content span with the title found
// in the same enclosing object.
func citations(text string, spanStart, spanEnd int) []Citation {
	inContent := func(pos int) bool {
		return spanStart >= 0 && pos >= spanStart && pos < spanEnd
	}

	urls := urlPattern.FindAllStringSubmatchIndex(text, -1)
	if len(urls) == 0 {
		return nil
	}
	titles := titlePattern.FindAllStringSubmatchIndex(text, -1)
	groups := bracketGroups(text)

	var out []Citation
	for _, u := range urls {
		if inContent(u[0]) {
			continue
		}
		url := strings.TrimSpace(unescape(captured(text, u)))
		if url == "" {
			continue
		}

		lo, hi := enclosing(groups, u[0], len(text))
		title := ""
		for _, t := range titles {
			if t[0] < lo || t[1] > hi || inContent(t[0]) {
				continue
			}
			title = strings.TrimSpace(unescape(captured(text, t)))
			break
		}
		if title == "" {
			title = DefaultCitationTitle
		}
		out = append(out, Citation{URL: url, Title: title})
	}
	return out
}

// captured returns whichever quote-style alternative matched.
func captured(text string, m []int) string {
	if m[2] >= 0 {
		return text[m[2]:m[3]]
	}
	if m[4] >= 0 {
		return text[m[4]:m[5]]
	}
	return ""
}

type span struct{ start, end int }

// bracketGroups returns the spans of every (), {} and [] group outside
// quoted strings. Groups left open by truncated input run to the end.
func bracketGroups(text string) []span {
	var (
		groups []span
		stack  []int
		quote  byte
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			if c == quote && !escaped(text, i) {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '{', '[':
			stack = append(stack, i)
		case ')', '}', ']':
			if n := len(stack); n > 0 {
				groups = append(groups, span{stack[n-1], i + 1})
				stack = stack[:n-1]
			}
		}
	}
	for _, open := range stack {
		groups = append(groups, span{open, len(text)})
	}
	return groups
}

// enclosing returns the smallest group containing pos, so a citation
// never borrows a sibling's title.
func enclosing(groups []span, pos, n int) (int, int) {
	lo, hi := 0, n
	for _, g := range groups {
		if g.start < pos && pos < g.end && g.end-g.start < hi-lo {
			lo, hi = g.start, g.end
		}
	}
	return lo, hi
}
