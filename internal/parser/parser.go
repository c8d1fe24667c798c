// Package parser turns pasted or exported vocabulary lists into
// term/definition pairs.
package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxTermLength       = 200
	MaxDefinitionLength = 500
)

// ErrNoPairs is returned by ParseDelimited when no entry could be split.
var ErrNoPairs = errors.New("no valid term/definition pairs found")

// Pair is one parsed vocabulary entry.
type Pair struct {
	Term       string `validate:"required,max=200"`
	Definition string `validate:"required,max=500"`
}

// Options controls ParseDelimited. Escapes \t, \n and \r are interpreted in
// both fields. An empty CardSeparator splits on runs of newlines.
type Options struct {
	TermDelimiter string
	CardSeparator string
}

// Named delimiters accepted by ResolveDelimiter and ResolveSeparator.
var (
	delimiterNames = map[string]string{"tab": "\t", "comma": ","}
	separatorNames = map[string]string{"newline": "", "semicolon": ";"}
)

// ResolveDelimiter maps "tab" and "comma" to their characters and interprets
// escapes in anything else.
func ResolveDelimiter(name string) string {
	if d, ok := delimiterNames[name]; ok {
		return d
	}
	return unescape(name)
}

// ResolveSeparator maps "newline" and "semicolon" and interprets escapes in
// anything else. "newline" resolves to the empty string.
func ResolveSeparator(name string) string {
	if s, ok := separatorNames[name]; ok {
		return s
	}
	return unescape(name)
}

func unescape(s string) string {
	return strings.NewReplacer(`\t`, "\t", `\n`, "\n", `\r`, "\r").Replace(s)
}

// Result is the outcome of ParseDelimited. Invalid holds the 1-based
// positions of non-empty entries that were skipped.
type Result struct {
	Pairs   []Pair
	Invalid []int
}

// ParseDelimited splits the input into entries on opts.CardSeparator and
// each entry into a term and definition at the first opts.TermDelimiter.
func ParseDelimited(r io.Reader, opts Options) (Result, error) {
	if opts.TermDelimiter == "" {
		return Result{}, errors.New("term delimiter is empty")
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return Result{}, err
	}
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")

	var entries []string
	if opts.CardSeparator == "" || opts.CardSeparator == "\n" {
		entries = splitLines(text)
	} else {
		entries = strings.Split(text, opts.CardSeparator)
	}

	res := Result{Pairs: []Pair{}}
	for i, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		term, definition, ok := strings.Cut(entry, opts.TermDelimiter)
		term, definition = strings.TrimSpace(term), strings.TrimSpace(definition)
		if !ok || term == "" || definition == "" {
			res.Invalid = append(res.Invalid, i+1)
			continue
		}
		res.Pairs = append(res.Pairs, Pair{Term: term, Definition: definition})
	}

	if len(res.Pairs) == 0 {
		return res, ErrNoPairs
	}
	return res, nil
}

// splitLines splits on runs of newlines, as a textarea paste would.
func splitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// ParseFile reads a file from the given path and extracts all pairs with Parse.
func ParseFile(path string) ([]Pair, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	pairs, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return pairs, nil
}

var (
	separators         = []string{" — ", " – ", " - ", " : ", " → ", " →", "→ "}
	fallbackSeparators = []string{"\t", " | ", " |", "| ", " : ", " :", ": "}

	numberedLine = regexp.MustCompile(`^\d+\.\s*(.+?)\s*[-–—:]\s*(.+)$`)
	htmlPair     = regexp.MustCompile(`<[^>]*>([^<]+)<[^>]*>\s*[-–—:]\s*<[^>]*>([^<]+)<[^>]*>`)
	headerTerm   = regexp.MustCompile(`(?i)^(term|definition|word|meaning)$`)
	headingLine  = regexp.MustCompile(`(?i)^(Terms in this set|Definition|Định nghĩa|Thuật ngữ|Từ vựng|Flashcards|Cards)`)
)

// Parse reads readable vocabulary text of unknown layout. Strategies are
// tried in order and the first one that yields any pair wins:
//
//  1. "term — definition" style separators
//  2. numbered lines, "1. term - definition"
//  3. HTML element pairs
//  4. alternating term and definition lines
//  5. tab, pipe and colon separators
//
// Pairs are trimmed of surrounding quotes; over-long pairs, header words and
// exact duplicates are dropped.
func Parse(r io.Reader) ([]Pair, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	c := &collector{pairs: []Pair{}, seen: make(map[Pair]bool)}

	for _, line := range lines {
		c.splitFirst(line, separators)
	}

	if c.empty() {
		for _, line := range lines {
			if m := numberedLine.FindStringSubmatch(line); m != nil {
				c.add(m[1], m[2])
			}
		}
	}

	if c.empty() {
		for _, line := range lines {
			if m := htmlPair.FindStringSubmatch(line); m != nil {
				c.add(m[1], m[2])
			}
		}
	}

	if c.empty() {
		for i := 0; i+1 < len(lines); i += 2 {
			if !headingLine.MatchString(lines[i]) {
				c.add(lines[i], lines[i+1])
			}
		}
	}

	if c.empty() {
		for _, line := range lines {
			c.splitFirst(line, fallbackSeparators)
		}
	}

	return c.pairs, nil
}

type collector struct {
	pairs []Pair
	seen  map[Pair]bool
}

func (c *collector) empty() bool { return len(c.pairs) == 0 }

// splitFirst splits line at the first of seps it contains.
func (c *collector) splitFirst(line string, seps []string) {
	for _, sep := range seps {
		if term, definition, ok := strings.Cut(line, sep); ok {
			c.add(term, definition)
			return
		}
	}
}

func (c *collector) add(term, definition string) {
	p := Pair{Term: clean(term), Definition: clean(definition)}
	if p.Term == "" || p.Definition == "" {
		return
	}
	if utf8.RuneCountInString(p.Term) > MaxTermLength || utf8.RuneCountInString(p.Definition) > MaxDefinitionLength {
		return
	}
	if headerTerm.MatchString(p.Term) || c.seen[p] {
		return
	}
	c.seen[p] = true
	c.pairs = append(c.pairs, p)
}

// clean trims whitespace and one leading and trailing quote.
func clean(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `"`) || strings.HasPrefix(s, `'`) {
		s = s[1:]
	}
	if strings.HasSuffix(s, `"`) || strings.HasSuffix(s, `'`) {
		s = s[:len(s)-1]
	}
	return strings.TrimSpace(s)
}
