// Package sslconf edits OpenSSL configuration files without reformatting them.
//
// A Document keeps every source line (comments and blank lines included) and
// addresses options by "section.key" paths. Options that precede the first
// section header live in the default section, addressed with an empty
// section name (".key").
package sslconf

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrSyntax is returned by Parse for a line that is neither a section
	// header, an option, a directive, a comment nor blank.
	ErrSyntax = errors.New("syntax error")

	// ErrSectionNotFound is returned when a path names a missing section.
	ErrSectionNotFound = errors.New("section not found")

	// ErrOptionNotFound is returned by Get for a missing option.
	ErrOptionNotFound = errors.New("option not found")

	// ErrInvalidPath is returned for a path without a "." separator.
	ErrInvalidPath = errors.New("invalid option path")
)

type lineKind int

const (
	kindBlank lineKind = iota
	kindComment
	kindSection
	kindOption
	kindContinuation
	kindDirective
)

type line struct {
	kind    lineKind
	raw     string
	section string // section the line belongs to; the header's own name for kindSection
	key     string
	value   string
}

var (
	sectionRe   = regexp.MustCompile(`^\s*\[\s*([^\]\s]+)\s*\]\s*(?:#.*)?$`)
	optionRe    = regexp.MustCompile(`^\s*([^=\s][^=]*?)\s*=\s*(.*)$`)
	directiveRe = regexp.MustCompile(`^\s*\.[A-Za-z]+\b`)
)

// Document is a parsed OpenSSL configuration.
type Document struct {
	lines []line
}

// Parse parses configuration text. Errors wrap ErrSyntax and name the
// offending line number.
func Parse(text string) (*Document, error) {
	lines, err := parseLines(text)
	if err != nil {
		return nil, err
	}
	d := &Document{lines: lines}
	d.reindex()
	return d, nil
}

func parseLines(text string) ([]line, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil, nil
	}
	var (
		out          []line
		continuation bool
	)
	for i, raw := range strings.Split(text, "\n") {
		if continuation {
			out = append(out, line{kind: kindContinuation, raw: raw})
			continuation = strings.HasSuffix(raw, `\`)
			continue
		}
		trimmed := strings.TrimSpace(raw)
		switch {
		case trimmed == "":
			out = append(out, line{kind: kindBlank, raw: raw})
		case strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";"):
			out = append(out, line{kind: kindComment, raw: raw})
		case sectionRe.MatchString(raw):
			m := sectionRe.FindStringSubmatch(raw)
			out = append(out, line{kind: kindSection, raw: raw, section: m[1]})
		case optionRe.MatchString(raw):
			m := optionRe.FindStringSubmatch(raw)
			out = append(out, line{kind: kindOption, raw: raw, key: m[1], value: stripComment(m[2])})
			continuation = strings.HasSuffix(raw, `\`)
		case directiveRe.MatchString(raw):
			out = append(out, line{kind: kindDirective, raw: raw})
		default:
			return nil, fmt.Errorf("%w: line %d: %q", ErrSyntax, i+1, raw)
		}
	}
	return out, nil
}

// stripComment drops an unescaped trailing "#" comment and surrounding space.
func stripComment(v string) string {
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case '\\':
			i++
		case '#':
			return strings.TrimSpace(v[:i])
		}
	}
	return strings.TrimSpace(v)
}

// reindex recomputes which section each line belongs to.
func (d *Document) reindex() {
	current := ""
	for i := range d.lines {
		if d.lines[i].kind == kindSection {
			current = d.lines[i].section
			continue
		}
		d.lines[i].section = current
	}
}

func splitPath(path string) (section, key string, err error) {
	section, key, ok := strings.Cut(path, ".")
	if !ok || key == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return section, key, nil
}

func (d *Document) hasSection(name string) bool {
	if name == "" {
		return true
	}
	return d.headerIndex(name) >= 0
}

func (d *Document) headerIndex(name string) int {
	for i, l := range d.lines {
		if l.kind == kindSection && l.section == name {
			return i
		}
	}
	return -1
}

// Get returns the value of the option at path. When an option is repeated
// the last occurrence wins, as in OpenSSL.
func (d *Document) Get(path string) (string, error) {
	section, key, err := splitPath(path)
	if err != nil {
		return "", err
	}
	if !d.hasSection(section) {
		return "", fmt.Errorf("%w: [%s]", ErrSectionNotFound, section)
	}
	value, found := "", false
	for _, l := range d.lines {
		if l.kind == kindOption && l.section == section && l.key == key {
			value, found = l.value, true
		}
	}
	if !found {
		return "", fmt.Errorf("%w: %s", ErrOptionNotFound, path)
	}
	return value, nil
}

// Set replaces every occurrence of the option at path with "key = value".
// A missing option is appended after the last option of its section.
func (d *Document) Set(path, value string) error {
	section, key, err := splitPath(path)
	if err != nil {
		return err
	}
	if !d.hasSection(section) {
		return fmt.Errorf("%w: [%s]", ErrSectionNotFound, section)
	}
	repl := line{kind: kindOption, raw: key + " = " + value, section: section, key: key, value: value}

	var out []line
	replaced := false
	for i := 0; i < len(d.lines); i++ {
		l := d.lines[i]
		if l.kind == kindOption && l.section == section && l.key == key {
			for i+1 < len(d.lines) && d.lines[i+1].kind == kindContinuation {
				i++
			}
			if !replaced {
				out = append(out, repl)
				replaced = true
			}
			continue
		}
		out = append(out, l)
	}
	if !replaced {
		out = insertLines(out, d.appendIndex(out, section), []line{repl})
	}
	d.lines = out
	d.reindex()
	return nil
}

// appendIndex is the position right after the last non-blank, non-comment
// line of section.
func (d *Document) appendIndex(lines []line, section string) int {
	pos, inside := 0, section == ""
	for i, l := range lines {
		if l.kind == kindSection {
			if inside && l.section != section {
				break
			}
			inside = l.section == section
			if inside {
				pos = i + 1
			}
			continue
		}
		if inside && l.kind != kindBlank && l.kind != kindComment {
			pos = i + 1
		}
	}
	return pos
}

// InsertAbove parses text and inserts its lines immediately above the header
// of section.
func (d *Document) InsertAbove(section, text string) error {
	at := d.headerIndex(section)
	if at < 0 {
		return fmt.Errorf("%w: [%s]", ErrSectionNotFound, section)
	}
	stanza, err := parseLines(text)
	if err != nil {
		return err
	}
	d.lines = insertLines(d.lines, at, stanza)
	d.reindex()
	return nil
}

// Remove deletes every occurrence of the option at path. Removing a missing
// option is a no-op.
func (d *Document) Remove(path string) error {
	section, key, err := splitPath(path)
	if err != nil {
		return err
	}
	if !d.hasSection(section) {
		return fmt.Errorf("%w: [%s]", ErrSectionNotFound, section)
	}
	out := d.lines[:0:0]
	for i := 0; i < len(d.lines); i++ {
		l := d.lines[i]
		if l.kind == kindOption && l.section == section && l.key == key {
			for i+1 < len(d.lines) && d.lines[i+1].kind == kindContinuation {
				i++
			}
			continue
		}
		out = append(out, l)
	}
	d.lines = out
	return nil
}

// Sections lists section names in document order.
func (d *Document) Sections() []string {
	var names []string
	for _, l := range d.lines {
		if l.kind == kindSection {
			names = append(names, l.section)
		}
	}
	return names
}

// String renders the document, newline-terminated.
func (d *Document) String() string {
	if len(d.lines) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, l := range d.lines {
		sb.WriteString(l.raw)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func insertLines(lines []line, at int, ins []line) []line {
	out := make([]line, 0, len(lines)+len(ins))
	out = append(out, lines[:at]...)
	out = append(out, ins...)
	return append(out, lines[at:]...)
}
