// Package envfile edits dotenv files without disturbing their layout.
//
// Comments, blank lines and key order survive a Parse/String round trip, so
// setting DATABASE_URL in a service's .env changes exactly one line.
package envfile

import (
	"fmt"
	"regexp"
	"strings"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

type line struct {
	raw    string
	key    string
	value  string
	export bool
}

// File is a parsed dotenv document.
type File struct {
	lines []line
	// trailingNewline records whether the source ended with "\n".
	trailingNewline bool
}

// Parse reads dotenv text. Lines that are not KEY=VALUE assignments are kept
// verbatim.
func Parse(data string) *File {
	f := &File{trailingNewline: data == "" || strings.HasSuffix(data, "\n")}
	data = strings.ReplaceAll(data, "\r\n", "\n")
	body := strings.TrimSuffix(data, "\n")
	if body == "" {
		return f
	}

	for _, raw := range strings.Split(body, "\n") {
		f.lines = append(f.lines, parseLine(raw))
	}
	return f
}

func parseLine(raw string) line {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return line{raw: raw}
	}

	export := false
	if rest, ok := strings.CutPrefix(trimmed, "export "); ok {
		export = true
		trimmed = strings.TrimSpace(rest)
	}

	key, value, ok := strings.Cut(trimmed, "=")
	key = strings.TrimSpace(key)
	if !ok || !keyPattern.MatchString(key) {
		return line{raw: raw}
	}
	return line{raw: raw, key: key, value: strings.TrimSpace(value), export: export}
}

// Keys returns the assigned keys in file order.
func (f *File) Keys() []string {
	var keys []string
	for _, l := range f.lines {
		if l.key != "" {
			keys = append(keys, l.key)
		}
	}
	return keys
}

// Get returns the raw value of key (quotes included) and whether it is set.
// When a key is assigned more than once the last assignment wins, as it does
// for docker --env-file and most dotenv loaders.
func (f *File) Get(key string) (string, bool) {
	for i := len(f.lines) - 1; i >= 0; i-- {
		if f.lines[i].key == key {
			return f.lines[i].value, true
		}
	}
	return "", false
}

// Set assigns value to key, rewriting every existing assignment in place, or
// appending a new line when the key is absent.
func (f *File) Set(key, value string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("invalid env key %q", key)
	}
	if strings.ContainsAny(value, "\n\r") {
		return fmt.Errorf("value for %s must be a single line", key)
	}

	found := false
	for i := range f.lines {
		if f.lines[i].key == key {
			f.lines[i].value = value
			f.lines[i].raw = render(f.lines[i])
			found = true
		}
	}
	if !found {
		l := line{key: key, value: value}
		l.raw = render(l)
		f.lines = append(f.lines, l)
	}
	return nil
}

// Unset removes every assignment of key. It reports whether anything changed.
func (f *File) Unset(key string) bool {
	kept := f.lines[:0]
	removed := false
	for _, l := range f.lines {
		if l.key == key {
			removed = true
			continue
		}
		kept = append(kept, l)
	}
	f.lines = kept
	return removed
}

// Unquote strips one level of matching surrounding quotes from every value
// and reports how many values changed. docker --env-file passes quotes through
// literally, so quoted values end up inside the container verbatim.
func (f *File) Unquote() int {
	changed := 0
	for i := range f.lines {
		if f.lines[i].key == "" {
			continue
		}
		if v, ok := stripQuotes(f.lines[i].value); ok {
			f.lines[i].value = v
			f.lines[i].raw = render(f.lines[i])
			changed++
		}
	}
	return changed
}

// String renders the file.
func (f *File) String() string {
	if len(f.lines) == 0 {
		return ""
	}
	var b strings.Builder
	for i, l := range f.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.raw)
	}
	if f.trailingNewline {
		b.WriteByte('\n')
	}
	return b.String()
}

func render(l line) string {
	prefix := ""
	if l.export {
		prefix = "export "
	}
	return prefix + l.key + "=" + l.value
}

// StripQuotes removes one level of matching single or double quotes.
func StripQuotes(v string) string {
	out, _ := stripQuotes(v)
	return out
}

func stripQuotes(v string) (string, bool) {
	if len(v) < 2 {
		return v, false
	}
	first, last := v[0], v[len(v)-1]
	if (first == '"' || first == '\'') && first == last {
		return v[1 : len(v)-1], true
	}
	return v, false
}

// ValidKey reports whether key can be assigned with Set.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}
