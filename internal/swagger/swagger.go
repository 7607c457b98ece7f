// Package swagger summarises Swagger 2.0 documents of the services hostctl
// deploys, so an operator can see an API's surface without opening the UI.
package swagger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

const descriptionLimit = 200

// Document is the subset of a Swagger 2.0 document hostctl reads.
type Document struct {
	BasePath    string                                `json:"basePath"`
	Info        Info                                  `json:"info"`
	Paths       map[string]map[string]json.RawMessage `json:"paths"`
	Definitions map[string]Schema                     `json:"definitions"`
}

// Info is the document's info block.
type Info struct {
	Title   string `json:"title"`
	Version string `json:"version"`
}

// Operation is one HTTP method on a path.
type Operation struct {
	Summary     string                     `json:"summary"`
	Description string                     `json:"description"`
	Parameters  []Parameter                `json:"parameters"`
	Responses   map[string]json.RawMessage `json:"responses"`
}

// Parameter describes one operation input.
type Parameter struct {
	Name        string `json:"name"`
	In          string `json:"in"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
}

// Schema is a definition's object schema.
type Schema struct {
	Type       string            `json:"type"`
	Required   []string          `json:"required"`
	Properties map[string]Schema `json:"properties"`
	Ref        string            `json:"$ref"`
}

// methods lists the HTTP operations a path item may hold, in render order.
var methods = []string{"get", "put", "post", "delete", "options", "head", "patch"}

// Load reads and parses a swagger file.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open swagger file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse decodes a swagger document.
func Parse(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse swagger JSON: %w", err)
	}
	if doc.Paths == nil {
		return nil, fmt.Errorf("swagger document has no paths")
	}
	return &doc, nil
}

// Endpoint is one method+path pair with its decoded operation.
type Endpoint struct {
	Path   string
	Method string
	Op     Operation
}

// Endpoints returns every operation sorted by path then method order.
// Path-level "parameters" entries are not operations and are skipped.
func (d *Document) Endpoints() ([]Endpoint, error) {
	paths := make([]string, 0, len(d.Paths))
	for p := range d.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var out []Endpoint
	for _, p := range paths {
		item := d.Paths[p]
		for _, m := range methods {
			raw, ok := item[m]
			if !ok {
				continue
			}
			var op Operation
			if err := json.Unmarshal(raw, &op); err != nil {
				return nil, fmt.Errorf("failed to parse %s %s: %w", strings.ToUpper(m), p, err)
			}
			out = append(out, Endpoint{Path: p, Method: strings.ToUpper(m), Op: op})
		}
	}
	return out, nil
}

// Render writes a plain-text summary of the document.
func Render(w io.Writer, d *Document) error {
	endpoints, err := d.Endpoints()
	if err != nil {
		return err
	}

	bar := strings.Repeat("=", 80)
	basePath := d.BasePath
	if basePath == "" {
		basePath = "/"
	}

	var b strings.Builder
	title := "API ENDPOINTS"
	if d.Info.Title != "" {
		title = strings.ToUpper(d.Info.Title) + " ENDPOINTS"
	}
	fmt.Fprintf(&b, "%s\n%s\n%s\nBase Path: %s\n", bar, title, bar, basePath)

	lastPath := ""
	for _, e := range endpoints {
		if e.Path != lastPath {
			fmt.Fprintf(&b, "\n%s\nPath: %s\n%s\n", bar, e.Path, bar)
			lastPath = e.Path
		}
		fmt.Fprintf(&b, "\n%s\n", e.Method)
		fmt.Fprintf(&b, "Summary: %s\n", orNA(e.Op.Summary))
		fmt.Fprintf(&b, "Description: %s\n", truncate(orNA(e.Op.Description), descriptionLimit))
		if len(e.Op.Parameters) > 0 {
			b.WriteString("Parameters:\n")
			for _, p := range e.Op.Parameters {
				fmt.Fprintf(&b, "  - %s (%s) [%s]: %s\n", p.Name, p.In, requiredLabel(p.Required), p.Description)
			}
		}
		if len(e.Op.Responses) > 0 {
			fmt.Fprintf(&b, "Responses: %s\n", strings.Join(sortedKeys(e.Op.Responses), ", "))
		}
	}

	if len(d.Definitions) > 0 {
		fmt.Fprintf(&b, "\n%s\nDEFINITIONS\n%s\n", bar, bar)
		names := make([]string, 0, len(d.Definitions))
		for n := range d.Definitions {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			schema := d.Definitions[n]
			fmt.Fprintf(&b, "\n%s:\n", n)
			required := make(map[string]bool, len(schema.Required))
			for _, r := range schema.Required {
				required[r] = true
			}
			props := make([]string, 0, len(schema.Properties))
			for p := range schema.Properties {
				props = append(props, p)
			}
			sort.Strings(props)
			for _, p := range props {
				fmt.Fprintf(&b, "  - %s (%s) [%s]\n", p, schema.Properties[p].typeName(), requiredLabel(required[p]))
			}
		}
	}

	_, err = io.WriteString(w, b.String())
	return err
}

func (s Schema) typeName() string {
	switch {
	case s.Type != "":
		return s.Type
	case s.Ref != "":
		return s.Ref[strings.LastIndex(s.Ref, "/")+1:]
	default:
		return "unknown"
	}
}

func requiredLabel(required bool) string {
	if required {
		return "REQUIRED"
	}
	return "optional"
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
