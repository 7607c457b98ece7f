package runbook

import (
	"fmt"
	"maps"
	"reflect"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/juju/utils/v4"
	"gopkg.in/yaml.v3"
)

// Render returns a copy of the runbook with every string field executed as
// a template. overrides replace vars of the same name. Var values may use
// template functions (for example env) but not other vars. Referencing an
// undefined var is an error.
func (rb *Runbook) Render(overrides map[string]string) (*Runbook, error) {
	vars := make(map[string]string, len(rb.Vars)+len(overrides))
	maps.Copy(vars, rb.Vars)
	maps.Copy(vars, overrides)

	for k, v := range vars {
		rendered, err := renderString("vars."+k, v, map[string]string{})
		if err != nil {
			return nil, err
		}
		vars[k] = rendered
	}

	out, err := rb.clone()
	if err != nil {
		return nil, err
	}
	out.Vars = vars

	r := renderer{data: vars}
	for _, f := range []struct {
		path string
		v    *string
	}{
		{"name", &out.Name},
		{"description", &out.Description},
		{"host", &out.Host},
	} {
		if *f.v, err = renderString(f.path, *f.v, vars); err != nil {
			return nil, err
		}
	}
	for i := range out.Steps {
		if err := r.walk(reflect.ValueOf(&out.Steps[i]).Elem(), fmt.Sprintf("steps[%d]", i)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// clone deep-copies the runbook through its YAML form.
func (rb *Runbook) clone() (*Runbook, error) {
	data, err := yaml.Marshal(rb)
	if err != nil {
		return nil, fmt.Errorf("failed to copy runbook: %w", err)
	}
	var out Runbook
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to copy runbook: %w", err)
	}
	return &out, nil
}

type renderer struct {
	data map[string]string
}

func (r renderer) walk(v reflect.Value, path string) error {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return r.walk(v.Elem(), path)
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			if err := r.walk(v.Field(i), path+"."+fieldName(f)); err != nil {
				return err
			}
		}
	case reflect.String:
		s, err := renderString(path, v.String(), r.data)
		if err != nil {
			return err
		}
		v.SetString(s)
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			if err := r.walk(v.Index(i), fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case reflect.Map:
		if v.Type().Elem().Kind() != reflect.String {
			return nil
		}
		iter := v.MapRange()
		updates := map[string]string{}
		for iter.Next() {
			k := iter.Key().String()
			s, err := renderString(path+"."+k, iter.Value().String(), r.data)
			if err != nil {
				return err
			}
			updates[k] = s
		}
		for k, s := range updates {
			v.SetMapIndex(reflect.ValueOf(k), reflect.ValueOf(s))
		}
	}
	return nil
}

func fieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
	if name == "" {
		return f.Name
	}
	return name
}

// funcMap is sprig plus shq, which single-quotes a value for the shell.
func funcMap() template.FuncMap {
	fm := sprig.TxtFuncMap()
	fm["shq"] = utils.ShQuote
	return fm
}

func renderString(path, s string, data map[string]string) (string, error) {
	if !strings.Contains(s, "{{") {
		return s, nil
	}
	tmpl, err := template.New(path).Funcs(funcMap()).Option("missingkey=error").Parse(s)
	if err != nil {
		return "", fmt.Errorf("%s: invalid template: %w", path, err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		if strings.Contains(err.Error(), "map has no entry for key") {
			return "", fmt.Errorf("%s: %w (write literal braces as {{`{{...}}`}})", path, err)
		}
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return b.String(), nil
}
