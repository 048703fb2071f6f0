package compile

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"vsmrt/blob"
	"vsmrt/config"
	"vsmrt/runtimedata"
	"vsmrt/typeindex"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context   string
	Name      string
	SourceDir string
	Kind      string
	Revision  int
	TargetOS  uint32
	Groups    []string
	States    []string
}

func buildValues(src string, b *blob.Blob, rd runtimedata.RuntimeData) Values {
	v := Values{
		Context:   string(config.OutputNameTemplateFieldName),
		Name:      strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)),
		SourceDir: filepath.ToSlash(filepath.Dir(src)),
		Kind:      rd.Kind().String(),
		Revision:  typeindex.Revision(rd.Revision()),
		TargetOS:  uint32(b.OSVersion),
	}
	if v.SourceDir == "." {
		v.SourceDir = ""
	}
	if vsgc, ok := rd.(*runtimedata.VisualStateGroupCollectionRuntimeData); ok {
		for _, g := range vsgc.Groups {
			v.Groups = append(v.Groups, g.Name)
		}
		for _, s := range vsgc.States {
			v.States = append(v.States, s.Name)
		}
	}
	return v
}

func expandTemplate(name config.TemplateFieldName, field string, values Values) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
