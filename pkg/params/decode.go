package params

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// document is a parameter file decoded from any supported format.
type document struct {
	Analyses []analysis `toml:"analysis" yaml:"analysis"`
}

type analysis struct {
	ScriptName  string `toml:"scriptname" yaml:"scriptname"`
	Interactive any    `toml:"interactive" yaml:"interactive"`
	Runs        []run  `toml:"run" yaml:"run"`
}

type run struct {
	Name   string         `toml:"name" yaml:"name"`
	Params map[string]any `toml:"params" yaml:"params"`
}

// parameters collects the runs recorded for script.
func (d document) parameters(script string) *Parameters {
	p := &Parameters{Script: script}
	auto := 0
	for _, a := range d.Analyses {
		if a.ScriptName != script {
			continue
		}
		p.Interactive = interactive(a.Interactive)
		for _, r := range a.Runs {
			name := r.Name
			if name == "" {
				name = "autoname" + strconv.Itoa(auto)
				auto++
			}
			values := make(map[string]string, len(r.Params))
			for k, v := range r.Params {
				values[k] = fmt.Sprint(v)
			}
			p.Runs = append(p.Runs, Run{Name: name, Values: values})
		}
	}
	return p
}

// interactive treats F, False, f and false as false, any other string as
// true, and a missing attribute as false.
func interactive(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case string:
		switch v {
		case "F", "False", "f", "false":
			return false
		}
		return true
	}
	return false
}

func decodeTOML(data []byte) (document, error) {
	var doc document
	_, err := toml.Decode(string(data), &doc)
	return doc, err
}

func decodeYAML(data []byte) (document, error) {
	var doc document
	err := yaml.Unmarshal(data, &doc)
	return doc, err
}

type xmlDocument struct {
	Analyses []xmlAnalysis `xml:"analysis"`
}

type xmlAnalysis struct {
	ScriptName  string   `xml:"scriptname,attr"`
	Interactive *string  `xml:"interactive,attr"`
	Runs        []xmlRun `xml:"run"`
}

type xmlRun struct {
	Name   string     `xml:"name,attr"`
	Params []xmlParam `xml:"param"`
}

type xmlParam struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

func decodeXML(data []byte) (document, error) {
	var x xmlDocument
	dec := xml.NewDecoder(bytes.NewReader(data))
	// Legacy files reference entities from a foreign DTD; keep them verbatim.
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	if err := dec.Decode(&x); err != nil {
		return document{}, err
	}
	if len(x.Analyses) == 0 {
		return document{}, fmt.Errorf("no analysis entries")
	}

	var doc document
	for _, xa := range x.Analyses {
		a := analysis{ScriptName: xa.ScriptName}
		if xa.Interactive != nil {
			a.Interactive = *xa.Interactive
		}
		for _, xr := range xa.Runs {
			r := run{Name: xr.Name, Params: make(map[string]any, len(xr.Params))}
			for _, xp := range xr.Params {
				r.Params[xp.Name] = xp.Value
			}
			a.Runs = append(a.Runs, r)
		}
		doc.Analyses = append(doc.Analyses, a)
	}
	return doc, nil
}
