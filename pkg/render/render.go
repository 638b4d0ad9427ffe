// Package render is the built-in rendering facade. It drives Go's
// text/template with the request schema's "data" object as the
// template context. Failures never cross the transport boundary as
// errors; they are reported through the status descriptor.
package render

import (
	"bytes"
	"encoding/json"
	"os"
	"text/template"

	"github.com/FranBarInstance/neutral-ipc/pkg/types"
)

type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

type schemaDoc struct {
	Data map[string]interface{} `json:"data"`
}

func (e *Engine) Render(schema, source string, kind types.SourceKind) (string, types.RenderStatus) {
	var doc schemaDoc
	if schema != "" {
		if err := json.Unmarshal([]byte(schema), &doc); err != nil {
			return "", failure(500, "invalid schema", err.Error())
		}
	}

	src := source
	if kind == types.SourcePath {
		raw, err := os.ReadFile(source)
		if err != nil {
			return "", failure(404, "template not found", source)
		}
		src = string(raw)
	}

	tmpl, err := template.New("ipc").Parse(src)
	if err != nil {
		return "", failure(500, "template parse error", err.Error())
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, doc.Data); err != nil {
		return "", failure(500, "template execution error", err.Error())
	}

	return buf.String(), types.RenderStatus{
		StatusCode: 200,
		StatusText: "OK",
	}
}

func failure(code int, text, param string) types.RenderStatus {
	return types.RenderStatus{
		HasError:    true,
		StatusCode:  code,
		StatusText:  text,
		StatusParam: param,
	}
}
