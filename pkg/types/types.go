package types

// SourceKind tells a renderer whether the template source is the
// template text itself or a filesystem path to load it from.
type SourceKind int

const (
	SourceInline SourceKind = iota
	SourcePath
)

// RenderStatus is the status descriptor a renderer reports alongside
// its output. It is serialized verbatim as the JSON body of a
// response.
type RenderStatus struct {
	HasError    bool   `json:"has_error"`
	StatusCode  int    `json:"status_code"`
	StatusText  string `json:"status_text"`
	StatusParam string `json:"status_param"`
}

// Renderer is the boundary to the template engine. Implementations
// must report every rendering failure through the status descriptor;
// the transport never interprets or retries a render.
type Renderer interface {
	Render(schema string, source string, kind SourceKind) (string, RenderStatus)
}
