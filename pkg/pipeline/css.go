package pipeline

import (
	"bytes"
	"text/template"

	"github.com/foomo/sitepress/pkg/errs"
	"github.com/foomo/sitepress/pkg/resource"
)

// CSS stylesheet template resolving named references, e.g.
// background: url({{ url "logo" }});
type CSS struct {
	Refs References `json:"references"`
}

func (p *CSS) Kind() string       { return "css" }
func (p *CSS) Priority() Priority { return PriorityDependent }

func (p *CSS) References() []resource.Reference {
	return p.Refs.Sorted()
}

func (p *CSS) Execute(ctx *Context) ([]Output, error) {
	data, err := ctx.ReadInput()
	if err != nil {
		return nil, err
	}
	tpl, err := template.New(ctx.Input).Funcs(p.Refs.funcs(ctx)).Parse(string(data))
	if err != nil {
		return nil, errs.Codec(ctx.Input, err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, nil); err != nil {
		return nil, errs.WithPath(ctx.Input, resolutionError(err))
	}
	const contentType = "text/css; charset=utf-8"
	out, err := ctx.NewOutput(ctx.Path(".css"), contentType, buf.Bytes())
	if err != nil {
		return nil, err
	}
	out.Tag(resource.DefaultTag, resource.GenericDetails(contentType, int64(buf.Len())))
	return []Output{out}, nil
}
