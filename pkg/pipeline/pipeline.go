package pipeline

import (
	"path"
	"strings"

	"github.com/foomo/sitepress/pkg/cache"
	"github.com/foomo/sitepress/pkg/resource"
)

type (
	// Pipeline typed payload of one resource kind. Execute must not have side
	// effects beyond its return value and the context collectors.
	Pipeline interface {
		resource.Payload
		Priority() Priority
		// References lists every internal or external reference the
		// resource resolves while executing
		References() []resource.Reference
		Execute(ctx *Context) ([]Output, error)
	}
	// Output one produced response of a pipeline execution
	Output struct {
		// Path site relative url path, prefixed with the language base path by dispatch
		Path string
		// Tags under which the output can be referenced
		Tags        map[resource.Tag]resource.Details
		Status      int
		ContentType string
		Headers     []cache.Header
		Body        []byte
		// Gzip and Brotli optional pre-compressed bodies
		Gzip   []byte
		Brotli []byte
		// PJAX optional fragment served under the same url
		PJAX *Output
		// Cacheable bodies are compressed through the content cache
		Cacheable bool
		// Root outputs live at the host root ignoring the language base
		// path, one per host
		Root bool
	}
)

// Tag attaches tag with details to the output
func (o *Output) Tag(tag resource.Tag, details resource.Details) *Output {
	if o.Tags == nil {
		o.Tags = map[resource.Tag]resource.Details{}
	}
	o.Tags[tag] = details
	return o
}

// WithExt appends ext to stem unless it already ends with it. The root stem
// maps to "/index".
func WithExt(stem, ext string) string {
	if stem == "" || stem == "/" {
		stem = "/index"
	}
	if ext == "" || strings.EqualFold(path.Ext(stem), ext) {
		return stem
	}
	return stem + ext
}
