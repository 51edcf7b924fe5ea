package pipeline

import (
	"sort"

	"github.com/foomo/sitepress/pkg/resource"
	"github.com/pkg/errors"
)

// References named references of a definition
type References map[string]resource.Reference

// Sorted returns the references ordered by name
func (r References) Sorted() []resource.Reference {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	refs := make([]resource.Reference, 0, len(names))
	for _, name := range names {
		refs = append(refs, r[name])
	}
	return refs
}

// funcs template functions resolving named references in the context language
func (r References) funcs(ctx *Context) map[string]interface{} {
	data := func(name string) (resource.UrlData, error) {
		ref, ok := r[name]
		if !ok {
			return resource.UrlData{}, errors.Errorf("undeclared reference %q", name)
		}
		return ctx.Data(ref)
	}
	return map[string]interface{}{
		"url": func(name string) (string, error) {
			d, err := data(name)
			return d.URL, err
		},
		"width": func(name string) (int, error) {
			d, err := data(name)
			return d.Details.Width, err
		},
		"height": func(name string) (int, error) {
			d, err := data(name)
			return d.Details.Height, err
		},
		"mime": func(name string) (string, error) {
			d, err := data(name)
			return d.Details.MimeType, err
		},
		"title": func(name string) (string, error) {
			ref, ok := r[name]
			if !ok {
				return "", errors.Errorf("undeclared reference %q", name)
			}
			return ctx.Title(ref)
		},
	}
}
