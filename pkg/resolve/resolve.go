package resolve

import (
	"strings"

	"github.com/foomo/sitepress/pkg/cache"
	"github.com/foomo/sitepress/pkg/errs"
	"github.com/foomo/sitepress/pkg/resource"
)

// Resolver resolves references against the resources and responses of one
// build generation
type Resolver struct {
	resources resource.Map
	responses cache.Finder
}

func New(resources resource.Map, responses cache.Finder) *Resolver {
	return &Resolver{
		resources: resources,
		responses: responses,
	}
}

// Resolve returns the concrete url of ref and, for internal references, the
// cached response it points to
func (r *Resolver) Resolve(ref resource.Reference, primary, current string) (string, *cache.Entry, error) {
	if ref.IsExternal() {
		return ref.External, nil, nil
	}
	data, err := r.Data(ref, primary, current)
	if err != nil {
		return "", nil, err
	}
	entry, ok := r.responses.Find(Key(data.URL))
	if !ok {
		return "", nil, errs.Configuration("reference %s resolved to %s which has no response", ref, data.URL)
	}
	return data.URL, entry, nil
}

// Data returns url and details of an internal reference, external references
// resolve to their literal url without details
func (r *Resolver) Data(ref resource.Reference, primary, current string) (resource.UrlData, error) {
	if ref.IsExternal() {
		return resource.UrlData{URL: ref.External}, nil
	}
	target, err := r.Resource(ref)
	if err != nil {
		return resource.UrlData{}, err
	}
	tag := ref.Tag
	if tag.Kind == "" {
		tag = resource.DefaultTag
	}
	if !target.HasTag(tag) {
		return resource.UrlData{}, errs.Configuration("resource %s did not produce tag %s (produced: %v)", ref.Resource, tag, target.Tags())
	}
	if data, ok := target.UrlData(tag, current); ok {
		return data, nil
	}
	if data, ok := target.UrlData(tag, primary); ok {
		return data, nil
	}
	return resource.UrlData{}, errs.Configuration("resource %s tag %s has no output for language %q nor primary %q", ref.Resource, tag, current, primary)
}

// Title returns the title of ref in current, falling back to primary
func (r *Resolver) Title(ref resource.Reference, primary, current string) (string, error) {
	if ref.IsExternal() {
		if t, ok := ref.Titles[current]; ok && t != "" {
			return t, nil
		}
		if t, ok := ref.Titles[primary]; ok && t != "" {
			return t, nil
		}
		return "", errs.Configuration("reference %s has no title for language %q nor primary %q", ref, current, primary)
	}
	target, err := r.Resource(ref)
	if err != nil {
		return "", err
	}
	if t, ok := target.TitleFor(primary, current); ok {
		return t, nil
	}
	return "", errs.Configuration("resource %s has no title for language %q nor primary %q", ref.Resource, current, primary)
}

// Resource returns the target of an internal reference
func (r *Resolver) Resource(ref resource.Reference) (*resource.Resource, error) {
	if ref.IsExternal() {
		return nil, errs.Configuration("reference %s is external", ref)
	}
	target, ok := r.resources.Get(ref.Resource)
	if !ok {
		return nil, errs.Configuration("referenced resource %s does not exist", ref.Resource)
	}
	return target, nil
}

// Key converts an absolute url into its response cache key
func Key(url string) string {
	url = strings.TrimPrefix(url, "https://")
	return strings.TrimPrefix(url, "http://")
}
