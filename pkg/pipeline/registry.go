package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/foomo/sitepress/pkg/discovery"
	"github.com/foomo/sitepress/pkg/document"
	"github.com/foomo/sitepress/pkg/errs"
	"github.com/foomo/sitepress/pkg/resource"
)

// InputKey optional definition field naming the input file explicitly
const InputKey = "input"

// InputMode tells whether a kind reads an input file
type InputMode int

const (
	InputNone InputMode = iota
	InputRequired
)

type (
	// Kind describes one pipeline kind
	Kind struct {
		Name string
		// Extensions claimed input extensions, a sibling input with one of
		// them infers the kind. Kinds without extensions are explicit only.
		Extensions []string
		Input      InputMode
		New        func() Pipeline
	}
	// Registry selects the pipeline kind of a resource definition
	Registry struct {
		kinds map[string]Kind
		// extensions in registration order
		extensions map[string]string
	}
)

// NewRegistry returns a registry with every built in kind and kinds added
func NewRegistry(kinds ...Kind) *Registry {
	r := &Registry{
		kinds:      map[string]Kind{},
		extensions: map[string]string{},
	}
	for _, kind := range append(Kinds(), kinds...) {
		r.Register(kind)
	}
	return r
}

// Register adds or replaces a kind, an extension claimed twice belongs to the latest kind
func (r *Registry) Register(kind Kind) {
	r.kinds[kind.Name] = kind
	for _, ext := range kind.Extensions {
		r.extensions[strings.ToLower(ext)] = kind.Name
	}
}

// Kind returns the registered kind of name
func (r *Registry) Kind(name string) (Kind, bool) {
	k, ok := r.kinds[name]
	return k, ok
}

// Names returns all kind names sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Decode implements discovery.Decoder
func (r *Registry) Decode(req discovery.Request) (resource.Payload, error) {
	kind, input, err := r.resolve(req.Folder, req.Name, req.Header.Kind, req.Document)
	if err != nil {
		return nil, err
	}
	if kind.Input == InputRequired && input == "" {
		return nil, errs.InvalidFile(req.Definition, "kind %s requires an input file %s.<%s>", kind.Name, req.Name, strings.Join(kind.Extensions, "|"))
	}
	p := kind.New()
	if err := document.Decode(req.Document, p); err != nil {
		return nil, errs.InvalidFile(req.Definition, "malformed %s definition: %s", kind.Name, err)
	}
	if v, ok := p.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, errs.ConfigurationAt(req.Definition, "invalid %s definition: %s", kind.Name, err)
		}
	}
	return p, nil
}

// Input returns the input file of a discovered resource, empty if its kind reads none
func (r *Registry) Input(res *resource.Resource) (string, error) {
	kind, input, err := r.resolve(res.Folder, res.Name, res.Kind, res.Document)
	if err != nil {
		return "", errs.WithPath(res.Definition, err)
	}
	if kind.Input == InputNone {
		return "", nil
	}
	return input, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (r *Registry) resolve(folder, name, declared string, doc document.Document) (Kind, string, error) {
	explicit := ""
	if v, ok := doc[InputKey]; ok {
		s, ok := v.(string)
		if !ok || s == "" {
			return Kind{}, "", errs.Configuration("%s must be a file name", InputKey)
		}
		explicit = filepath.Join(folder, filepath.FromSlash(s))
		if info, err := os.Stat(explicit); err != nil || info.IsDir() {
			return Kind{}, "", errs.Configuration("input file %q does not exist", s)
		}
	}

	siblings, err := r.siblings(folder, name)
	if err != nil {
		return Kind{}, "", err
	}

	if declared == "" {
		candidates := siblings
		if explicit != "" {
			candidates = []string{explicit}
		}
		for _, candidate := range candidates {
			if kindName, ok := r.extensions[strings.ToLower(filepath.Ext(candidate))]; ok {
				return r.kinds[kindName], candidate, nil
			}
		}
		return Kind{}, "", errs.Configuration("resource %q declares no kind and has no input file to infer it from", name)
	}

	kind, ok := r.kinds[declared]
	if !ok {
		return Kind{}, "", errs.Configuration("unknown kind %q, expected one of %v", declared, r.Names())
	}
	if explicit != "" {
		return kind, explicit, nil
	}
	for _, sibling := range siblings {
		if len(kind.Extensions) == 0 || contains(kind.Extensions, strings.ToLower(filepath.Ext(sibling))) {
			return kind, sibling, nil
		}
	}
	return kind, "", nil
}

// siblings returns the files "<name>.<ext>" next to a definition, sorted
func (r *Registry) siblings(folder, name string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, errs.IO(folder, err)
	}
	var siblings []string
	for _, entry := range entries {
		filename := entry.Name()
		if entry.IsDir() || discovery.IsDefinition(filename) {
			continue
		}
		if strings.TrimSuffix(filename, filepath.Ext(filename)) == name {
			siblings = append(siblings, filepath.Join(folder, filename))
		}
	}
	return siblings, nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
