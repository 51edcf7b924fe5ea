package discovery

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/foomo/sitepress/pkg/cascade"
	"github.com/foomo/sitepress/pkg/document"
	"github.com/foomo/sitepress/pkg/errs"
	"github.com/foomo/sitepress/pkg/merge"
	"github.com/foomo/sitepress/pkg/resource"
	"go.uber.org/zap"
)

const (
	// SourceDir resource tree inside the input root
	SourceDir = "resources"
	// TemplateName per folder template override, the root one overrides the configured template
	TemplateName = "_template"
	// DefinitionSuffix marks resource definitions, e.g. logo.res.yaml
	DefinitionSuffix = ".res"
	// IndexName definition naming the folder's own resource
	IndexName = "index"
)

type (
	// Request everything a decoder needs to build the typed payload
	Request struct {
		Key        resource.Key
		Name       string
		Folder     string
		Definition string
		Header     resource.Header
		Document   document.Document
	}
	// Decoder turns a merged resource definition into its typed payload
	Decoder interface {
		Decode(req Request) (resource.Payload, error)
	}
	Discovery struct {
		l       *zap.Logger
		merger  *merge.Merger
		decoder Decoder
	}
	Option func(*Discovery)
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func New(l *zap.Logger, decoder Decoder, opts ...Option) *Discovery {
	inst := &Discovery{
		l:       l.Named("discovery"),
		merger:  merge.New(),
		decoder: decoder,
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func WithMerger(v *merge.Merger) Option {
	return func(o *Discovery) {
		o.merger = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Discover walks root once, parent folders before their children, and
// returns every resource keyed by its hierarchy key.
func (d *Discovery) Discover(root string, template document.Document) (resource.Map, *cascade.Cascade, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, errs.IO(root, err)
	}
	if !info.IsDir() {
		return nil, nil, errs.InvalidFile(root, "resource root is not a directory")
	}
	c, err := cascade.New(d.merger, template)
	if err != nil {
		return nil, nil, err
	}
	resources := resource.Map{}
	if err := d.walk(root, resource.Key{}, c, resources); err != nil {
		return nil, nil, err
	}
	d.l.Debug("discovered resources", zap.Int("resources", len(resources)), zap.Int("templates", c.Len()))
	return resources, c, nil
}

// IsDefinition reports whether filename is a resource definition
func IsDefinition(filename string) bool {
	_, ok := definitionName(filename)
	return ok
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (d *Discovery) walk(dir string, key resource.Key, c *cascade.Cascade, resources resource.Map) error {
	override := document.Document{}
	if filename, ok := document.Find(dir, TemplateName); ok {
		doc, err := document.Load(filename)
		if err != nil {
			return err
		}
		override = doc
	}
	if _, err := c.Store(key, override); err != nil {
		return errs.WithPath(dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return errs.IO(dir, err)
	}

	var definitions []string
	for _, entry := range entries {
		name := entry.Name()
		if !utf8.ValidString(name) {
			return errs.InvalidFile(filepath.Join(dir, name), "path component is not valid utf-8")
		}
		if entry.IsDir() {
			if strings.HasPrefix(name, ".") {
				continue
			}
			if err := d.walk(filepath.Join(dir, name), key.Child(name), c, resources); err != nil {
				return err
			}
			continue
		}
		// ".res.yaml" is a definition with an empty name, not a hidden file
		if IsDefinition(name) {
			definitions = append(definitions, name)
		}
	}

	for _, name := range definitions {
		r, err := d.load(dir, name, key, c)
		if err != nil {
			return err
		}
		if existing, ok := resources[r.Key.String()]; ok {
			return errs.ConfigurationAt(r.Definition, "duplicate resource %s, already defined in %q", r.Key, existing.Definition)
		}
		resources[r.Key.String()] = r
	}
	return nil
}

func (d *Discovery) load(dir, filename string, folderKey resource.Key, c *cascade.Cascade) (*resource.Resource, error) {
	definition := filepath.Join(dir, filename)
	name, _ := definitionName(filename)
	if name == "" {
		return nil, errs.InvalidFile(definition, "empty resource name")
	}
	key := folderKey.Child(name)
	if name == IndexName {
		key = folderKey
	}

	content, err := document.Load(definition)
	if err != nil {
		return nil, err
	}
	doc, err := d.merger.Merge(c.Find(folderKey), content)
	if err != nil {
		return nil, errs.InvalidFile(definition, "failed to merge with folder template: %s", err)
	}

	var header resource.Header
	if err := document.Decode(doc, &header); err != nil {
		return nil, errs.InvalidFile(definition, "malformed resource definition: %s", err)
	}
	req := Request{
		Key:        key,
		Name:       name,
		Folder:     dir,
		Definition: definition,
		Header:     header,
		Document:   doc,
	}
	payload, err := d.decoder.Decode(req)
	if err != nil {
		return nil, errs.WithPath(definition, err)
	}
	header.Kind = payload.Kind()

	d.l.Debug("discovered resource", zap.String("key", key.String()), zap.String("kind", header.Kind))
	return &resource.Resource{
		Key:        key,
		Name:       name,
		Folder:     dir,
		Definition: definition,
		Header:     header,
		Payload:    payload,
		Document:   doc,
	}, nil
}

// definitionName strips extension and suffix, "logo.res.yaml" -> "logo"
func definitionName(filename string) (string, bool) {
	if !document.IsDocument(filename) {
		return "", false
	}
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	if !strings.HasSuffix(base, DefinitionSuffix) {
		return "", false
	}
	return strings.TrimSuffix(base, DefinitionSuffix), true
}
