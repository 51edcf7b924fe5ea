package cascade

import (
	"sync"

	"github.com/foomo/sitepress/pkg/document"
	"github.com/foomo/sitepress/pkg/errs"
	"github.com/foomo/sitepress/pkg/merge"
	"github.com/foomo/sitepress/pkg/resource"
)

// Cascade effective resource templates per folder, keyed by folder key.
// Lookups walk prefixes, not the tree, so they cost O(depth).
type Cascade struct {
	merger    *merge.Merger
	templates map[string]document.Document
	lock      sync.RWMutex
}

// New creates a cascade with root as the template of the empty key
func New(merger *merge.Merger, root document.Document) (*Cascade, error) {
	if merger == nil {
		merger = merge.New()
	}
	normalized, err := merger.Merge(document.Document{}, root)
	if err != nil {
		return nil, errs.Configuration("invalid root template: %s", err)
	}
	return &Cascade{
		merger: merger,
		templates: map[string]document.Document{
			resource.Key{}.String(): normalized,
		},
	}, nil
}

// Find returns the template of the nearest enclosing folder
func (c *Cascade) Find(key resource.Key) document.Document {
	c.lock.RLock()
	defer c.lock.RUnlock()
	for _, prefix := range key.Prefixes() {
		if template, ok := c.templates[prefix.String()]; ok {
			return template
		}
	}
	// the root is always present
	return c.templates[resource.Key{}.String()]
}

// Store merges override onto the parent template and records the result
// for key. The parent folder must have been processed before.
func (c *Cascade) Store(key resource.Key, override document.Document) (document.Document, error) {
	parentKey, ok := key.Parent()
	if !ok {
		parentKey = key
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	parent, ok := c.templates[parentKey.String()]
	if !ok {
		return nil, errs.Configuration("template for %s stored before its parent %s", key, parentKey)
	}
	template, err := c.merger.Merge(parent, override)
	if err != nil {
		return nil, errs.Configuration("failed to merge template for %s: %s", key, err)
	}
	c.templates[key.String()] = template
	return template, nil
}

// Len number of stored templates
func (c *Cascade) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.templates)
}
