package config

import (
	"path/filepath"

	"github.com/foomo/sitepress/pkg/document"
	"github.com/foomo/sitepress/pkg/errs"
	"github.com/foomo/sitepress/pkg/merge"
	"go.uber.org/zap"
)

const (
	// BaseName base configuration document in the input root
	BaseName = "config"
	// PublicName public overlay inside the environment folder
	PublicName = "public"
	// PrivateName private overlay inside the environment folder
	PrivateName = "private"
)

type (
	Loader struct {
		l      *zap.Logger
		merger *merge.Merger
	}
	LoaderOption func(*Loader)
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func NewLoader(l *zap.Logger, opts ...LoaderOption) *Loader {
	inst := &Loader{
		l:      l.Named("config"),
		merger: merge.New(),
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func LoaderWithMerger(v *merge.Merger) LoaderOption {
	return func(o *Loader) {
		o.merger = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Load merges the base configuration with the public and private overlays of
// the given environment and returns the validated result.
func (c *Loader) Load(input, environment string) (*Configuration, error) {
	doc, err := c.Document(input, environment)
	if err != nil {
		return nil, err
	}
	cfg := &Configuration{}
	if err := document.Decode(doc, cfg); err != nil {
		return nil, errs.ConfigurationAt(input, "failed to decode configuration: %s", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, errs.WithPath(input, err)
	}
	return cfg, nil
}

// Document returns the merged, not yet decoded configuration document
func (c *Loader) Document(input, environment string) (document.Document, error) {
	filename, ok := document.Find(input, BaseName)
	if !ok {
		return nil, errs.ConfigurationAt(input, "missing base configuration %s.{yaml,yml,json}", BaseName)
	}
	doc, err := document.Load(filename)
	if err != nil {
		return nil, err
	}
	c.l.Debug("loaded base configuration", zap.String("file", filename))

	// normalizes the base document, stripping merge directives
	doc, err = c.merger.Merge(document.Document{}, doc)
	if err != nil {
		return nil, errs.ConfigurationAt(filename, "invalid base configuration: %s", err)
	}
	if environment == "" {
		return doc, nil
	}
	envDir := filepath.Join(input, environment)
	for _, name := range []string{PublicName, PrivateName} {
		overlayFilename, ok := document.Find(envDir, name)
		if !ok {
			c.l.Debug("no overlay", zap.String("environment", environment), zap.String("overlay", name))
			continue
		}
		overlay, err := document.Load(overlayFilename)
		if err != nil {
			return nil, err
		}
		doc, err = c.merger.Merge(doc, overlay)
		if err != nil {
			return nil, errs.ConfigurationAt(overlayFilename, "failed to merge overlay: %s", err)
		}
		c.l.Debug("merged overlay", zap.String("file", overlayFilename))
	}
	return doc, nil
}

// Load loads a configuration with a default loader
func Load(l *zap.Logger, input, environment string) (*Configuration, error) {
	return NewLoader(l).Load(input, environment)
}
