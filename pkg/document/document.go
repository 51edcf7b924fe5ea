package document

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/foomo/sitepress/pkg/errs"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Extensions supported document file extensions in lookup order
var Extensions = []string{".yaml", ".yml", ".json"}

// Document a generic configuration document
type Document = map[string]interface{}

// IsDocument reports whether filename has a supported document extension
func IsDocument(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Find returns the first existing file base + extension in dir
func Find(dir, base string) (string, bool) {
	for _, ext := range Extensions {
		filename := filepath.Join(dir, base+ext)
		if info, err := os.Stat(filename); err == nil && !info.IsDir() {
			return filename, true
		}
	}
	return "", false
}

// Load reads and parses a yaml or json document
func Load(filename string) (Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errs.IO(filename, err)
	}
	doc, err := Parse(filepath.Ext(filename), data)
	if err != nil {
		return nil, errs.InvalidFile(filename, "malformed document: %s", err)
	}
	return doc, nil
}

// Parse parses data by extension. Numbers and nested maps are normalized to
// their json representation so yaml and json sources merge alike.
func Parse(ext string, data []byte) (Document, error) {
	var raw interface{}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("unsupported document extension %q", ext)
	}
	if raw == nil {
		return Document{}, nil
	}
	normalized, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	doc, ok := normalized.(Document)
	if !ok {
		return nil, errors.Errorf("document root must be an object, got %T", raw)
	}
	return doc, nil
}

// Normalize round trips v through json
func Normalize(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to normalize document")
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, "failed to normalize document")
	}
	return out, nil
}

// Decode deserializes doc into v
func Decode(doc Document, v interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to encode document")
	}
	return json.Unmarshal(data, v)
}

// Clone deep copies doc
func Clone(doc Document) Document {
	if doc == nil {
		return Document{}
	}
	return cloneValue(doc).(Document)
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, child := range t {
			out[k] = cloneValue(child)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, child := range t {
			out[i] = cloneValue(child)
		}
		return out
	default:
		return t
	}
}
