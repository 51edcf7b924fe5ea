package resource

import (
	"sort"

	"github.com/foomo/sitepress/pkg/document"
)

// DetailsKind discriminates resolved output metadata
type DetailsKind string

const (
	DetailsGeneric DetailsKind = "generic"
	DetailsImage   DetailsKind = "image"
	DetailsVideo   DetailsKind = "video"
)

type (
	// Details resolved metadata of one output
	Details struct {
		Kind     DetailsKind `json:"kind"`
		MimeType string      `json:"mimeType"`
		Size     int64       `json:"size"`
		Width    int         `json:"width,omitempty"`
		Height   int         `json:"height,omitempty"`
	}
	// UrlData resolved url and metadata of one (resource, tag, language)
	UrlData struct {
		URL     string  `json:"url"`
		Details Details `json:"details"`
	}
	// Payload typed, kind specific resource configuration
	Payload interface {
		Kind() string
	}
	// Header fields every resource definition may carry
	Header struct {
		Kind    string            `json:"kind"`
		Path    string            `json:"path"`
		Title   map[string]string `json:"title"`
		Headers map[string]string `json:"headers"`
	}
	// Resource one buildable unit of the source tree
	Resource struct {
		Key  Key
		Name string
		// Folder input folder the definition was found in
		Folder string
		// Definition file the resource was declared in
		Definition string
		Header
		Payload Payload
		// Document merged definition, kept for diagnostics
		Document document.Document
		urlData  map[Tag]map[string]UrlData
	}
	// Map resources by key string
	Map map[string]*Resource
)

func GenericDetails(mimeType string, size int64) Details {
	return Details{Kind: DetailsGeneric, MimeType: mimeType, Size: size}
}

func ImageDetails(mimeType string, size int64, width, height int) Details {
	return Details{Kind: DetailsImage, MimeType: mimeType, Size: size, Width: width, Height: height}
}

func VideoDetails(mimeType string, size int64, width, height int) Details {
	return Details{Kind: DetailsVideo, MimeType: mimeType, Size: size, Width: width, Height: height}
}

// AddUrlData attaches a produced output. Only the dispatcher owning the
// resource calls it, lower priority data is complete before readers start.
func (r *Resource) AddUrlData(tag Tag, language string, data UrlData) {
	if r.urlData == nil {
		r.urlData = map[Tag]map[string]UrlData{}
	}
	byLanguage, ok := r.urlData[tag]
	if !ok {
		byLanguage = map[string]UrlData{}
		r.urlData[tag] = byLanguage
	}
	byLanguage[language] = data
}

// UrlData returns the output for tag and language
func (r *Resource) UrlData(tag Tag, language string) (UrlData, bool) {
	byLanguage, ok := r.urlData[tag]
	if !ok {
		return UrlData{}, false
	}
	data, ok := byLanguage[language]
	return data, ok
}

// HasTag reports whether any language produced tag
func (r *Resource) HasTag(tag Tag) bool {
	_, ok := r.urlData[tag]
	return ok
}

// Tags returns all produced tags sorted by their text form
func (r *Resource) Tags() []Tag {
	tags := make([]Tag, 0, len(r.urlData))
	for tag := range r.urlData {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		return tags[i].String() < tags[j].String()
	})
	return tags
}

// Reset drops produced outputs
func (r *Resource) Reset() {
	r.urlData = nil
}

// TitleFor returns the title in language, falling back to primary
func (r *Resource) TitleFor(primary, language string) (string, bool) {
	if t, ok := r.Header.Title[language]; ok && t != "" {
		return t, true
	}
	if t, ok := r.Header.Title[primary]; ok && t != "" {
		return t, true
	}
	return "", false
}

// Get returns the resource for key
func (m Map) Get(key Key) (*Resource, bool) {
	r, ok := m[key.String()]
	return r, ok
}

// Keys returns all keys sorted
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
