package resource

import (
	"strings"

	"github.com/foomo/sitepress/pkg/utils"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Reference points to an external url or to an output of another resource
type Reference struct {
	// External absolute url, empty for internal references
	External string
	// Titles per language titles of an external reference
	Titles map[string]string
	// Resource key of the referenced resource
	Resource Key
	Tag      Tag
}

type referenceJSON struct {
	URL      string            `json:"url,omitempty"`
	Title    map[string]string `json:"title,omitempty"`
	Resource string            `json:"resource,omitempty"`
	Tag      *Tag              `json:"tag,omitempty"`
}

func Internal(path string, tag Tag) Reference {
	return Reference{Resource: ParseKey(path), Tag: tag}
}

func External(url string, titles map[string]string) Reference {
	return Reference{External: url, Titles: titles}
}

// ParseReference parses "https://…", "/path" or "/path#tag"
func ParseReference(s string) (Reference, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Reference{}, errors.New("empty reference")
	}
	if utils.IsExternal(s) {
		if strings.HasPrefix(s, "//") {
			return Reference{}, errors.Errorf("external reference %q must carry a scheme", s)
		}
		return External(s, nil), nil
	}
	path, rawTag, _ := strings.Cut(s, "#")
	if !strings.HasPrefix(path, PathSeparator) {
		return Reference{}, errors.Errorf("internal reference %q must start with %s", s, PathSeparator)
	}
	tag, err := ParseTag(rawTag)
	if err != nil {
		return Reference{}, errors.Wrapf(err, "invalid reference %q", s)
	}
	return Internal(path, tag), nil
}

func (r Reference) IsExternal() bool {
	return r.External != ""
}

func (r Reference) String() string {
	if r.IsExternal() {
		return r.External
	}
	if r.Tag.Kind == "" || r.Tag == DefaultTag {
		return r.Resource.String()
	}
	return r.Resource.String() + "#" + r.Tag.String()
}

func (r Reference) MarshalJSON() ([]byte, error) {
	if r.IsExternal() && len(r.Titles) > 0 {
		return json.Marshal(referenceJSON{URL: r.External, Title: r.Titles})
	}
	return json.Marshal(r.String())
}

func (r *Reference) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		ref, err := ParseReference(s)
		if err != nil {
			return err
		}
		*r = ref
		return nil
	}
	var raw referenceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "reference must be a string or an object")
	}
	switch {
	case raw.URL != "" && raw.Resource != "":
		return errors.New("reference must not declare both url and resource")
	case raw.URL != "":
		if !utils.IsExternal(raw.URL) || strings.HasPrefix(raw.URL, "//") {
			return errors.Errorf("reference url %q must be absolute", raw.URL)
		}
		*r = External(raw.URL, raw.Title)
	case raw.Resource != "":
		tag := DefaultTag
		if raw.Tag != nil {
			tag = *raw.Tag
		}
		*r = Internal(raw.Resource, tag)
	default:
		return errors.New("reference requires url or resource")
	}
	return nil
}
