package resource

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// TagKind discriminates resource tags
type TagKind string

const (
	TagDefault       TagKind = "default"
	TagSmallestImage TagKind = "smallest_image"
	TagImageWidth    TagKind = "image_width"
	TagRedirect      TagKind = "redirect"
	TagAMP           TagKind = "amp"
	TagPJAX          TagKind = "pjax"
	TagVideoTrack    TagKind = "video_track"
)

// Tag selects one output of a possibly multi output resource
type Tag struct {
	Kind     TagKind
	Width    int
	Language string
}

var (
	DefaultTag       = Tag{Kind: TagDefault}
	SmallestImageTag = Tag{Kind: TagSmallestImage}
	RedirectTag      = Tag{Kind: TagRedirect}
	AMPTag           = Tag{Kind: TagAMP}
	PJAXTag          = Tag{Kind: TagPJAX}
)

func ImageWidthTag(width int) Tag {
	return Tag{Kind: TagImageWidth, Width: width}
}

func VideoTrackTag(language string) Tag {
	return Tag{Kind: TagVideoTrack, Language: language}
}

// ParseTag parses the text form, e.g. "image_width:320"
func ParseTag(s string) (Tag, error) {
	if s == "" {
		return DefaultTag, nil
	}
	name, arg, hasArg := strings.Cut(s, ":")
	switch kind := TagKind(name); kind {
	case TagDefault, TagSmallestImage, TagRedirect, TagAMP, TagPJAX:
		if hasArg {
			return Tag{}, errors.Errorf("tag %q does not take an argument", name)
		}
		return Tag{Kind: kind}, nil
	case TagImageWidth:
		width, err := strconv.Atoi(arg)
		if err != nil || width <= 0 {
			return Tag{}, errors.Errorf("invalid image width in tag %q", s)
		}
		return ImageWidthTag(width), nil
	case TagVideoTrack:
		if arg == "" {
			return Tag{}, errors.Errorf("missing language in tag %q", s)
		}
		return VideoTrackTag(arg), nil
	default:
		return Tag{}, errors.Errorf("unknown tag %q", s)
	}
}

func (t Tag) String() string {
	switch t.Kind {
	case TagImageWidth:
		return string(t.Kind) + ":" + strconv.Itoa(t.Width)
	case TagVideoTrack:
		return string(t.Kind) + ":" + t.Language
	case "":
		return string(TagDefault)
	default:
		return string(t.Kind)
	}
}

func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tag) UnmarshalText(text []byte) error {
	tag, err := ParseTag(string(text))
	if err != nil {
		return err
	}
	*t = tag
	return nil
}
