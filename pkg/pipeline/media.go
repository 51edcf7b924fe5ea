package pipeline

import (
	"mime"
	"path/filepath"
	"sort"
	"strings"

	"github.com/foomo/sitepress/pkg/resource"
	"github.com/pkg/errors"
	"golang.org/x/text/language"
)

var mediaTypes = map[string]string{
	".woff2": "font/woff2",
	".woff":  "font/woff",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".mp3":   "audio/mpeg",
	".ogg":   "audio/ogg",
	".opus":  "audio/ogg; codecs=opus",
	".m4a":   "audio/mp4",
	".mp4":   "video/mp4",
	".webm":  "video/webm",
	".vtt":   "text/vtt; charset=utf-8",
}

// mediaType returns the content type of filename by extension
func mediaType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := mediaTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// passthrough serves the input unchanged under the stem with the input extension
func passthrough(ctx *Context, contentType string) (Output, error) {
	data, err := ctx.ReadInput()
	if err != nil {
		return Output{}, err
	}
	if contentType == "" {
		contentType = mediaType(ctx.Input)
	}
	out, err := ctx.NewOutput(ctx.Path(strings.ToLower(filepath.Ext(ctx.Input))), contentType, data)
	if err != nil {
		return Output{}, err
	}
	out.Tag(resource.DefaultTag, resource.GenericDetails(contentType, int64(len(data))))
	return out, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Font
// ------------------------------------------------------------------------------------------------

// Font web fonts, passed through
type Font struct{}

func (p *Font) Kind() string                     { return "font" }
func (p *Font) Priority() Priority               { return PriorityLeaf }
func (p *Font) References() []resource.Reference { return nil }

func (p *Font) Execute(ctx *Context) ([]Output, error) {
	out, err := passthrough(ctx, "")
	if err != nil {
		return nil, err
	}
	return []Output{out}, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Audio
// ------------------------------------------------------------------------------------------------

// Audio files, passed through
type Audio struct{}

func (p *Audio) Kind() string                     { return "audio" }
func (p *Audio) Priority() Priority               { return PriorityLeaf }
func (p *Audio) References() []resource.Reference { return nil }

func (p *Audio) Execute(ctx *Context) ([]Output, error) {
	out, err := passthrough(ctx, "")
	if err != nil {
		return nil, err
	}
	return []Output{out}, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Video
// ------------------------------------------------------------------------------------------------

// Video files with declared dimensions and per language text tracks
type Video struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	// Tracks webvtt files by language code, relative to the definition
	Tracks map[string]string `json:"tracks"`
}

func (p *Video) Kind() string                     { return "video" }
func (p *Video) Priority() Priority               { return PriorityLeaf }
func (p *Video) References() []resource.Reference { return nil }

func (p *Video) Validate() error {
	if p.Width < 0 || p.Height < 0 {
		return errors.New("dimensions must not be negative")
	}
	for code := range p.Tracks {
		if _, err := language.Parse(code); err != nil {
			return errors.Wrapf(err, "track language %q", code)
		}
	}
	return nil
}

func (p *Video) Execute(ctx *Context) ([]Output, error) {
	out, err := passthrough(ctx, "")
	if err != nil {
		return nil, err
	}
	out.Tag(resource.DefaultTag, resource.VideoDetails(out.ContentType, int64(len(out.Body)), p.Width, p.Height))
	outputs := []Output{out}

	codes := make([]string, 0, len(p.Tracks))
	for code := range p.Tracks {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		data, _, err := ctx.ReadFile(p.Tracks[code])
		if err != nil {
			return nil, err
		}
		contentType := mediaTypes[".vtt"]
		track, err := ctx.NewOutput(WithExt(ctx.Stem, "")+"."+code+".vtt", contentType, data)
		if err != nil {
			return nil, err
		}
		track.Tag(resource.VideoTrackTag(code), resource.GenericDetails(contentType, int64(len(data))))
		outputs = append(outputs, track)
	}
	return outputs, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Raw
// ------------------------------------------------------------------------------------------------

// Raw any input file, passed through
type Raw struct {
	ContentType string `json:"content_type"`
	// Root serves the file at the host root, e.g. /favicon.ico
	Root bool `json:"root"`
}

func (p *Raw) Kind() string                     { return "raw" }
func (p *Raw) Priority() Priority               { return PriorityLeaf }
func (p *Raw) References() []resource.Reference { return nil }

func (p *Raw) Execute(ctx *Context) ([]Output, error) {
	out, err := passthrough(ctx, p.ContentType)
	if err != nil {
		return nil, err
	}
	out.Root = p.Root
	return []Output{out}, nil
}
