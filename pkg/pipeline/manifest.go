package pipeline

import (
	"strconv"

	"github.com/foomo/sitepress/pkg/resource"
	"github.com/foomo/sitepress/pkg/utils"
	"github.com/pkg/errors"
)

type (
	// Manifest web app manifest with icons resolved from image resources
	Manifest struct {
		Name            string               `json:"name"`
		ShortName       string               `json:"short_name"`
		Description     string               `json:"description"`
		StartURL        *resource.Reference  `json:"start_url"`
		Display         string               `json:"display"`
		ThemeColor      string               `json:"theme_color"`
		BackgroundColor string               `json:"background_color"`
		Icons           []resource.Reference `json:"icons"`
	}
	manifestIcon struct {
		Src   string `json:"src"`
		Sizes string `json:"sizes,omitempty"`
		Type  string `json:"type,omitempty"`
	}
	manifestDocument struct {
		Name            string         `json:"name,omitempty"`
		ShortName       string         `json:"short_name,omitempty"`
		Description     string         `json:"description,omitempty"`
		Lang            string         `json:"lang"`
		StartURL        string         `json:"start_url"`
		Display         string         `json:"display,omitempty"`
		ThemeColor      string         `json:"theme_color,omitempty"`
		BackgroundColor string         `json:"background_color,omitempty"`
		Icons           []manifestIcon `json:"icons,omitempty"`
	}
)

func (p *Manifest) Kind() string       { return "manifest" }
func (p *Manifest) Priority() Priority { return PriorityDependent }

func (p *Manifest) References() []resource.Reference {
	refs := append([]resource.Reference(nil), p.Icons...)
	if p.StartURL != nil {
		refs = append(refs, *p.StartURL)
	}
	return refs
}

func (p *Manifest) Validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.StartURL != nil && (!p.StartURL.IsExternal() || !utils.IsAbsoluteURL(p.StartURL.External)) {
		return errors.New("start_url must be an absolute url, pages are built after the manifest")
	}
	return nil
}

func (p *Manifest) Execute(ctx *Context) ([]Output, error) {
	doc := manifestDocument{
		Name:            p.Name,
		ShortName:       p.ShortName,
		Description:     p.Description,
		Lang:            ctx.Language.Current.Tag.String(),
		StartURL:        ctx.URL("/"),
		Display:         p.Display,
		ThemeColor:      p.ThemeColor,
		BackgroundColor: p.BackgroundColor,
	}
	if p.StartURL != nil {
		doc.StartURL = p.StartURL.External
	}
	for _, ref := range p.Icons {
		data, err := ctx.Data(ref)
		if err != nil {
			return nil, err
		}
		icon := manifestIcon{Src: data.URL, Type: data.Details.MimeType}
		if data.Details.Width > 0 && data.Details.Height > 0 {
			icon.Sizes = strconv.Itoa(data.Details.Width) + "x" + strconv.Itoa(data.Details.Height)
		}
		doc.Icons = append(doc.Icons, icon)
	}
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode manifest")
	}
	const contentType = "application/manifest+json"
	out, err := ctx.NewOutput(ctx.Path(".webmanifest"), contentType, body)
	if err != nil {
		return nil, err
	}
	out.Tag(resource.DefaultTag, resource.GenericDetails(contentType, int64(len(body))))
	return []Output{out}, nil
}
