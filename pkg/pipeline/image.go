package pipeline

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/foomo/sitepress/pkg/errs"
	"github.com/foomo/sitepress/pkg/resource"
	"github.com/pkg/errors"
)

// ImageCodec decodes, resamples and encodes raster images
type ImageCodec interface {
	Decode(data []byte) (image.Image, string, error)
	Resize(img image.Image, width int) image.Image
	Encode(img image.Image, format string, quality int) ([]byte, error)
}

// NearestCodec default codec: png and jpeg with nearest neighbour resampling
type NearestCodec struct{}

func (NearestCodec) Decode(data []byte) (image.Image, string, error) {
	return image.Decode(bytes.NewReader(data))
}

func (NearestCodec) Resize(img image.Image, width int) image.Image {
	src := img.Bounds()
	if width <= 0 || width >= src.Dx() {
		return img
	}
	height := src.Dy() * width / src.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		sy := src.Min.Y + y*src.Dy()/height
		for x := 0; x < width; x++ {
			dst.Set(x, y, img.At(src.Min.X+x*src.Dx()/width, sy))
		}
	}
	return dst
}

func (NearestCodec) Encode(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	case "jpeg":
		if quality <= 0 {
			quality = jpeg.DefaultQuality
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("unsupported image format %q", format)
	}
	return buf.Bytes(), nil
}

// ------------------------------------------------------------------------------------------------
// ~ Raster
// ------------------------------------------------------------------------------------------------

// Raster png and jpeg images with optional width variants
type Raster struct {
	Widths  []int `json:"widths"`
	Quality int   `json:"quality"`
}

func (p *Raster) Kind() string                     { return "raster" }
func (p *Raster) Priority() Priority               { return PriorityLeaf }
func (p *Raster) References() []resource.Reference { return nil }

func (p *Raster) Validate() error {
	for _, w := range p.Widths {
		if w <= 0 {
			return errors.Errorf("width %d must be positive", w)
		}
	}
	if p.Quality < 0 || p.Quality > 100 {
		return errors.Errorf("quality %d out of range", p.Quality)
	}
	return nil
}

func (p *Raster) Execute(ctx *Context) ([]Output, error) {
	data, err := ctx.ReadInput()
	if err != nil {
		return nil, err
	}
	img, format, err := ctx.Images.Decode(data)
	if err != nil {
		return nil, errs.Codec(ctx.Input, err)
	}
	mimeType := "image/" + format
	ext := "." + format
	if format == "jpeg" {
		ext = ".jpg"
	}
	bounds := img.Bounds()

	original, err := ctx.NewOutput(ctx.Path(ext), mimeType, data)
	if err != nil {
		return nil, err
	}
	originalDetails := resource.ImageDetails(mimeType, int64(len(data)), bounds.Dx(), bounds.Dy())
	original.Tag(resource.DefaultTag, originalDetails)
	outputs := []Output{original}
	smallest, smallestDetails := 0, originalDetails

	widths := append([]int(nil), p.Widths...)
	sort.Ints(widths)
	for _, w := range widths {
		if w >= bounds.Dx() {
			// no upscaling, the original serves the width
			outputs[0].Tag(resource.ImageWidthTag(w), originalDetails)
			continue
		}
		if _, done := outputs[len(outputs)-1].Tags[resource.ImageWidthTag(w)]; done {
			continue
		}
		resized := ctx.Images.Resize(img, w)
		body, err := ctx.Images.Encode(resized, format, p.Quality)
		if err != nil {
			return nil, errs.Codec(ctx.Input, err)
		}
		out, err := ctx.NewOutput(WithExt(ctx.Stem, "")+"-"+strconv.Itoa(w)+"w"+ext, mimeType, body)
		if err != nil {
			return nil, err
		}
		details := resource.ImageDetails(mimeType, int64(len(body)), resized.Bounds().Dx(), resized.Bounds().Dy())
		out.Tag(resource.ImageWidthTag(w), details)
		outputs = append(outputs, out)
		if details.Width < smallestDetails.Width {
			smallest, smallestDetails = len(outputs)-1, details
		}
	}
	outputs[smallest].Tag(resource.SmallestImageTag, smallestDetails)
	return outputs, nil
}

// ------------------------------------------------------------------------------------------------
// ~ GIF
// ------------------------------------------------------------------------------------------------

// GIF animated images, passed through
type GIF struct{}

func (p *GIF) Kind() string                     { return "gif" }
func (p *GIF) Priority() Priority               { return PriorityLeaf }
func (p *GIF) References() []resource.Reference { return nil }

func (p *GIF) Execute(ctx *Context) ([]Output, error) {
	data, err := ctx.ReadInput()
	if err != nil {
		return nil, err
	}
	cfg, err := gif.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errs.Codec(ctx.Input, err)
	}
	out, err := ctx.NewOutput(ctx.Path(".gif"), "image/gif", data)
	if err != nil {
		return nil, err
	}
	details := resource.ImageDetails("image/gif", int64(len(data)), cfg.Width, cfg.Height)
	out.Tag(resource.DefaultTag, details).Tag(resource.SmallestImageTag, details)
	return []Output{out}, nil
}

// ------------------------------------------------------------------------------------------------
// ~ SVG
// ------------------------------------------------------------------------------------------------

// SVG vector images, dimensions are read from the root element
type SVG struct{}

func (p *SVG) Kind() string                     { return "svg" }
func (p *SVG) Priority() Priority               { return PriorityLeaf }
func (p *SVG) References() []resource.Reference { return nil }

func (p *SVG) Execute(ctx *Context) ([]Output, error) {
	data, err := ctx.ReadInput()
	if err != nil {
		return nil, err
	}
	width, height, err := svgSize(data)
	if err != nil {
		return nil, errs.Codec(ctx.Input, err)
	}
	out, err := ctx.NewOutput(ctx.Path(".svg"), "image/svg+xml", data)
	if err != nil {
		return nil, err
	}
	details := resource.ImageDetails("image/svg+xml", int64(len(data)), width, height)
	out.Tag(resource.DefaultTag, details).Tag(resource.SmallestImageTag, details)
	return []Output{out}, nil
}

// svgSize reads width and height, falling back to the view box
func svgSize(data []byte) (int, int, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return 0, 0, errors.New("missing svg root element")
		} else if err != nil {
			return 0, 0, errors.Wrap(err, "malformed svg")
		}
		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "svg" {
			return 0, 0, errors.Errorf("root element is %q, expected svg", start.Name.Local)
		}
		var width, height, viewBox string
		for _, attr := range start.Attr {
			switch attr.Name.Local {
			case "width":
				width = attr.Value
			case "height":
				height = attr.Value
			case "viewBox":
				viewBox = attr.Value
			}
		}
		w, wok := svgLength(width)
		h, hok := svgLength(height)
		if wok && hok {
			return w, h, nil
		}
		var x, y, vw, vh float64
		if _, err := fmt.Sscan(strings.ReplaceAll(viewBox, ",", " "), &x, &y, &vw, &vh); err != nil {
			return 0, 0, errors.New("svg declares neither width/height nor a view box")
		}
		return int(vw + 0.5), int(vh + 0.5), nil
	}
}

func svgLength(v string) (int, bool) {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return int(f + 0.5), true
}
