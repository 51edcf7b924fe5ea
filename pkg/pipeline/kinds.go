package pipeline

// Kinds returns every built in kind
func Kinds() []Kind {
	return []Kind{
		{Name: "raster", Extensions: []string{".png", ".jpg", ".jpeg"}, Input: InputRequired, New: func() Pipeline { return &Raster{} }},
		{Name: "gif", Extensions: []string{".gif"}, Input: InputRequired, New: func() Pipeline { return &GIF{} }},
		{Name: "svg", Extensions: []string{".svg"}, Input: InputRequired, New: func() Pipeline { return &SVG{} }},
		{Name: "font", Extensions: []string{".woff2", ".woff", ".ttf", ".otf"}, Input: InputRequired, New: func() Pipeline { return &Font{} }},
		{Name: "audio", Extensions: []string{".mp3", ".ogg", ".opus", ".m4a"}, Input: InputRequired, New: func() Pipeline { return &Audio{} }},
		{Name: "video", Extensions: []string{".mp4", ".webm"}, Input: InputRequired, New: func() Pipeline { return &Video{} }},
		{Name: "raw", Input: InputRequired, New: func() Pipeline { return &Raw{} }},
		{Name: "css", Extensions: []string{".css"}, Input: InputRequired, New: func() Pipeline { return &CSS{} }},
		{Name: "manifest", New: func() Pipeline { return &Manifest{} }},
		{Name: "page", Extensions: []string{".html", ".tmpl"}, Input: InputRequired, New: func() Pipeline { return &Page{} }},
		{Name: "sitemap", New: func() Pipeline { return &SitemapIndex{} }},
		{Name: "rss", New: func() Pipeline { return &RSS{} }},
		{Name: "robots", New: func() Pipeline { return &Robots{} }},
		{Name: "redirect", New: func() Pipeline { return &Redirect{} }},
	}
}
