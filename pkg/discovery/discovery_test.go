package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/foomo/sitepress/pkg/document"
	"github.com/foomo/sitepress/pkg/errs"
	"github.com/foomo/sitepress/pkg/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testPayload struct {
	kind    string
	Quality int `json:"quality"`
}

func (p *testPayload) Kind() string {
	return p.kind
}

type testDecoder struct{}

func (testDecoder) Decode(req Request) (resource.Payload, error) {
	p := &testPayload{kind: req.Header.Kind}
	if p.kind == "" {
		p.kind = "raw"
	}
	if err := document.Decode(req.Document, p); err != nil {
		return nil, errs.InvalidFile(req.Definition, "bad payload: %s", err)
	}
	return p, nil
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		filename := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(filename), 0o700))
		require.NoError(t, os.WriteFile(filename, []byte(content), 0o600))
	}
	return dir
}

func TestDiscover(t *testing.T) {
	root := writeTree(t, map[string]string{
		"_template.yaml":             "quality: 70\n",
		"index.res.yaml":             "kind: page\ntitle: {en: Home}\n",
		"logo.res.yaml":              "kind: image\n",
		"logo.png":                   "png",
		"blog/_template.yaml":        "kind: page\nquality: 90\n",
		"blog/index.res.yaml":        "{}",
		"blog/first-post.res.json":   `{"title": {"en": "First"}}`,
		"blog/2024/summer.res.yml":   "quality: 10\n",
		"notes.txt":                  "not a resource",
		".hidden/secret.res.yaml":    "kind: raw\n",
		"blog/_template.unknown.ext": "ignored",
	})
	d := New(zaptest.NewLogger(t), testDecoder{})
	resources, c, err := d.Discover(root, document.Document{"quality": float64(50), "kind": "raw"})
	require.NoError(t, err)

	assert.Equal(t, []string{"/", "/blog", "/blog/2024/summer", "/blog/first-post", "/logo"}, resources.Keys())

	home, ok := resources.Get(resource.Key{})
	require.True(t, ok)
	assert.Equal(t, "page", home.Kind)
	assert.Equal(t, 70, home.Payload.(*testPayload).Quality)
	assert.Equal(t, "Home", home.Header.Title["en"])
	assert.Equal(t, root, home.Folder)

	post, ok := resources.Get(resource.ParseKey("/blog/first-post"))
	require.True(t, ok)
	assert.Equal(t, "page", post.Kind)
	assert.Equal(t, 90, post.Payload.(*testPayload).Quality)
	assert.Equal(t, "first-post", post.Name)

	summer, ok := resources.Get(resource.ParseKey("/blog/2024/summer"))
	require.True(t, ok)
	assert.Equal(t, "page", summer.Kind, "inherited through /blog")
	assert.Equal(t, 10, summer.Payload.(*testPayload).Quality)

	assert.Equal(t, document.Document{"quality": float64(90), "kind": "page"}, c.Find(resource.ParseKey("/blog/2024/summer")))
}

func TestDiscoverIsIdempotent(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.res.yaml":     "quality: 1\n",
		"b/c.res.yaml":   "quality: 2\n",
		"b/_template.js": "ignored",
	})
	d := New(zaptest.NewLogger(t), testDecoder{})
	first, _, err := d.Discover(root, nil)
	require.NoError(t, err)
	second, _, err := d.Discover(root, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Keys(), second.Keys())
	for _, key := range first.Keys() {
		assert.Equal(t, first[key].Document, second[key].Document)
		assert.Equal(t, first[key].Payload, second[key].Payload)
	}
}

func TestDiscoverEmptyName(t *testing.T) {
	root := writeTree(t, map[string]string{
		"blog/.res.yaml": "kind: page\n",
	})
	_, _, err := New(zaptest.NewLogger(t), testDecoder{}).Discover(root, nil)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindInvalidFile))
	assert.Contains(t, err.Error(), "empty resource name")
}

func TestDiscoverMalformed(t *testing.T) {
	root := writeTree(t, map[string]string{
		"broken.res.json": `{"kind": `,
	})
	_, _, err := New(zaptest.NewLogger(t), testDecoder{}).Discover(root, nil)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindInvalidFile))
}

func TestDiscoverDuplicateKey(t *testing.T) {
	root := writeTree(t, map[string]string{
		"blog.res.yaml":       "kind: page\n",
		"blog/index.res.yaml": "kind: page\n",
	})
	_, _, err := New(zaptest.NewLogger(t), testDecoder{}).Discover(root, nil)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindConfiguration))
}

func TestDiscoverMissingRoot(t *testing.T) {
	_, _, err := New(zaptest.NewLogger(t), testDecoder{}).Discover(filepath.Join(t.TempDir(), "absent"), nil)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindIO))
}

func TestIsDefinition(t *testing.T) {
	assert.True(t, IsDefinition("logo.res.yaml"))
	assert.True(t, IsDefinition("logo.res.JSON"))
	assert.True(t, IsDefinition(".res.yml"))
	assert.False(t, IsDefinition("logo.yaml"))
	assert.False(t, IsDefinition("logo.res"))
	assert.False(t, IsDefinition("_template.yaml"))
}
