package resolve

import (
	"testing"

	"github.com/foomo/sitepress/pkg/cache"
	"github.com/foomo/sitepress/pkg/errs"
	"github.com/foomo/sitepress/pkg/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T) *Resolver {
	t.Helper()
	logo := &resource.Resource{Key: resource.ParseKey("/logo"), Name: "logo"}
	logo.Header.Title = map[string]string{"en": "Logo"}
	logo.AddUrlData(resource.DefaultTag, "en", resource.UrlData{
		URL:     "https://example.com/logo.png",
		Details: resource.ImageDetails("image/png", 400, 64, 32),
	})
	logo.AddUrlData(resource.SmallestImageTag, "en", resource.UrlData{
		URL:     "https://example.com/logo-16.png",
		Details: resource.ImageDetails("image/png", 100, 16, 8),
	})
	logo.AddUrlData(resource.DefaultTag, "de", resource.UrlData{
		URL:     "https://example.de/logo.png",
		Details: resource.ImageDetails("image/png", 400, 64, 32),
	})

	b := cache.NewBuilder()
	for _, url := range []string{"example.com/logo.png", "example.com/logo-16.png", "example.de/logo.png"} {
		require.NoError(t, b.AddResponse(url, cache.NewEntry("/logo", &cache.StaticResponse{Status: 200, Body: []byte(url)}, nil)))
	}
	return New(resource.Map{logo.Key.String(): logo}, b)
}

func TestResolveExternal(t *testing.T) {
	r := fixture(t)
	url, entry, err := r.Resolve(resource.External("https://foomo.org", nil), "en", "de")
	require.NoError(t, err)
	assert.Equal(t, "https://foomo.org", url)
	assert.Nil(t, entry)
}

func TestResolveInternal(t *testing.T) {
	r := fixture(t)
	url, entry, err := r.Resolve(resource.Internal("/logo", resource.SmallestImageTag), "en", "en")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/logo-16.png", url)
	require.NotNil(t, entry)
	assert.Equal(t, []byte("example.com/logo-16.png"), entry.Regular.Body)

	data, err := r.Data(resource.Internal("/logo", resource.SmallestImageTag), "en", "en")
	require.NoError(t, err)
	assert.Equal(t, 16, data.Details.Width)
	assert.Equal(t, 8, data.Details.Height)
}

func TestResolveLanguageFallback(t *testing.T) {
	r := fixture(t)
	url, _, err := r.Resolve(resource.Internal("/logo", resource.DefaultTag), "en", "de")
	require.NoError(t, err)
	assert.Equal(t, "https://example.de/logo.png", url)

	// no de output for the smallest image, falls back to the primary language
	url, _, err = r.Resolve(resource.Internal("/logo", resource.SmallestImageTag), "en", "de")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/logo-16.png", url)

	_, _, err = r.Resolve(resource.Internal("/logo", resource.SmallestImageTag), "fr", "de")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindConfiguration))
}

func TestResolveDeterministic(t *testing.T) {
	r := fixture(t)
	ref := resource.Internal("/logo", resource.DefaultTag)
	url1, entry1, err := r.Resolve(ref, "en", "en")
	require.NoError(t, err)
	url2, entry2, err := r.Resolve(ref, "en", "en")
	require.NoError(t, err)
	assert.Equal(t, url1, url2)
	assert.Same(t, entry1, entry2)
}

func TestResolveFailures(t *testing.T) {
	r := fixture(t)
	tests := map[string]resource.Reference{
		"missing resource": resource.Internal("/missing", resource.DefaultTag),
		"missing tag":      resource.Internal("/logo", resource.ImageWidthTag(320)),
		"redirect tag":     resource.Internal("/logo", resource.RedirectTag),
	}
	for name, ref := range tests {
		t.Run(name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				url, entry, err := r.Resolve(ref, "en", "en")
				require.Error(t, err)
				assert.True(t, errs.Is(err, errs.KindConfiguration))
				assert.Empty(t, url)
				assert.Nil(t, entry)
			})
		})
	}
}

func TestTitle(t *testing.T) {
	r := fixture(t)
	title, err := r.Title(resource.Internal("/logo", resource.DefaultTag), "en", "de")
	require.NoError(t, err)
	assert.Equal(t, "Logo", title)

	title, err = r.Title(resource.External("https://foomo.org", map[string]string{"de": "Foomo DE", "en": "Foomo"}), "en", "de")
	require.NoError(t, err)
	assert.Equal(t, "Foomo DE", title)

	_, err = r.Title(resource.External("https://foomo.org", nil), "en", "de")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindConfiguration))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "example.com/a", Key("https://example.com/a"))
	assert.Equal(t, "example.com/a", Key("http://example.com/a"))
}
