package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/foomo/sitepress/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeFile(t *testing.T, filename, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(filename), 0o700))
	require.NoError(t, os.WriteFile(filename, []byte(content), 0o600))
}

const baseConfig = `
localization:
  primary: en
  languages:
    en:
      name: English
      host: example.com
      country: US
    de:
      name: Deutsch
      host: example.de
      base_path: /de
template:
  headers:
    Cache-Control: public, max-age=60
headers:
  X-Frame-Options: DENY
`

func TestLoadBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yaml"), baseConfig)

	cfg, err := Load(zaptest.NewLogger(t), dir, "")
	require.NoError(t, err)
	assert.Equal(t, "en", cfg.Localization.Primary)
	assert.Equal(t, []string{"en", "de"}, cfg.Localization.Codes())
	en := cfg.Localization.PrimaryLanguage()
	assert.Equal(t, "en", en.Code)
	assert.Equal(t, "/", en.BasePath)
	assert.Equal(t, "https://example.com/about/", en.URL("/about/"))
	de := cfg.Localization.Languages["de"]
	assert.Equal(t, "example.de/de/about/", de.Key("about/"))
	assert.Equal(t, "de", de.Tag.String())
	assert.Equal(t, "DENY", cfg.Headers["X-Frame-Options"])
	assert.False(t, cfg.TLS.Enabled())
}

func TestLoadOverlays(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yaml"), baseConfig)
	writeFile(t, filepath.Join(dir, "staging", "public.yaml"), `
localization:
  languages:
    en: {host: staging.example.com}
redirect: {enabled: true}
`)
	writeFile(t, filepath.Join(dir, "staging", "private.json"), `{
  "tls": {"certificate": "/etc/cert.pem", "key": "/etc/key.pem"},
  "localization": {"languages": {"en": {"host": "private.example.com"}}}
}`)

	cfg, err := Load(zaptest.NewLogger(t), dir, "staging")
	require.NoError(t, err)
	assert.Equal(t, "private.example.com", cfg.Localization.PrimaryLanguage().Host)
	assert.Equal(t, "English", cfg.Localization.PrimaryLanguage().Name)
	assert.True(t, cfg.Redirect.Enabled)
	assert.True(t, cfg.TLS.Enabled())

	// an environment without overlays is the base configuration
	cfg, err = Load(zaptest.NewLogger(t), dir, "production")
	require.NoError(t, err)
	assert.Equal(t, "example.com", cfg.Localization.PrimaryLanguage().Host)
}

func TestLoadIDNAHost(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yaml"), `
localization:
  primary: de
  languages:
    de: {host: bücher.example}
`)
	cfg, err := Load(zaptest.NewLogger(t), dir, "")
	require.NoError(t, err)
	assert.Equal(t, "xn--bcher-kva.example", cfg.Localization.PrimaryLanguage().Host)
}

func TestLoadFailures(t *testing.T) {
	tests := map[string]string{
		"missing primary entry": `
localization:
  primary: fr
  languages:
    en: {host: example.com}
`,
		"missing host": `
localization:
  primary: en
  languages:
    en: {name: English}
`,
		"bad base path": `
localization:
  primary: en
  languages:
    en: {host: example.com, base_path: en}
`,
		"invalid language": `
localization:
  primary: not a language
  languages:
    not a language: {host: example.com}
`,
		"mistyped field": `
localization:
  primary: [en]
`,
		"half tls": `
localization:
  primary: en
  languages:
    en: {host: example.com}
tls: {certificate: cert.pem}
`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, "config.yaml"), content)
			_, err := Load(zaptest.NewLogger(t), dir, "")
			require.Error(t, err)
			assert.True(t, errs.Is(err, errs.KindConfiguration), err.Error())
		})
	}
}

func TestLoadMissingBase(t *testing.T) {
	_, err := Load(zaptest.NewLogger(t), t.TempDir(), "")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindConfiguration))
}
