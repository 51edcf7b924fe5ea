package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/foomo/sitepress/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseYAMLAndJSONAlike(t *testing.T) {
	y, err := Parse(".yaml", []byte("a: 1\nb:\n  c: [x, y]\n"))
	require.NoError(t, err)
	j, err := Parse(".json", []byte(`{"a": 1, "b": {"c": ["x", "y"]}}`))
	require.NoError(t, err)
	assert.Equal(t, j, y)
	assert.Equal(t, float64(1), y["a"])
}

func TestParseEmpty(t *testing.T) {
	doc, err := Parse(".yml", []byte(""))
	require.NoError(t, err)
	assert.Empty(t, doc)
}

func TestParseRejectsNonObject(t *testing.T) {
	_, err := Parse(".json", []byte(`[1, 2]`))
	require.Error(t, err)
	_, err = Parse(".toml", []byte(`a = 1`))
	require.Error(t, err)
}

func TestLoadAndFind(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("name: site\n"), 0o600))

	filename, ok := Find(dir, "config")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "config.yml"), filename)

	doc, err := Load(filename)
	require.NoError(t, err)
	assert.Equal(t, "site", doc["name"])

	_, ok = Find(dir, "missing")
	assert.False(t, ok)
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(filename, []byte(`{"a":`), 0o600))
	_, err := Load(filename)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindInvalidFile))

	_, err = Load(filepath.Join(dir, "absent.json"))
	assert.True(t, errs.Is(err, errs.KindIO))
}

func TestCloneIsDeep(t *testing.T) {
	doc := Document{"a": map[string]interface{}{"b": []interface{}{"c"}}}
	c := Clone(doc)
	c["a"].(map[string]interface{})["b"].([]interface{})[0] = "changed"
	assert.Equal(t, "c", doc["a"].(map[string]interface{})["b"].([]interface{})[0])
}

func TestDecode(t *testing.T) {
	var v struct {
		Name  string   `json:"name"`
		Items []string `json:"items"`
	}
	require.NoError(t, Decode(Document{"name": "x", "items": []interface{}{"a"}}, &v))
	assert.Equal(t, "x", v.Name)
	assert.Equal(t, []string{"a"}, v.Items)
}
