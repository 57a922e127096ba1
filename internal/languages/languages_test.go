package languages

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBuiltinTable(t *testing.T) {
	reg, err := Load("")
	require.NoError(t, err)

	assert.True(t, reg.Supported("en"))
	assert.True(t, reg.Supported("fr"))
	assert.True(t, reg.Supported("zh"))
	assert.False(t, reg.Supported("auto"))
	assert.False(t, reg.Supported("xx"))
	assert.False(t, reg.Supported("EN"), "codes match exactly as declared")

	assert.Equal(t, "French", reg.Name("fr"))
	assert.Equal(t, "qq", reg.Name("qq"), "unknown codes fall back to themselves")
}

func TestListCoversEveryAcceptedTarget(t *testing.T) {
	reg, err := Load("")
	require.NoError(t, err)

	list := reg.List()
	require.NotEmpty(t, list)
	for _, lang := range list {
		assert.True(t, reg.Supported(lang.Code), "listed language %s must be accepted", lang.Code)
		assert.Len(t, lang.Targets, len(list), "every language targets every language")
	}
}

func TestListIsByteStable(t *testing.T) {
	reg, err := Load("")
	require.NoError(t, err)

	first, err := json.Marshal(reg.List())
	require.NoError(t, err)
	second, err := json.Marshal(reg.List())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestLoadOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "languages.yaml")
	content := "- code: en\n  name: English\n- code: tlh\n  name: Klingon\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	reg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, reg.Supported("tlh"))
	assert.False(t, reg.Supported("fr"), "override replaces the built-in table")
	require.Len(t, reg.List(), 2)
	assert.Equal(t, []string{"en", "tlh"}, reg.List()[0].Targets)
}

func TestLoadOverrideFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("[]\n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)

	path = filepath.Join(t.TempDir(), "dup.yaml")
	dup := "- code: en\n  name: English\n- code: en\n  name: Again\n"
	require.NoError(t, os.WriteFile(path, []byte(dup), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}
