package label

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shippedAssets = "../../assets"

func TestShippedTemplate_UsesOnlyKnownKeys(t *testing.T) {
	src, err := os.ReadFile(filepath.Join(shippedAssets, TemplateFile))
	require.NoError(t, err)

	data := BuildTemplateData(sampleRequest("en"), Logo{DataURI: FallbackLogoDataURI})
	used := map[string]bool{}
	for _, m := range regexp.MustCompile(`\{\{(\w+(?:\.\w+)*)\}\}`).FindAllStringSubmatch(string(src), -1) {
		used[m[1]] = true
		_, ok := data[m[1]]
		assert.True(t, ok, "template placeholder %q has no data", m[1])
	}
	for key := range data {
		assert.True(t, used[key], "data key %q is never rendered", key)
	}
}

func TestShippedLogo_IsPNG(t *testing.T) {
	logo := LoadLogo(os.ReadFile, filepath.Join(shippedAssets, LogoFile))
	require.False(t, logo.Fallback, "shipped logo must load: %v", logo.Err)
	assert.NotEqual(t, FallbackLogoDataURI, logo.DataURI)
	assert.Regexp(t, `^data:image/png;base64,iVBORw0KGgo`, logo.DataURI)
}
