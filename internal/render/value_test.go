package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAny_ConvertsSupportedShapes(t *testing.T) {
	data, err := FromAny(map[string]any{
		"order": "X",
		"count": 2,
		"ratio": 0.5,
		"ok":    true,
		"return_address": map[string]any{
			"city": "Town",
		},
		"labels": map[string]string{"title": "Return Label"},
	})
	require.NoError(t, err)

	assert.Equal(t, "X 2 0.5 true Town Return Label",
		Substitute("{{order}} {{count}} {{ratio}} {{ok}} {{return_address.city}} {{labels.title}}", data))
	assert.Equal(t, KindMap, data["return_address"].Kind())
}

func TestFromAny_RejectsUnsupportedShapes(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		path string
	}{
		{"slice", map[string]any{"items": []string{"a"}}, `"items"`},
		{"nil", map[string]any{"x": nil}, `"x"`},
		{"nested struct", map[string]any{"a": map[string]any{"b": struct{}{}}}, `"a.b"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromAny(tc.in)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.path)
		})
	}
}

func TestValue_KindsAndText(t *testing.T) {
	var undef Value
	assert.False(t, undef.Defined())
	assert.Equal(t, "undefined", undef.Kind().String())

	_, ok := Map(Data{}).Text()
	assert.False(t, ok)

	text, ok := Number(-1.25).Text()
	assert.True(t, ok)
	assert.Equal(t, "-1.25", text)

	_, ok = String("x").Lookup("y")
	assert.False(t, ok)
}
