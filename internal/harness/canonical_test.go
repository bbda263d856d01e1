package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{
		"zeta":  int64(1),
		"alpha": []any{true, nil, "x"},
		"mid":   map[string]any{"b": 2, "a": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":[true,null,"x"],"mid":{"a":1,"b":2},"zeta":1}`, string(data))
}

func TestMarshalCanonical_Strings(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"html not escaped", "<a&b>", `"<a&b>"`},
		{"nfc normalized", "e\u0301", "\"\u00e9\""},
		{"line separator literal", "a\u2028b", "\"a\u2028b\""},
		{"escaped backslash kept", `\u2028`, `"\\u2028"`},
		{"control escaped", "a\nb", `"a\nb"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalCanonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestMarshalCanonical_Numbers(t *testing.T) {
	data, err := MarshalCanonical([]any{3, int64(-4), float64(5)})
	require.NoError(t, err)
	assert.Equal(t, `[3,-4,5]`, string(data))

	_, err = MarshalCanonical(1.5)
	assert.Error(t, err)
}

func TestMarshalCanonical_RejectsUnsupportedTypes(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"k": struct{}{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `value for key "k"`)
}
