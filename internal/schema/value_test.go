package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	text := Column{Name: "c", Type: TypeText}
	blob := Column{Name: "c", Type: TypeBlob}
	integer := Column{Name: "c", Type: TypeInteger}
	boolean := Column{Name: "c", Type: TypeBoolean}
	float := Column{Name: "c", Type: TypeReal}

	assert.Equal(t, "abc", text.Normalize([]byte("abc")))
	assert.Equal(t, []byte("abc"), blob.Normalize("abc"))
	assert.Equal(t, int64(5), integer.Normalize(5))
	assert.Equal(t, int64(3), integer.Normalize(float64(3)))
	assert.Equal(t, int64(1), boolean.Normalize(true))
	assert.Equal(t, int64(0), boolean.Normalize(false))
	assert.Equal(t, float64(2), float.Normalize(int64(2)))
	assert.Nil(t, text.Normalize(nil))
}

func TestEqual(t *testing.T) {
	tests := []struct {
		a, b any
		want bool
	}{
		{nil, nil, true},
		{nil, int64(0), false},
		{"", nil, false},
		{int64(1), int64(1), true},
		{int64(1), float64(1), true},
		{float64(1.5), int64(1), false},
		{"a", "a", true},
		{"a", []byte("a"), true},
		{[]byte{1, 2}, []byte{1, 2}, true},
		{[]byte{1, 2}, []byte{1}, false},
		{"a", int64(1), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Equal(tt.a, tt.b), "Equal(%#v, %#v)", tt.a, tt.b)
	}
}
