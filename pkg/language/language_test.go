package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"tag", "hi", "Hindi"},
		{"region tag", "fr-FR", "French"},
		{"display name", "Malayalam", "Malayalam"},
		{"case insensitive", "EN", "English"},
		{"unknown passes through", "Klingon", "Klingon"},
		{"empty defaults to English", "  ", "English"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Name(tt.value))
		})
	}
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("ml"))
	assert.True(t, IsSupported("en-US"))
	assert.False(t, IsSupported("de"))
	assert.False(t, IsSupported(""))
}
