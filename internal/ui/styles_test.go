package ui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestANSIColor(t *testing.T) {
	tests := []struct {
		code     string
		expected lipgloss.Color
	}{
		{"30", "0"},
		{"36", "6"},
		{"90", "8"},
		{"97", "15"},
		{"38", "38"},
		{"212", "212"},
		{"#ff00ff", "#ff00ff"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, ansiColor(tt.code))
		})
	}
}

func TestConfigPalette(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("color_header", "31")
	viper.Set("color_selected", "#202020")

	p := configPalette()
	assert.Equal(t, lipgloss.Color("1"), p.header)
	assert.Equal(t, lipgloss.Color("#202020"), p.selected)
	assert.Equal(t, defaultPalette().path, p.path)
}

func TestNewTheme(t *testing.T) {
	p := defaultPalette()
	th := newTheme(p)

	assert.Equal(t, p.header, th.file.GetForeground())
	assert.Equal(t, p.header, th.previewFile.GetForeground())
	assert.True(t, th.previewFile.GetBold())
	assert.Equal(t, p.path, th.previewFolder.GetForeground())
	assert.Equal(t, p.border, th.divider.GetForeground())
	assert.Equal(t, p.selected, th.selected(th.dim).GetBackground())
}
