package tui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3")
	assert.Contains(t, buf.String(), "v1.2.3")
	assert.Contains(t, buf.String(), "|___/")
}

func TestNewRenderer(t *testing.T) {
	render := NewRenderer()
	out, err := render("# Solar\n\n**Key facts**")
	require.NoError(t, err)
	assert.Contains(t, out, "Solar")
	assert.Contains(t, out, "Key facts")
}
