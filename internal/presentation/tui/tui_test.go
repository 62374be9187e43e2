package tui_test

import (
	"bytes"
	"testing"

	"github.com/aretw0/callflow/internal/presentation/tui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner_IncludesVersion(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "v1.0.0\n")
	assert.Contains(t, buf.String(), "v1.0.0")
}

func TestRenderer_RendersMarkdown(t *testing.T) {
	render := tui.NewRenderer()
	out, err := render("# Pathway\n\n| Node | Next |\n|---|---|\n| start | end |\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Pathway")
	assert.Contains(t, out, "start")
}
