package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTML(t *testing.T) {
	out := HTML("# Launch Notes\n\nShip **today**.\n\n- one\n- two\n")
	assert.Contains(t, out, `<h1 id="launch-notes">Launch Notes</h1>`)
	assert.Contains(t, out, "<strong>today</strong>")
	assert.Contains(t, out, "<li>one</li>")
}

func TestHTMLSanitizes(t *testing.T) {
	out := HTML("hello <script>alert(1)</script> [x](javascript:alert(1))")
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "javascript:")
	assert.Contains(t, out, "hello")
}

func TestHTMLEmpty(t *testing.T) {
	assert.Empty(t, HTML(""))
}
