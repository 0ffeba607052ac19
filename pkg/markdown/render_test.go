package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHTML(t *testing.T) {
	src := "- **2023**: graph models [1]\n- 2021: earlier work\n\n## References\n\n[1] Paper - Ada"

	html, err := ToHTML(src)
	require.NoError(t, err)

	assert.Contains(t, html, "<ul>")
	assert.Contains(t, html, "<strong>2023</strong>")
	assert.Contains(t, html, "<h2>References</h2>")
	assert.Contains(t, html, "[1] Paper - Ada")
}

func TestToHTMLDropsRawHTML(t *testing.T) {
	html, err := ToHTML("hello <script>alert(1)</script>")
	require.NoError(t, err)
	assert.False(t, strings.Contains(html, "<script>"))
}
