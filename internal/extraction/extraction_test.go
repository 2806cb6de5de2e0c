package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/williampepple1/pr-snapshot/internal/config"
)

const conversationHTML = `<html><head><title>Fix bug · Pull Request #42</title></head><body>
<span class="State State--merged">
  Merged
</span>
<div class="timeline-comment">first</div>
<div class="timeline-comment">second</div>
</body></html>`

func TestExtractHTML(t *testing.T) {
	e := NewExtractor(&config.ExtractionConfig{Selectors: map[string]string{
		"state":    "span.State",
		"comments": "div.timeline-comment",
		"missing":  "div.absent",
	}})

	got, err := e.ExtractHTML(conversationHTML)
	require.NoError(t, err)

	assert.Equal(t, "Merged", got["state"])
	assert.Equal(t, []string{"first", "second"}, got["comments"])
	assert.NotContains(t, got, "missing")
}

func TestEnabled(t *testing.T) {
	assert.False(t, NewExtractor(&config.ExtractionConfig{}).Enabled())
	assert.False(t, NewExtractor(nil).Enabled())

	var nilExtractor *Extractor
	assert.False(t, nilExtractor.Enabled())

	assert.True(t, NewExtractor(&config.ExtractionConfig{Selectors: map[string]string{"t": "title"}}).Enabled())
}
