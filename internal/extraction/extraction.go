package extraction

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/williampepple1/pr-snapshot/internal/config"
)

// Extractor pulls named values out of a rendered pull request page
type Extractor struct {
	Config *config.ExtractionConfig
}

// NewExtractor creates a new data extractor
func NewExtractor(config *config.ExtractionConfig) *Extractor {
	return &Extractor{
		Config: config,
	}
}

// Enabled reports whether any selector is configured
func (e *Extractor) Enabled() bool {
	return e != nil && e.Config != nil && len(e.Config.Selectors) > 0
}

// ExtractHTML parses markup and extracts the configured values from it
func (e *Extractor) ExtractHTML(html string) (map[string]interface{}, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return e.Extract(doc), nil
}

// Extract evaluates every configured CSS selector against doc. A selector
// matching one element yields its text; several yield a list; none are omitted.
func (e *Extractor) Extract(doc *goquery.Document) map[string]interface{} {
	extracted := make(map[string]interface{})
	if !e.Enabled() {
		return extracted
	}

	for name, selector := range e.Config.Selectors {
		values := []string{}
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			values = append(values, strings.Join(strings.Fields(s.Text()), " "))
		})

		if len(values) == 1 {
			extracted[name] = values[0]
		} else if len(values) > 1 {
			extracted[name] = values
		}
	}

	return extracted
}
