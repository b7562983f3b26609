package acquisition

import "trend-signals/trends"

// Collection maps keyword to series in acquisition order. A keyword appears at most once
// and is never present with an empty series.
type Collection struct {
	order  []string
	series map[string]trends.Series
}

// NewCollection creates an empty collection
func NewCollection() *Collection {
	return &Collection{series: make(map[string]trends.Series)}
}

// Add records s under its keyword. Empty series and duplicate keywords are rejected.
func (c *Collection) Add(s trends.Series) bool {
	if s.Empty() || s.Keyword == "" {
		return false
	}
	if _, exists := c.series[s.Keyword]; exists {
		return false
	}
	c.order = append(c.order, s.Keyword)
	c.series[s.Keyword] = s
	return true
}

// Get returns the series for keyword
func (c *Collection) Get(keyword string) (trends.Series, bool) {
	s, ok := c.series[keyword]
	return s, ok
}

// Keywords returns keywords in the order they were recorded
func (c *Collection) Keywords() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of recorded keywords
func (c *Collection) Len() int {
	return len(c.order)
}

// Series returns all recorded series in order
func (c *Collection) Series() []trends.Series {
	out := make([]trends.Series, 0, len(c.order))
	for _, kw := range c.order {
		out = append(out, c.series[kw])
	}
	return out
}
