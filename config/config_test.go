package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	t.Setenv("TRENDS_KEYWORDS", "")
	t.Setenv("TRENDS_MAX_ATTEMPTS", "")
	t.Setenv("TRENDS_FAILURE_COOLDOWN", "")
	t.Setenv("TRENDS_BASE_URL", "")

	cfg := LoadFromEnv()

	assert.Equal(t, "https://trends.google.com", cfg.Trends.BaseURL)

	assert.Equal(t, DefaultKeywords, cfg.Trends.Keywords)
	assert.Equal(t, 2, cfg.Trends.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Trends.SuccessCooldown)
	assert.Equal(t, 60*time.Second, cfg.Trends.FailureCooldown)
	assert.Equal(t, 12, cfg.Trends.SmoothingWindow)
	assert.Equal(t, "US", cfg.Trends.Geo)
	assert.Equal(t, "2019-01-01", cfg.Trends.WindowStart)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("TRENDS_KEYWORDS", " a , b,,c ")
	t.Setenv("TRENDS_MAX_ATTEMPTS", "4")
	t.Setenv("TRENDS_FAILURE_COOLDOWN", "2m")
	t.Setenv("TRENDS_SUCCESS_COOLDOWN", "not-a-duration")
	t.Setenv("TRENDS_TZ", "abc")

	cfg := LoadFromEnv()

	assert.Equal(t, []string{"a", "b", "c"}, cfg.Trends.Keywords)
	assert.Equal(t, 4, cfg.Trends.MaxAttempts)
	assert.Equal(t, 2*time.Minute, cfg.Trends.FailureCooldown)
	assert.Equal(t, 10*time.Second, cfg.Trends.SuccessCooldown)
	assert.Equal(t, 360, cfg.Trends.TZOffset)
}

func TestParsePairs(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []PairSpec
		wantErr bool
	}{
		{name: "empty", raw: "", want: nil},
		{name: "with title", raw: "ozempic|body positivity|Ozempic vs. BP", want: []PairSpec{{"ozempic", "body positivity", "Ozempic vs. BP"}}},
		{name: "two pairs", raw: "a|b; c|d ;", want: []PairSpec{{"a", "b", ""}, {"c", "d", ""}}},
		{name: "missing member", raw: "a", wantErr: true},
		{name: "blank member", raw: "a| ", wantErr: true},
		{name: "too many parts", raw: "a|b|c|d", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePairs(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
