package listings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"2021 Hyundai IONIQ 5":          "2021-hyundai-ioniq-5",
		"  Québec   Éléctrique  ":       "quebec-electrique",
		"Model_Y -- Performance!!":      "model-y-performance",
		"日本":                            "",
		"Kia EV6 GT-Line (AWD) / 77kWh": "kia-ev6-gt-line-awd-77kwh",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestSlugifyTruncates(t *testing.T) {
	slug := Slugify(strings.Repeat("ab ", 200))
	assert.LessOrEqual(t, len(slug), maxSlugLength)
	assert.False(t, strings.HasSuffix(slug, "-"))
}

func TestBaseSlugFallbacks(t *testing.T) {
	assert.Equal(t, "polestar-2", BaseSlug("Polestar 2", "Polestar", "2", 2023))
	assert.Equal(t, "nissan-leaf-2019", BaseSlug("!!!", "Nissan", "Leaf", 2019))

	random := BaseSlug("", "", "", 2020)
	assert.Len(t, random, 10)
}

func TestSlugCandidate(t *testing.T) {
	assert.Equal(t, "leaf", SlugCandidate("leaf", 1))
	assert.Equal(t, "leaf-3", SlugCandidate("leaf", 3))
}
