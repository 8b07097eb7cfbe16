package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/manash/cyberedit/pkg/models"
)

func TestT(t *testing.T) {
	tests := []struct {
		name   string
		locale models.Locale
		key    Key
		want   string
	}{
		{"english", models.LocaleEN, Before, "Before"},
		{"vietnamese", models.LocaleVI, Before, "Trước"},
		{"unknown locale falls back", "FR", After, "After"},
		{"unknown key echoes key", models.LocaleVI, Key("nope"), "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, T(tt.locale, tt.key))
		})
	}
}

func TestCatalogsComplete(t *testing.T) {
	for _, locale := range models.Locales() {
		for _, key := range Keys() {
			_, ok := catalogs[locale][key]
			assert.True(t, ok, "locale %s missing %s", locale, key)
		}
		assert.Len(t, catalogs[locale], len(Keys()), "locale %s has extra keys", locale)
	}
}
