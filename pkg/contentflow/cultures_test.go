package contentflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func varyingType() *ContentType {
	return &ContentType{
		Alias:           "article",
		VariesByCulture: true,
		Properties: []PropertyType{
			{Alias: "title", Mandatory: true},
			{Alias: "teaser", Mandatory: false},
		},
	}
}

func variant(culture string, publish bool, props map[string]string) *CultureVariant {
	return &CultureVariant{Culture: culture, Name: "Node (" + culture + ")", Publish: publish, Properties: props}
}

func nodeWithPublished(cultures ...string) *ContentNode {
	node := &ContentNode{ID: 1, Variants: make(map[string]*CultureVariant)}
	for _, c := range cultures {
		node.Variants[c] = &CultureVariant{Culture: c, Published: true}
	}
	return node
}

// TestValidateForPublishMandatoryLanguages quantifies the mandatory-language
// rule over requested/already-published combinations.
func TestValidateForPublishMandatoryLanguages(t *testing.T) {
	languages := []Language{
		{Code: "en-US", Mandatory: true},
		{Code: "da-DK", Mandatory: false},
	}
	valid := map[string]string{"title": "ok"}

	tests := []struct {
		name             string
		alreadyPublished []string
		requested        []*CultureVariant
		wantOK           bool
		wantCulture      string
	}{
		{
			name:        "mandatory neither requested nor published fails",
			requested:   []*CultureVariant{variant("da-DK", true, valid)},
			wantOK:      false,
			wantCulture: "en-US",
		},
		{
			name:      "mandatory requested passes",
			requested: []*CultureVariant{variant("en-US", true, valid)},
			wantOK:    true,
		},
		{
			name:             "mandatory already published passes",
			alreadyPublished: []string{"en-US"},
			requested:        []*CultureVariant{variant("da-DK", true, valid)},
			wantOK:           true,
		},
		{
			name:        "mandatory requested without publish flag fails",
			requested:   []*CultureVariant{variant("en-US", false, valid), variant("da-DK", true, valid)},
			wantOK:      false,
			wantCulture: "en-US",
		},
		{
			name:             "requested and published together passes",
			alreadyPublished: []string{"en-US"},
			requested:        []*CultureVariant{variant("en-US", true, valid)},
			wantOK:           true,
		},
		{
			name:        "nothing requested and nothing published fails",
			requested:   nil,
			wantOK:      false,
			wantCulture: "en-US",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := nodeWithPublished(tt.alreadyPublished...)
			res := ValidateForPublish(node, varyingType(), tt.requested, languages)
			assert.Equal(t, tt.wantOK, res.OK)
			if !tt.wantOK {
				assert.Equal(t, tt.wantCulture, res.FailingCulture)
			}
		})
	}
}

func TestValidateForPublishPropertyValidation(t *testing.T) {
	languages := []Language{{Code: "en-US", Mandatory: false}}
	typ := varyingType()

	t.Run("first failing culture short-circuits", func(t *testing.T) {
		node := nodeWithPublished()
		requested := []*CultureVariant{
			variant("en-US", true, map[string]string{"title": "ok"}),
			variant("da-DK", true, nil), // missing mandatory title
			variant("de-DE", true, nil), // never reached
		}
		res := ValidateForPublish(node, typ, requested, languages)
		assert.False(t, res.OK)
		assert.Equal(t, "da-DK", res.FailingCulture)
		assert.Equal(t, []string{"title"}, res.InvalidProperties)
		assert.Equal(t, []string{"en-US"}, res.ValidCultures)
	})

	t.Run("variants not requesting publish are skipped", func(t *testing.T) {
		node := nodeWithPublished()
		requested := []*CultureVariant{
			variant("en-US", true, map[string]string{"title": "ok"}),
			variant("da-DK", false, nil),
		}
		res := ValidateForPublish(node, typ, requested, languages)
		assert.True(t, res.OK)
		assert.Equal(t, []string{"en-US"}, res.ValidCultures)
	})
}

func TestValidateForPublishInvariantBypass(t *testing.T) {
	typ := &ContentType{
		Alias:      "settings",
		Properties: []PropertyType{{Alias: "title", Mandatory: true}},
	}
	languages := []Language{{Code: "en-US", Mandatory: true}}

	// Non-varying types bypass culture validation entirely, even with
	// mandatory languages configured and no valid properties.
	node := nodeWithPublished()
	res := ValidateForPublish(node, typ, nil, languages)
	assert.True(t, res.OK)
	assert.Empty(t, res.FailingCulture)
}
