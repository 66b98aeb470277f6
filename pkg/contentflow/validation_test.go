package contentflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateStructure(t *testing.T) {
	varying := &ContentType{Alias: "article", VariesByCulture: true}
	invariant := &ContentType{Alias: "settings"}

	tests := []struct {
		name    string
		node    *ContentNode
		typ     *ContentType
		wantErr bool
	}{
		{
			name:    "missing name rejected",
			node:    &ContentNode{ContentType: "article", Variants: map[string]*CultureVariant{"en-US": {}}},
			typ:     varying,
			wantErr: true,
		},
		{
			name:    "missing content type rejected",
			node:    &ContentNode{Name: "Home"},
			typ:     invariant,
			wantErr: true,
		},
		{
			name:    "varying type without variants rejected",
			node:    &ContentNode{Name: "Home", ContentType: "article"},
			typ:     varying,
			wantErr: true,
		},
		{
			name: "varying type with invariant entry rejected",
			node: &ContentNode{Name: "Home", ContentType: "article",
				Variants: map[string]*CultureVariant{"": {}}},
			typ:     varying,
			wantErr: true,
		},
		{
			name: "varying type keyed by cultures accepted",
			node: &ContentNode{Name: "Home", ContentType: "article",
				Variants: map[string]*CultureVariant{"en-US": {}, "da-DK": {}}},
			typ: varying,
		},
		{
			name: "non-varying type with culture entry rejected",
			node: &ContentNode{Name: "Home", ContentType: "settings",
				Variants: map[string]*CultureVariant{"en-US": {}}},
			typ:     invariant,
			wantErr: true,
		},
		{
			name: "non-varying type with single invariant entry accepted",
			node: &ContentNode{Name: "Home", ContentType: "settings",
				Variants: map[string]*CultureVariant{"": {}}},
			typ: invariant,
		},
		{
			name: "non-varying type without variants accepted",
			node: &ContentNode{Name: "Home", ContentType: "settings"},
			typ:  invariant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateStructure(tt.node, tt.typ)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidNode)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInvalidProperties(t *testing.T) {
	typ := &ContentType{Properties: []PropertyType{
		{Alias: "title", Mandatory: true},
		{Alias: "body", Mandatory: true},
		{Alias: "teaser"},
	}}

	v := &CultureVariant{Properties: map[string]string{"title": "hello"}}
	assert.Equal(t, []string{"body"}, invalidProperties(typ, v))

	v.Properties["body"] = "text"
	assert.Empty(t, invalidProperties(typ, v))

	assert.Equal(t, []string{"title", "body"}, invalidProperties(typ, &CultureVariant{}))
}

func TestCheckSchedule(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	assert.Equal(t, PublishResultType(""), checkSchedule(&CultureVariant{}, now))
	assert.Equal(t, ResultFailedAwaitingRelease, checkSchedule(&CultureVariant{ReleaseAt: &future}, now))
	assert.Equal(t, ResultFailedHasExpired, checkSchedule(&CultureVariant{ExpireAt: &past}, now))
	assert.Equal(t, PublishResultType(""), checkSchedule(&CultureVariant{ReleaseAt: &past, ExpireAt: &future}, now))
}

func TestPathHelpers(t *testing.T) {
	path := JoinPath(JoinPath("-1", 1031), 1045)
	assert.Equal(t, "-1,1031,1045", path)

	assert.True(t, PathContains(path, 1031))
	assert.True(t, PathContains(path, RootID))
	assert.False(t, PathContains(path, 103)) // no partial segment match

	assert.Equal(t, []int{-1, 1031, 1045}, PathIDs(path))
}

func TestPermissionSet(t *testing.T) {
	set := NewPermissionSet(PermBrowse, PermPublish)

	assert.True(t, set.Contains(PermBrowse))
	assert.False(t, set.Contains(PermDelete))
	assert.True(t, set.ContainsAll(PermBrowse, PermPublish))
	assert.False(t, set.ContainsAll(PermBrowse, PermDelete))
	assert.True(t, set.ContainsAll()) // no required codes

	assert.True(t, set.Equal(NewPermissionSet(PermPublish, PermBrowse)))
	assert.False(t, set.Equal(NewPermissionSet(PermBrowse)))
}
