package contentflow

import (
	"fmt"
	"time"
)

// validateStructure checks the structural precondition for persisting a new
// node: identifying fields present and the variant set shaped by the content
// type's variance. This is the one case where invalid input blocks
// persistence entirely.
func validateStructure(node *ContentNode, typ *ContentType) error {
	if node.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidNode)
	}
	if node.ContentType == "" {
		return fmt.Errorf("%w: content type is required", ErrInvalidNode)
	}

	if typ.VariesByCulture {
		if len(node.Variants) == 0 {
			return fmt.Errorf("%w: varying type %q requires at least one culture variant", ErrInvalidNode, typ.Alias)
		}
		for code := range node.Variants {
			if code == "" {
				return fmt.Errorf("%w: varying type %q cannot carry an invariant variant", ErrInvalidNode, typ.Alias)
			}
		}
		return nil
	}

	for code := range node.Variants {
		if code != "" {
			return fmt.Errorf("%w: non-varying type %q cannot carry culture variant %q", ErrInvalidNode, typ.Alias, code)
		}
	}
	if len(node.Variants) > 1 {
		return fmt.Errorf("%w: non-varying type %q allows exactly one invariant variant", ErrInvalidNode, typ.Alias)
	}
	return nil
}

// validateVariantShape rejects requested variants whose culture keys do not
// fit the type. validateStructure enforces the same invariant on a new
// node's variant map; this guards the merge path for existing nodes.
func validateVariantShape(requested []*CultureVariant, typ *ContentType) error {
	for _, v := range requested {
		if typ.VariesByCulture && v.Culture == "" {
			return fmt.Errorf("%w: varying type %q cannot carry an invariant variant", ErrInvalidNode, typ.Alias)
		}
		if !typ.VariesByCulture && v.Culture != "" {
			return fmt.Errorf("%w: non-varying type %q cannot carry culture variant %q", ErrInvalidNode, typ.Alias, v.Culture)
		}
	}
	return nil
}

// invalidProperties returns the aliases of mandatory properties missing a
// value on the variant.
func invalidProperties(typ *ContentType, v *CultureVariant) []string {
	var invalid []string
	for _, p := range typ.Properties {
		if !p.Mandatory {
			continue
		}
		if v.Properties[p.Alias] == "" {
			invalid = append(invalid, p.Alias)
		}
	}
	return invalid
}

// checkSchedule gates a variant's publish against its release/expire window.
// The zero result means the schedule permits publishing now.
func checkSchedule(v *CultureVariant, now time.Time) PublishResultType {
	if v.ReleaseAt != nil && v.ReleaseAt.After(now) {
		return ResultFailedAwaitingRelease
	}
	if v.ExpireAt != nil && !v.ExpireAt.After(now) {
		return ResultFailedHasExpired
	}
	return ""
}
