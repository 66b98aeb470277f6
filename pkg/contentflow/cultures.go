package contentflow

// CultureResult is the outcome of pre-publish culture validation.
type CultureResult struct {
	OK bool

	// FailingCulture identifies the first offending culture: a mandatory
	// language with no requested or persisted publish, or the first culture
	// whose properties failed validation.
	FailingCulture string

	// InvalidProperties lists the offending property aliases when
	// FailingCulture failed property validation.
	InvalidProperties []string

	// ValidCultures lists the cultures validated before the failure. They
	// are tentatively valid but never published when the overall request
	// fails.
	ValidCultures []string
}

// ValidateForPublish determines whether the requested culture publishes
// satisfy the mandatory-language and per-culture validity constraints.
//
// Non-varying content types bypass culture validation entirely: publishing
// any variant implies the invariant culture, which is never a separate
// requested entry.
//
// The mandatory-language pass consults only the requested variants plus the
// node's persisted publish state; cultures published by cascading rules
// elsewhere are not considered.
func ValidateForPublish(node *ContentNode, typ *ContentType, requested []*CultureVariant, languages []Language) CultureResult {
	if !typ.VariesByCulture {
		return CultureResult{OK: true}
	}

	for _, lang := range languages {
		if !lang.Mandatory {
			continue
		}
		if requestsPublish(requested, lang.Code) || node.IsCulturePublished(lang.Code) {
			continue
		}
		return CultureResult{FailingCulture: lang.Code}
	}

	var valid []string
	for _, v := range requested {
		if !v.Publish {
			continue
		}
		if invalid := invalidProperties(typ, v); len(invalid) > 0 {
			return CultureResult{
				FailingCulture:    v.Culture,
				InvalidProperties: invalid,
				ValidCultures:     valid,
			}
		}
		valid = append(valid, v.Culture)
	}

	return CultureResult{OK: true, ValidCultures: valid}
}

func requestsPublish(requested []*CultureVariant, culture string) bool {
	for _, v := range requested {
		if v.Culture == culture && v.Publish {
			return true
		}
	}
	return false
}
