package contentflow

// PublishResultType tags the outcome of a workflow action.
type PublishResultType string

// Publish result constants (typed).
const (
	ResultSuccess                PublishResultType = "success"
	ResultSuccessAlready         PublishResultType = "successAlready"
	ResultFailedCancelledByEvent PublishResultType = "failedCancelledByEvent"
	ResultFailedAwaitingRelease  PublishResultType = "failedAwaitingRelease"
	ResultFailedHasExpired       PublishResultType = "failedHasExpired"
	ResultFailedIsTrashed        PublishResultType = "failedIsTrashed"
	ResultFailedContentInvalid   PublishResultType = "failedContentInvalid"
	ResultFailedByCulture        PublishResultType = "failedByCulture"
	ResultFailedPathNotPublished PublishResultType = "failedPathNotPublished"
	ResultFailedCannotPublish    PublishResultType = "failedCannotPublish"
)

// Succeeded reports whether the result tag is a success outcome.
func (t PublishResultType) Succeeded() bool {
	return t == ResultSuccess || t == ResultSuccessAlready
}

// PublishResult is the structured outcome of ApplyAction. It is a data-driven
// result, not an error: failed outcomes still carry the (possibly saved)
// subject node.
type PublishResult struct {
	Result PublishResultType `json:"result"`
	Node   *ContentNode      `json:"node,omitempty"`

	// Downgraded is set when a publish action was silently demoted to its
	// save counterpart because the submitted input failed validation outside
	// the publication engine.
	Downgraded bool `json:"downgraded,omitempty"`

	// InvalidProperties lists offending property aliases for
	// ResultFailedContentInvalid.
	InvalidProperties []string `json:"invalid_properties,omitempty"`

	// FailedCultures lists offending culture codes for ResultFailedByCulture
	// and culture-scoped ResultFailedContentInvalid.
	FailedCultures []string `json:"failed_cultures,omitempty"`
}

// OperationResult is the outcome of a hierarchy or lifecycle mutation. A
// cancelled operation is reported here, never as an error.
type OperationResult struct {
	Result PublishResultType `json:"result"`
	Node   *ContentNode      `json:"node,omitempty"`
}

// Cancelled reports whether the operation was vetoed by an event hook.
func (r *OperationResult) Cancelled() bool {
	return r.Result == ResultFailedCancelledByEvent
}
