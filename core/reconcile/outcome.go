package reconcile

// Branch is the pipeline's decision after classifying a fetch result.
type Branch int

const (
	// BranchNoChange records NO_CHANGE and stops.
	BranchNoChange Branch = iota
	// BranchFailed records FAILED and stops.
	BranchFailed
	// BranchExtract proceeds to extraction.
	BranchExtract
)

// Classify maps a fetch result and the prior latest fingerprint to the
// branch the run must take, plus the failure detail for BranchFailed.
//
// Fingerprint equality with the prior version is necessary and sufficient
// for NO_CHANGE: a fetcher that reports CHANGED with a fingerprint equal to
// the prior one is still classified as no change here, so the invariant does
// not depend on fetcher behavior.
func Classify(res *FetchResult, last Fingerprint) (Branch, string) {
	if res == nil {
		return BranchFailed, "fetcher returned no result"
	}

	switch res.Status {
	case FetchUnchanged:
		return BranchNoChange, ""

	case FetchFailed:
		detail := res.Detail
		if detail == "" {
			detail = "fetch failed"
		}
		return BranchFailed, detail

	case FetchChanged:
		if res.Fingerprint.IsZero() {
			return BranchFailed, "fetcher reported change without a fingerprint"
		}
		if !last.IsZero() && res.Fingerprint == last {
			return BranchNoChange, ""
		}
		return BranchExtract, ""

	default:
		return BranchFailed, "unknown fetch status " + string(res.Status)
	}
}
