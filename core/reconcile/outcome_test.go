package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeFingerprint_Deterministic(t *testing.T) {
	content := []byte("# J Card\n\n3% cashback on overseas spend")

	f1 := ComputeFingerprint(content)
	f2 := ComputeFingerprint(content)
	assert.Equal(t, f1, f2)
	assert.Len(t, string(f1), 64) // sha256 hex

	// A single-byte difference must produce a different fingerprint.
	f3 := ComputeFingerprint([]byte("# J Card\n\n2% cashback on overseas spend"))
	assert.NotEqual(t, f1, f3)
}

func TestClassify(t *testing.T) {
	f1 := ComputeFingerprint([]byte("content one"))
	f2 := ComputeFingerprint([]byte("content two"))

	tests := []struct {
		name         string
		res          *FetchResult
		last         Fingerprint
		wantBranch   Branch
		detailSubstr string
	}{
		{
			name:       "unchanged short-circuits",
			res:        &FetchResult{Status: FetchUnchanged},
			last:       f1,
			wantBranch: BranchNoChange,
		},
		{
			name:         "failed carries detail",
			res:          &FetchResult{Status: FetchFailed, Detail: "timeout"},
			last:         f1,
			wantBranch:   BranchFailed,
			detailSubstr: "timeout",
		},
		{
			name:         "failed without detail gets a default",
			res:          &FetchResult{Status: FetchFailed},
			wantBranch:   BranchFailed,
			detailSubstr: "fetch failed",
		},
		{
			name:       "changed with new fingerprint extracts",
			res:        &FetchResult{Status: FetchChanged, Content: "c", Fingerprint: f2},
			last:       f1,
			wantBranch: BranchExtract,
		},
		{
			name:       "changed on first run extracts",
			res:        &FetchResult{Status: FetchChanged, Content: "c", Fingerprint: f1},
			last:       "",
			wantBranch: BranchExtract,
		},
		{
			// Equality with the prior version is sufficient for NO_CHANGE
			// even when the fetcher mislabels the result.
			name:       "changed with identical fingerprint is no change",
			res:        &FetchResult{Status: FetchChanged, Content: "c", Fingerprint: f1},
			last:       f1,
			wantBranch: BranchNoChange,
		},
		{
			name:         "changed without fingerprint fails",
			res:          &FetchResult{Status: FetchChanged, Content: "c"},
			last:         f1,
			wantBranch:   BranchFailed,
			detailSubstr: "without a fingerprint",
		},
		{
			name:         "nil result fails",
			res:          nil,
			wantBranch:   BranchFailed,
			detailSubstr: "no result",
		},
		{
			name:         "unknown status fails",
			res:          &FetchResult{Status: FetchStatus("BOGUS")},
			wantBranch:   BranchFailed,
			detailSubstr: "unknown fetch status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			branch, detail := Classify(tt.res, tt.last)
			assert.Equal(t, tt.wantBranch, branch)
			if tt.detailSubstr != "" {
				assert.Contains(t, detail, tt.detailSubstr)
			}
		})
	}
}

func TestQuarterLabel(t *testing.T) {
	tests := []struct {
		month int
		want  string
	}{
		{1, "2026-Q1"},
		{3, "2026-Q1"},
		{4, "2026-Q2"},
		{8, "2026-Q3"},
		{12, "2026-Q4"},
	}

	for _, tt := range tests {
		label := QuarterLabel(timeInMonth(2026, tt.month))
		assert.Equal(t, tt.want, label)
	}
}
