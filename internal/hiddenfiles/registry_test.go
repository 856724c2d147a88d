package hiddenfiles

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldProcessFalseAfterMarkPending(t *testing.T) {
	r := New()
	url := "https://wiki.example.com/assets/style.css"

	assert.True(t, r.ShouldProcess(url))
	require.True(t, r.MarkPending(url, "page1"))
	assert.False(t, r.ShouldProcess(url))
}

func TestMarkPendingIsAnAtomicClaim(t *testing.T) {
	r := New()
	url := "https://wiki.example.com/assets/style.css"

	assert.True(t, r.MarkPending(url, "page1"))
	assert.False(t, r.MarkPending(url, "page2"))
}

// TestDuplicateAssetDedup mirrors SPEC_FULL.md §8 scenario 4: two pages link the same
// stylesheet; the first worker claims pending, the second's ShouldProcess returns false
// and it can read back the saved path for its href rewrite.
func TestDuplicateAssetDedup(t *testing.T) {
	r := New()
	url := "https://wiki.example.com/assets/style.css"

	require.True(t, r.MarkPending(url, "page1"))
	r.RecordDownload(url, "/out/assets/style.css", 1024)

	assert.False(t, r.ShouldProcess(url))
	saved, ok := r.GetSavedPath(url)
	require.True(t, ok)
	assert.Equal(t, "/out/assets/style.css", saved)
}

func TestRecordFailureIsTerminalAndOnlyAppliesOnce(t *testing.T) {
	r := New()
	url := "https://wiki.example.com/assets/broken.png"
	require.True(t, r.MarkPending(url, "page1"))

	r.RecordFailure(url, errors.New("404"))
	entry, ok := r.Get(url)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, entry.Status)

	// A later RecordDownload must not flip a failed entry back to downloaded.
	r.RecordDownload(url, "/out/somewhere.png", 1)
	entry, _ = r.Get(url)
	assert.Equal(t, StatusFailed, entry.Status)
}

func TestNormalizeStripsVolatileQueryParamsAndLowercasesHost(t *testing.T) {
	r := New()
	a := "https://WIKI.example.com/assets/style.css?v=123"
	b := "https://wiki.example.com/assets/style.css?v=456"

	require.True(t, r.MarkPending(a, "page1"))
	assert.False(t, r.ShouldProcess(b))
}

func TestNormalizePreservesPathAndFragment(t *testing.T) {
	r := New()
	a := "https://wiki.example.com/assets/style.css#section"
	b := "https://wiki.example.com/assets/other.css#section"

	require.True(t, r.MarkPending(a, "page1"))
	assert.True(t, r.ShouldProcess(b))
}
