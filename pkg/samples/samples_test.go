package samples

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_All_ReturnsEverySeededRecord(t *testing.T) {
	s := New()
	all := s.All()
	assert.NotEmpty(t, all)

	// Sorted by checker name.
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Checker, all[i].Checker)
	}
}

func TestStore_ByChecker_Found(t *testing.T) {
	s := New()
	recs, err := s.ByChecker("labor-blacklist")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "labor-blacklist", recs[0].Checker)
}

func TestStore_ByChecker_NotFound(t *testing.T) {
	s := New()
	_, err := s.ByChecker("does-not-exist")
	assert.Error(t, err)
}
