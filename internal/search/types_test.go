package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandidateBudgetFloorsAtMinimum(t *testing.T) {
	assert.Equal(t, MinCandidates, CandidateBudget(1))
	assert.Equal(t, MinCandidates, CandidateBudget(2))
}

func TestCandidateBudgetScalesWithNum(t *testing.T) {
	// K = num + ceil(num / ln(num)); ln(100) ~= 4.605, 100/4.605 ~= 21.7 -> 22
	assert.Equal(t, 122, CandidateBudget(100))
}

func TestNewQueryAppliesDefaults(t *testing.T) {
	q := NewQuery("find the parser")
	assert.Equal(t, 10, q.Num)
	assert.True(t, q.TextSearchEnabled)
	assert.True(t, q.RerankEnabled)
	assert.Nil(t, q.MinScore)
}
