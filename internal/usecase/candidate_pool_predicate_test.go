package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/paper-app/backend/internal/domain"
)

func TestPredicateFor(t *testing.T) {
	cs := &domain.Paper{Categories: []string{"cs.DC"}}
	math := &domain.Paper{Categories: []string{"math.CO"}}
	physics := &domain.Paper{Categories: []string{"physics.optics"}}
	aiOnly := &domain.Paper{Categories: []string{"cs.AI"}}
	unrelated := &domain.Paper{Categories: []string{"q-bio.NC"}}

	tests := []struct {
		name       string
		filterType domain.FilterType
		paper      *domain.Paper
		want       bool
	}{
		{"cs matches cs.*", domain.FilterCS, cs, true},
		{"cs rejects math", domain.FilterCS, math, false},
		{"ai-ml-cv matches cs.AI", domain.FilterAIMLCV, aiOnly, true},
		{"ai-ml-cv rejects unrelated category", domain.FilterAIMLCV, unrelated, false},
		{"math matches math.*", domain.FilterMath, math, true},
		{"physics matches physics.*", domain.FilterPhysics, physics, true},
		{"physics rejects cs", domain.FilterPhysics, cs, false},
		{"all admits everything", domain.FilterAll, unrelated, true},
		{"unknown filter type falls back to admit-all", domain.FilterType("bogus"), unrelated, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			predicate := PredicateFor(tt.filterType)
			assert.Equal(t, tt.want, predicate(tt.paper))
		})
	}
}

func TestPoolDateBatchID_Deterministic(t *testing.T) {
	date := mustParseDate(t, "2026-07-30")
	a := domain.PoolDateBatchID(date)
	b := domain.PoolDateBatchID(date)
	assert.Equal(t, a, b, "same pool date must map to the same batch id across calls")

	other := domain.PoolDateBatchID(mustParseDate(t, "2026-07-31"))
	assert.NotEqual(t, a, other)
}
