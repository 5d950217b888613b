package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/prodviz_server/config"
)

func TestPlanCatalog_Defaults(t *testing.T) {
	catalog, err := NewPlanCatalog(config.SubscriptionConfig{Tiers: config.DefaultTiers()})
	require.NoError(t, err)

	plans := catalog.List()
	require.Len(t, plans, 4)
	assert.Equal(t, 10, plans["free"].ImagesPerMonth)
	assert.Equal(t, 0.0, plans["free"].Price)
	assert.Equal(t, 20, plans["starter"].ImagesPerMonth)
	assert.Equal(t, 149.0, plans["business"].Price)
	assert.Equal(t, 500, plans["enterprise"].ImagesPerMonth)

	assert.Equal(t, []string{"free", "starter", "business", "enterprise"}, catalog.Keys())
}

func TestPlanCatalog_Get(t *testing.T) {
	catalog, err := NewPlanCatalog(config.SubscriptionConfig{Tiers: config.DefaultTiers()})
	require.NoError(t, err)

	plan, err := catalog.Get("starter")
	require.NoError(t, err)
	assert.Equal(t, "starter", plan.Key)
	assert.Contains(t, plan.Features, "Email support")

	_, err = catalog.Get("platinum")
	assert.ErrorIs(t, err, ErrUnknownTier)
	assert.Equal(t, KindUnknownTier, KindOf(err))
}

func TestPlanCatalog_ListIsCopy(t *testing.T) {
	catalog, err := NewPlanCatalog(config.SubscriptionConfig{Tiers: config.DefaultTiers()})
	require.NoError(t, err)

	plans := catalog.List()
	plans["free"].Features[0] = "mutated"
	delete(plans, "starter")

	again := catalog.List()
	assert.Len(t, again, 4)
	assert.Equal(t, "Basic scenes", again["free"].Features[0])
}

func TestPlanCatalog_Validation(t *testing.T) {
	tests := []struct {
		name  string
		tiers map[string]config.TierConfig
	}{
		{"empty", nil},
		{"missing free", map[string]config.TierConfig{"starter": {ImagesPerMonth: 20}}},
		{"zero quota", map[string]config.TierConfig{"free": {ImagesPerMonth: 0}}},
		{"negative price", map[string]config.TierConfig{"free": {ImagesPerMonth: 10, Price: -1}}},
		{"empty key", map[string]config.TierConfig{"free": {ImagesPerMonth: 10}, "": {ImagesPerMonth: 5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPlanCatalog(config.SubscriptionConfig{Tiers: tt.tiers})
			assert.Error(t, err)
		})
	}
}
