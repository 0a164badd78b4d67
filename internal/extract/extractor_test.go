// internal/extract/extractor_test.go
package extract

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/quotehound/api/schemas"
	"github.com/xkilldash9x/quotehound/internal/config"
)

func TestAssemblePrice(t *testing.T) {
	t.Run("ConsolidatedPriceWithPeriod", func(t *testing.T) {
		card := rawCard{PriceText: "$120", PricePeriod: "/mo"}
		assert.Equal(t, "$120/mo", assemblePrice(card))
	})

	t.Run("ConsolidatedPriceDefaultsPeriod", func(t *testing.T) {
		// The period label is often missing from the modern markup.
		card := rawCard{PriceText: "120"}
		assert.Equal(t, "$120/mo", assemblePrice(card))
	})

	t.Run("ConsolidatedPriceNeverDoublesDollarSign", func(t *testing.T) {
		card := rawCard{PriceText: "$98", PricePeriod: "/mo"}
		assert.Equal(t, "$98/mo", assemblePrice(card))
	})

	t.Run("CompositeRateBlock", func(t *testing.T) {
		card := rawCard{RateDollar: "$", RateAmount: "98", RatePeriod: "/mo"}
		assert.Equal(t, "$98/mo", assemblePrice(card))
	})

	t.Run("CompositeRateBlockMissingDollar", func(t *testing.T) {
		card := rawCard{RateAmount: "98", RatePeriod: "/mo"}
		assert.Equal(t, "$98/mo", assemblePrice(card))
	})

	t.Run("AmountLeafWalkUp", func(t *testing.T) {
		card := rawCard{AltRateDollar: "$", AltRateAmount: "145", AltRatePeriod: "/mo"}
		assert.Equal(t, "$145/mo", assemblePrice(card))
	})

	t.Run("ShapesTriedInOrder", func(t *testing.T) {
		card := rawCard{
			PriceText: "$120", PricePeriod: "/mo",
			RateAmount: "999", RatePeriod: "/yr",
		}
		assert.Equal(t, "$120/mo", assemblePrice(card),
			"the consolidated shape wins when several shapes carry data")
	})

	t.Run("NoAmountAnywhere", func(t *testing.T) {
		assert.Empty(t, assemblePrice(rawCard{Alt: "Acme logo"}))
	})
}

func TestCompanyName(t *testing.T) {
	cases := []struct {
		alt  string
		want string
	}{
		{"Acme Insurance logo", "Acme Insurance"},
		{"Progressive Logo", "Progressive"},
		{"logoless carrier", "less carrier"},
		{"Allstate", "Allstate"},
		{"", "Unknown"},
		{"logo", "Unknown"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, companyName(tc.alt), "alt=%q", tc.alt)
	}
}

func TestBuildRecord(t *testing.T) {
	spec := TierSpec{
		Tier:           schemas.TierMinimum,
		BodilyInjury:   "$15k/$30k",
		CompDeductible: "0",
	}

	t.Run("FullCard", func(t *testing.T) {
		record, ok := buildRecord(rawCard{
			Alt:       "Acme Insurance logo",
			PriceText: "$120",
		}, spec)
		require.True(t, ok)

		assert.Equal(t, "Acme Insurance", record.Company)
		assert.Equal(t, "$120/mo", record.Price)
		assert.Equal(t, "$15k/$30k", record.BodilyInjury)
		assert.Equal(t, "0", record.ComprehensiveDeductible)
		assert.Equal(t, schemas.TierMinimum, record.PlanTier)
	})

	t.Run("CardWithoutPriceYieldsNoRecord", func(t *testing.T) {
		_, ok := buildRecord(rawCard{Alt: "Acme Insurance logo"}, spec)
		assert.False(t, ok, "a card without a settled price must not produce a record")
	})
}

func TestTierTable(t *testing.T) {
	tiers := tierTable()
	require.Len(t, tiers, 3)

	assert.Equal(t, schemas.TierMinimum, tiers[0].Tier)
	assert.Empty(t, tiers[0].Switch, "the minimum tier is live when the page loads")
	assert.Equal(t, "$15k/$30k", tiers[0].BodilyInjury)
	assert.Equal(t, "0", tiers[0].CompDeductible)

	assert.Equal(t, schemas.TierBasic, tiers[1].Tier)
	assert.NotEmpty(t, tiers[1].Switch)
	assert.Equal(t, "$25k/$50k", tiers[1].BodilyInjury)
	assert.Equal(t, "1000", tiers[1].CompDeductible)

	assert.Equal(t, schemas.TierBetter, tiers[2].Tier)
	assert.NotEmpty(t, tiers[2].Switch)
	assert.Equal(t, "$50k/$100k", tiers[2].BodilyInjury)
	assert.Equal(t, "1000", tiers[2].CompDeductible)
}

// resultsPage simulates a loaded results page: card probes succeed, tier
// switches land, and every harvest script yields the configured cards.
type resultsPage struct {
	schemas.PageSession

	cards []rawCard
}

func (p *resultsPage) Exists(ctx context.Context, loc schemas.Locator) (bool, error) {
	return true, nil
}

func (p *resultsPage) ScrollIntoView(ctx context.Context, loc schemas.Locator) error {
	return nil
}

func (p *resultsPage) Click(ctx context.Context, loc schemas.Locator) error {
	return nil
}

func (p *resultsPage) Evaluate(ctx context.Context, script string, res any) error {
	b, err := json.Marshal(p.cards)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, res)
}

func TestCollectAllBuildsPerTierReport(t *testing.T) {
	page := &resultsPage{cards: []rawCard{
		{Alt: "Acme Insurance logo", PriceText: "$120", PricePeriod: "/mo"},
		{Alt: "Placeholder Carrier logo"}, // no settled price
		{Alt: "", RateDollar: "$", RateAmount: "98", RatePeriod: "/mo"},
	}}

	waits := config.NetworkConfig{ElementTimeout: 20 * time.Millisecond}
	extractor := New(page, nil, waits, zap.NewNop())

	report := extractor.CollectAll(context.Background())

	// The placeholder card is dropped in every tier.
	require.Len(t, report.MinimumPlanQuotes, 2)
	require.Len(t, report.BasicPlanQuotes, 2)
	require.Len(t, report.BetterPlanQuotes, 2)

	assert.Equal(t, 2, report.MinimumCount)
	assert.Equal(t, 2, report.BasicCount)
	assert.Equal(t, 2, report.BetterCount)

	first := report.MinimumPlanQuotes[0]
	assert.Equal(t, "Acme Insurance", first.Company)
	assert.Equal(t, "$120/mo", first.Price)
	assert.Equal(t, schemas.TierMinimum, first.PlanTier)

	second := report.MinimumPlanQuotes[1]
	assert.Equal(t, "Unknown", second.Company, "a missing logo alt falls back to Unknown")
	assert.Equal(t, "$98/mo", second.Price)

	assert.Equal(t, "$25k/$50k", report.BasicPlanQuotes[0].BodilyInjury)
	assert.Equal(t, "$50k/$100k", report.BetterPlanQuotes[0].BodilyInjury)
}
