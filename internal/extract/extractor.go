// internal/extract/extractor.go
//
// Scrapes the results page's carrier quote cards across the three fixed
// coverage tiers. The page has shipped two incompatible card markups and
// occasionally renders placeholder cards without settled pricing; the
// extractor tolerates all of it by layering location strategies and only
// emitting records that actually carry a price.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/quotehound/api/schemas"
	"github.com/xkilldash9x/quotehound/internal/config"
	"github.com/xkilldash9x/quotehound/internal/humanoid"
	"github.com/xkilldash9x/quotehound/internal/wizard"
)

// TierSpec binds a coverage tier to its selector control and the coverage
// constants the page displays for it.
type TierSpec struct {
	Tier schemas.PlanTier
	// Switch activates the tier; empty for the tier that is already live
	// when the results page loads.
	Switch []schemas.Locator
	// BodilyInjury and CompDeductible are fixed per tier by the page.
	BodilyInjury   string
	CompDeductible string
}

// tierTable returns the three tiers in scrape order.
func tierTable() []TierSpec {
	return []TierSpec{
		{
			Tier:           schemas.TierMinimum,
			BodilyInjury:   "$15k/$30k",
			CompDeductible: "0",
		},
		{
			Tier: schemas.TierBasic,
			Switch: []schemas.Locator{
				schemas.CSS(`[data-cy="basic-coverage-card-container"]`),
			},
			BodilyInjury:   "$25k/$50k",
			CompDeductible: "1000",
		},
		{
			Tier: schemas.TierBetter,
			Switch: []schemas.Locator{
				schemas.CSS(`[data-cy="better-coverage-card-container"]`),
				schemas.XPath(`//div[contains(@class, 'coverage-card-title') and contains(text(), 'Better')]/ancestor::label[contains(@class, 'custom-radio')]`),
			},
			BodilyInjury:   "$50k/$100k",
			CompDeductible: "1000",
		},
	}
}

// rawCard is the per-card data a location script harvests verbatim from the
// DOM. Price assembly happens in Go so each shape is independently testable.
type rawCard struct {
	Alt string `json:"alt"`

	// Shape 1: consolidated price element plus separate period label.
	PriceText   string `json:"priceText"`
	PricePeriod string `json:"pricePeriod"`

	// Shape 2: composite rate block with dollar/amount/period sub-elements.
	RateDollar string `json:"rateDollar"`
	RateAmount string `json:"rateAmount"`
	RatePeriod string `json:"ratePeriod"`

	// Shape 3: the same composite block reached from the amount leaf upward.
	AltRateDollar string `json:"altRateDollar"`
	AltRateAmount string `json:"altRateAmount"`
	AltRatePeriod string `json:"altRatePeriod"`
}

// cardStrategies are the layered card-location expressions, tried in order
// until one yields cards: the modern container, the legacy container, and a
// walk upward from price-bearing leaves.
var cardStrategies = []struct {
	name string
	expr string
}{
	{"modern", `document.querySelectorAll('.results-card-v2__body')`},
	{"legacy", `document.querySelectorAll('[data-cy*="results-card_carrierCard"]')`},
	{"price-walk-up", `Array.from(document.querySelectorAll('[data-cy="results-card_price"]'))
		.map(el => el.closest('div[class*="results-card"], div[class*="card-body"]'))
		.filter(Boolean)`},
}

// harvestScript wraps a card-location expression with the per-card field
// harvest.
func harvestScript(cardsExpr string) string {
	return fmt.Sprintf(`(() => {
	const text = (root, sel) => {
		const n = root ? root.querySelector(sel) : null;
		return n ? (n.textContent || '').trim() : '';
	};
	const harvest = (card) => {
		const logo = card.querySelector('img[data-cy="results-card_logo"]')
			|| card.querySelector('img[data-cy*="card-logo"]');
		const out = {
			alt: logo ? (logo.getAttribute('alt') || '') : '',
			priceText: text(card, '[data-cy="results-card_price"]'),
			pricePeriod: text(card, '.results-card-v2__currency--period'),
			rateDollar: '', rateAmount: '', ratePeriod: '',
			altRateDollar: '', altRateAmount: '', altRatePeriod: ''
		};
		const rate = card.querySelector('div[class*="rate"]');
		if (rate) {
			out.rateDollar = text(rate, '.rate__dollar');
			out.rateAmount = text(rate, '.rate__amount');
			out.ratePeriod = text(rate, '.rate__period');
		}
		const leaf = card.querySelector('.rate__amount');
		if (leaf) {
			out.altRateAmount = (leaf.textContent || '').trim();
			const cont = leaf.closest('div[class*="rate"]');
			out.altRateDollar = text(cont, '.rate__dollar');
			out.altRatePeriod = text(cont, '.rate__period');
		}
		return out;
	};
	return Array.from(%s).map(harvest);
})()`, cardsExpr)
}

// Extractor walks the three coverage tiers and scrapes each tier's visible
// cards. Tier-level failures degrade to an empty collection for that tier;
// once the results page is reached, nothing here aborts the run.
type Extractor struct {
	page   schemas.PageSession
	sim    *humanoid.Simulator
	logger *zap.Logger
	waits  config.NetworkConfig
}

// New builds an extractor over the live results page.
func New(page schemas.PageSession, sim *humanoid.Simulator, waits config.NetworkConfig, logger *zap.Logger) *Extractor {
	return &Extractor{
		page:   page,
		sim:    sim,
		logger: logger.Named("extract"),
		waits:  waits,
	}
}

// CollectAll scrapes every tier in order and assembles the final report.
func (e *Extractor) CollectAll(ctx context.Context) schemas.QuoteReport {
	var report schemas.QuoteReport

	for i, spec := range tierTable() {
		records := e.collectTier(ctx, spec, i == 0)
		switch spec.Tier {
		case schemas.TierMinimum:
			report.MinimumPlanQuotes = records
			report.MinimumCount = len(records)
		case schemas.TierBasic:
			report.BasicPlanQuotes = records
			report.BasicCount = len(records)
		case schemas.TierBetter:
			report.BetterPlanQuotes = records
			report.BetterCount = len(records)
		}
	}
	return report
}

// collectTier activates the tier (unless it is already live) and scrapes its
// cards. Failures yield an empty slice, never an error.
func (e *Extractor) collectTier(ctx context.Context, spec TierSpec, first bool) []schemas.QuoteRecord {
	e.logger.Info("Collecting tier.", zap.String("tier", string(spec.Tier)))

	if !first {
		if !e.switchTier(ctx, spec) {
			e.logger.Error("Could not activate tier, recording no quotes.",
				zap.String("tier", string(spec.Tier)))
			return nil
		}
	}

	e.awaitCards(ctx)
	// Prices trickle in after the cards mount; dwell before reading.
	e.sim.Pause(ctx, humanoid.PauseResults)

	cards := e.locateCards(ctx)
	e.logger.Info("Located quote cards.",
		zap.String("tier", string(spec.Tier)), zap.Int("count", len(cards)))

	records := make([]schemas.QuoteRecord, 0, len(cards))
	for idx, card := range cards {
		record, ok := buildRecord(card, spec)
		if !ok {
			e.logger.Info("Skipping card without settled price.",
				zap.Int("card", idx+1), zap.String("company", companyName(card.Alt)))
			continue
		}
		records = append(records, record)
		e.logger.Info("Scraped quote.",
			zap.String("company", record.Company), zap.String("price", record.Price),
			zap.String("tier", string(spec.Tier)))
	}
	return records
}

// switchTier clicks the tier's selector control, trying each locator with a
// trusted click then a scripted one.
func (e *Extractor) switchTier(ctx context.Context, spec TierSpec) bool {
	for _, loc := range spec.Switch {
		if ok, err := e.page.Exists(ctx, loc); err != nil || !ok {
			continue
		}
		if err := e.page.ScrollIntoView(ctx, loc); err == nil {
			e.sim.Pause(ctx, humanoid.PauseShort)
			e.sim.Drift(ctx, e.page)
		}
		if err := e.page.Click(ctx, loc); err != nil {
			if err := e.page.ClickScript(ctx, loc); err != nil {
				e.logger.Debug("Tier switch click failed.",
					zap.String("query", loc.Query), zap.Error(err))
				continue
			}
		}
		return true
	}
	return false
}

// awaitCards polls for any of the known card markers before scraping.
func (e *Extractor) awaitCards(ctx context.Context) {
	probe := schemas.CSS(`[data-cy*="results-card_carrierCard"], [data-cy="results-card_price"], .results-card-v2__body`)
	ok := wizard.PollUntil(ctx, func(c context.Context) (bool, error) {
		return e.page.Exists(c, probe)
	}, 500*time.Millisecond, e.waits.ElementTimeout)
	if !ok {
		e.logger.Warn("Quote cards not found within wait budget, continuing anyway.")
	}
}

// locateCards runs the layered location strategies until one yields cards.
func (e *Extractor) locateCards(ctx context.Context) []rawCard {
	for _, strat := range cardStrategies {
		var cards []rawCard
		if err := e.page.Evaluate(ctx, harvestScript(strat.expr), &cards); err != nil {
			e.logger.Debug("Card location strategy failed.",
				zap.String("strategy", strat.name), zap.Error(err))
			continue
		}
		if len(cards) > 0 {
			e.logger.Debug("Cards located.",
				zap.String("strategy", strat.name), zap.Int("count", len(cards)))
			return cards
		}
	}
	return nil
}

// buildRecord assembles a QuoteRecord from a harvested card. A card without
// an extractable price yields no record at all.
func buildRecord(card rawCard, spec TierSpec) (schemas.QuoteRecord, bool) {
	price := assemblePrice(card)
	if price == "" {
		return schemas.QuoteRecord{}, false
	}
	return schemas.QuoteRecord{
		Company:                 companyName(card.Alt),
		Price:                   price,
		BodilyInjury:            spec.BodilyInjury,
		ComprehensiveDeductible: spec.CompDeductible,
		PlanTier:                spec.Tier,
	}, true
}

// assemblePrice tries the three DOM shapes in order and returns the display
// price, or empty when no shape yielded an amount.
func assemblePrice(card rawCard) string {
	if amount := strings.TrimSpace(card.PriceText); amount != "" {
		period := strings.TrimSpace(card.PricePeriod)
		if period == "" {
			period = "/mo"
		}
		return "$" + strings.TrimPrefix(amount, "$") + period
	}

	if amount := strings.TrimSpace(card.RateAmount); amount != "" {
		return compositePrice(card.RateDollar, amount, card.RatePeriod)
	}
	if amount := strings.TrimSpace(card.AltRateAmount); amount != "" {
		return compositePrice(card.AltRateDollar, amount, card.AltRatePeriod)
	}
	return ""
}

func compositePrice(dollar, amount, period string) string {
	dollar = strings.TrimSpace(dollar)
	if dollar == "" {
		dollar = "$"
	}
	return dollar + amount + strings.TrimSpace(period)
}

// companyName derives the carrier name from a logo's alt text, stripping the
// incidental "logo" wording.
func companyName(alt string) string {
	name := alt
	for _, word := range []string{" logo", "Logo", "logo"} {
		name = strings.ReplaceAll(name, word, "")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "Unknown"
	}
	return name
}
