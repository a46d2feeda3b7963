package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadnexus/models"
)

func TestClassifyExactAmount(t *testing.T) {
	pt := DefaultPriceTable()

	cls := pt.Classify(&PurchaseContext{AmountTotal: 20000})
	assert.Equal(t, models.PurchaseCreditPack, cls.Kind)
	assert.Equal(t, 5, cls.Pack.Credits)
	assert.Equal(t, "amount", cls.Matcher)

	cls = pt.Classify(&PurchaseContext{AmountTotal: 150000})
	assert.Equal(t, 60, cls.Pack.Credits)
	assert.True(t, cls.Pack.Perk)
}

func TestClassifyAmountWithinTolerance(t *testing.T) {
	pt := DefaultPriceTable()

	cls := pt.Classify(&PurchaseContext{AmountTotal: 20300})
	assert.Equal(t, models.PurchaseCreditPack, cls.Kind)
	assert.Equal(t, 5, cls.Pack.Credits)
	assert.Equal(t, "amount_tolerance", cls.Matcher)

	// just outside the window
	cls = pt.Classify(&PurchaseContext{AmountTotal: 20600})
	assert.Equal(t, models.PurchaseUnknown, cls.Kind)
}

func TestClassifyMetadataCreditsWinOverAmount(t *testing.T) {
	pt := DefaultPriceTable()

	cls := pt.Classify(&PurchaseContext{
		AmountTotal: 65000, // matches nothing on its own
		Metadata:    map[string]string{"credits": "60", "perk": "true"},
	})
	assert.Equal(t, models.PurchaseCreditPack, cls.Kind)
	assert.Equal(t, 60, cls.Pack.Credits)
	assert.True(t, cls.Pack.Perk)
	assert.Equal(t, "metadata", cls.Matcher)
}

func TestClassifyMetadataPackName(t *testing.T) {
	pt := DefaultPriceTable()

	cls := pt.Classify(&PurchaseContext{Metadata: map[string]string{"pack": "Growth Bundle"}})
	assert.Equal(t, models.PurchaseCreditPack, cls.Kind)
	assert.Equal(t, 60, cls.Pack.Credits)
}

func TestClassifyLineItemName(t *testing.T) {
	pt := DefaultPriceTable()

	cls := pt.Classify(&PurchaseContext{
		LineItemNames: []string{"Pro Pack (20 leads)"},
		AmountTotal:   12345,
	})
	assert.Equal(t, models.PurchaseCreditPack, cls.Kind)
	assert.Equal(t, 20, cls.Pack.Credits)
	assert.Equal(t, "line_item", cls.Matcher)
}

func TestClassifyPriceIDWinsOverEverything(t *testing.T) {
	pt := DefaultPriceTable()
	pt.PriceIDs["price_abc123"] = PackPlan{Name: "starter", Credits: 5}

	cls := pt.Classify(&PurchaseContext{
		PriceIDs:    []string{"price_abc123"},
		Metadata:    map[string]string{"credits": "999"},
		AmountTotal: 150000,
	})
	assert.Equal(t, 5, cls.Pack.Credits)
	assert.Equal(t, "price_id", cls.Matcher)
}

func TestClassifySubtotalSurvivesDiscount(t *testing.T) {
	pt := DefaultPriceTable()

	cls := pt.Classify(&PurchaseContext{
		AmountSubtotal: 70000,
		AmountTotal:    56000, // 20% coupon applied
	})
	assert.Equal(t, models.PurchaseCreditPack, cls.Kind)
	assert.Equal(t, 20, cls.Pack.Credits)
	assert.Equal(t, "subtotal", cls.Matcher)
}

func TestClassifyLeadReferenceFallsThroughToSingleLead(t *testing.T) {
	pt := DefaultPriceTable()

	cls := pt.Classify(&PurchaseContext{AmountTotal: 3500, LeadRef: "LEADABCD"})
	assert.Equal(t, models.PurchaseSingleLead, cls.Kind)
	assert.Equal(t, "lead_reference", cls.Matcher)
}

func TestClassifyUnknown(t *testing.T) {
	pt := DefaultPriceTable()

	cls := pt.Classify(&PurchaseContext{AmountTotal: 4242})
	assert.Equal(t, models.PurchaseUnknown, cls.Kind)
	assert.Equal(t, "none", cls.Matcher)
}

func TestClassifySubscription(t *testing.T) {
	pt := DefaultPriceTable()

	cls := pt.ClassifySubscription(9900)
	assert.Equal(t, models.PurchaseSubscription, cls.Kind)
	assert.Equal(t, 3, cls.Pack.Credits)
	assert.True(t, cls.Pack.Perk)

	cls = pt.ClassifySubscription(1234)
	assert.Equal(t, models.PurchaseUnknown, cls.Kind)
}

func TestPriceTableFromJSONOverlay(t *testing.T) {
	pt, err := PriceTableFromJSON(`{"packs":{"5000":{"name":"mini","credits":1}},"tolerance_cents":100}`)
	require.NoError(t, err)
	assert.EqualValues(t, 100, pt.ToleranceCents)
	assert.Equal(t, 1, pt.Packs[5000].Credits)

	pt, err = PriceTableFromJSON("")
	require.NoError(t, err)
	assert.Equal(t, 5, pt.Packs[20000].Credits)

	_, err = PriceTableFromJSON("{not json")
	assert.Error(t, err)
}
