package core

import (
	"encoding/json"
	"strconv"
	"strings"

	"leadnexus/models"
)

// PackPlan describes one purchasable credit bundle.
type PackPlan struct {
	Name    string `json:"name"`
	Credits int    `json:"credits"`
	Perk    bool   `json:"perk"` // grants the verified + priority boost
}

// PriceTable is the externally configurable pricing knowledge the classifier
// matches against. All amounts are in cents.
type PriceTable struct {
	// Packs keyed by their advertised price
	Packs map[int64]PackPlan `json:"packs"`
	// Subscriptions keyed by the recurring invoice amount
	Subscriptions map[int64]PackPlan `json:"subscriptions"`
	// Stripe price identifiers mapped straight to a pack
	PriceIDs map[string]PackPlan `json:"price_ids"`
	// Tolerance for the amount-proximity fallback
	ToleranceCents int64 `json:"tolerance_cents"`
}

// DefaultPriceTable mirrors the production pack lineup: $200 -> 5 credits,
// $700 -> 20 (with perk), $1500 -> 60 (with perk), $99/mo -> 3 (with perk).
func DefaultPriceTable() *PriceTable {
	return &PriceTable{
		Packs: map[int64]PackPlan{
			20000:  {Name: "starter", Credits: 5},
			70000:  {Name: "pro", Credits: 20, Perk: true},
			150000: {Name: "growth", Credits: 60, Perk: true},
		},
		Subscriptions: map[int64]PackPlan{
			9900: {Name: "monthly", Credits: 3, Perk: true},
		},
		PriceIDs:       map[string]PackPlan{},
		ToleranceCents: 500,
	}
}

// PriceTableFromJSON overlays a JSON document from configuration onto the
// defaults; an empty document keeps them as is.
func PriceTableFromJSON(raw string) (*PriceTable, error) {
	table := DefaultPriceTable()
	if strings.TrimSpace(raw) == "" {
		return table, nil
	}
	if err := json.Unmarshal([]byte(raw), table); err != nil {
		return nil, err
	}
	return table, nil
}

func (pt *PriceTable) packByName(name string) (PackPlan, bool) {
	needle := strings.ToLower(name)
	for _, plan := range pt.Packs {
		if plan.Name != "" && strings.Contains(needle, plan.Name) {
			return plan, true
		}
	}
	return PackPlan{}, false
}

// PurchaseContext is the normalized view of one gateway payment the matcher
// cascade runs over.
type PurchaseContext struct {
	PriceIDs       []string
	Metadata       map[string]string
	LineItemNames  []string
	AmountSubtotal int64
	AmountTotal    int64
	LeadRef        string
}

// Classification is the cascade's verdict.
type Classification struct {
	Kind    string // models.Purchase* constant
	Pack    PackPlan
	Matcher string // which matcher decided, for the audit trail
}

// matcher inspects one aspect of the purchase and either classifies it or
// passes. First non-nil result wins.
type matcher struct {
	name string
	fn   func(*PriceTable, *PurchaseContext) *Classification
}

var matchers = []matcher{
	{"price_id", matchPriceID},
	{"metadata", matchMetadata},
	{"line_item", matchLineItem},
	{"subtotal", matchSubtotal},
	{"amount", matchAmount},
	{"amount_tolerance", matchAmountTolerance},
	{"lead_reference", matchLeadReference},
}

// Classify runs the ordered matcher cascade over one checkout purchase.
func (pt *PriceTable) Classify(ctx *PurchaseContext) Classification {
	for _, m := range matchers {
		if cls := m.fn(pt, ctx); cls != nil {
			cls.Matcher = m.name
			return *cls
		}
	}
	return Classification{Kind: models.PurchaseUnknown, Matcher: "none"}
}

// ClassifySubscription resolves a recurring invoice amount against the
// subscription table.
func (pt *PriceTable) ClassifySubscription(amountPaid int64) Classification {
	if plan, ok := pt.Subscriptions[amountPaid]; ok {
		return Classification{Kind: models.PurchaseSubscription, Pack: plan, Matcher: "subscription_amount"}
	}
	return Classification{Kind: models.PurchaseUnknown, Matcher: "none"}
}

func matchPriceID(pt *PriceTable, ctx *PurchaseContext) *Classification {
	for _, id := range ctx.PriceIDs {
		if plan, ok := pt.PriceIDs[id]; ok {
			return &Classification{Kind: models.PurchaseCreditPack, Pack: plan}
		}
	}
	return nil
}

func matchMetadata(pt *PriceTable, ctx *PurchaseContext) *Classification {
	if raw, ok := ctx.Metadata["credits"]; ok {
		if credits, err := strconv.Atoi(raw); err == nil && credits > 0 {
			return &Classification{Kind: models.PurchaseCreditPack, Pack: PackPlan{
				Name:    "metadata",
				Credits: credits,
				Perk:    ctx.Metadata["perk"] == "true",
			}}
		}
	}
	if name, ok := ctx.Metadata["pack"]; ok {
		if plan, found := pt.packByName(name); found {
			return &Classification{Kind: models.PurchaseCreditPack, Pack: plan}
		}
	}
	return nil
}

func matchLineItem(pt *PriceTable, ctx *PurchaseContext) *Classification {
	for _, name := range ctx.LineItemNames {
		if plan, found := pt.packByName(name); found {
			return &Classification{Kind: models.PurchaseCreditPack, Pack: plan}
		}
	}
	return nil
}

// matchSubtotal checks the pre-discount subtotal, so a couponed purchase of a
// known pack still classifies.
func matchSubtotal(pt *PriceTable, ctx *PurchaseContext) *Classification {
	if ctx.AmountSubtotal <= 0 || ctx.AmountSubtotal == ctx.AmountTotal {
		return nil
	}
	if plan, ok := pt.Packs[ctx.AmountSubtotal]; ok {
		return &Classification{Kind: models.PurchaseCreditPack, Pack: plan}
	}
	return nil
}

func matchAmount(pt *PriceTable, ctx *PurchaseContext) *Classification {
	if plan, ok := pt.Packs[ctx.AmountTotal]; ok {
		return &Classification{Kind: models.PurchaseCreditPack, Pack: plan}
	}
	return nil
}

// matchAmountTolerance picks the nearest pack within the configured tolerance.
// Inherited ambiguity: an unrelated payment of a coincidentally similar
// amount will classify as that pack.
func matchAmountTolerance(pt *PriceTable, ctx *PurchaseContext) *Classification {
	var best *Classification
	bestDiff := pt.ToleranceCents + 1
	for price, plan := range pt.Packs {
		diff := price - ctx.AmountTotal
		if diff < 0 {
			diff = -diff
		}
		if diff <= pt.ToleranceCents && diff < bestDiff {
			bestDiff = diff
			best = &Classification{Kind: models.PurchaseCreditPack, Pack: plan}
		}
	}
	return best
}

func matchLeadReference(pt *PriceTable, ctx *PurchaseContext) *Classification {
	if ctx.LeadRef != "" {
		return &Classification{Kind: models.PurchaseSingleLead}
	}
	return nil
}
