package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"gorm.io/gorm"

	"leadnexus/models"
)

func newTestReconciler(db *gorm.DB, notifier *fakeNotifier) *PaymentReconciler {
	ledger := NewCreditLedger(db, quietLogger())
	premium := NewPremiumStatusManager(db, quietLogger(), 10)
	return NewPaymentReconciler(db, ledger, premium, notifier, DefaultPriceTable(), quietAuditLogger(), 30)
}

func paidSession(id string, amount int64, email string) *stripe.CheckoutSession {
	return &stripe.CheckoutSession{
		ID:            id,
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		AmountTotal:   amount,
		CustomerDetails: &stripe.CheckoutSessionCustomerDetails{
			Email: email,
		},
	}
}

func TestCheckoutAutoProvisionsAndCredits(t *testing.T) {
	db := newTestDB(t)
	notifier := &fakeNotifier{}
	rec := newTestReconciler(db, notifier)

	session := paidSession("pi_pro_1", 70000, "New.Buyer@Example.com")
	session.LineItems = &stripe.LineItemList{Data: []*stripe.LineItem{
		{Description: "Pro Pack", Price: &stripe.Price{ID: "price_unmapped"}},
	}}

	outcome, err := rec.ProcessCheckoutSession(session)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, outcome.Status)
	assert.Equal(t, models.PurchaseCreditPack, outcome.Kind)
	assert.Equal(t, 20, outcome.Credits)

	var provider models.Provider
	require.NoError(t, db.Where("email = ?", "new.buyer@example.com").First(&provider).Error)
	assert.Equal(t, 20, provider.CreditBalance)
	assert.True(t, provider.Verified)
	assert.Equal(t, 10, provider.PriorityWeight)
	require.NotNil(t, provider.PremiumExpiresAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), *provider.PremiumExpiresAt, time.Minute)
	require.NotNil(t, provider.LastPurchaseAt)

	var entry models.CreditTransaction
	require.NoError(t, db.Where("provider_id = ?", provider.ID).First(&entry).Error)
	assert.Equal(t, models.TxPackCredit, entry.Type)
	assert.Equal(t, 20, entry.Amount)
	assert.Equal(t, "pi_pro_1", entry.Reference)

	assert.Equal(t, []int{20}, notifier.receipts)
	assert.Equal(t, []uint{provider.ID}, notifier.premiumNotices)
}

func TestCheckoutDuplicateCreditsOnce(t *testing.T) {
	db := newTestDB(t)
	notifier := &fakeNotifier{}
	rec := newTestReconciler(db, notifier)

	session := paidSession("pi_dup_1", 20000, "buyer@example.com")
	first, err := rec.ProcessCheckoutSession(session)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, first.Status)

	second, err := rec.ProcessCheckoutSession(session)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentAlreadyProcessed, second.Status)

	var provider models.Provider
	require.NoError(t, db.Where("email = ?", "buyer@example.com").First(&provider).Error)
	assert.Equal(t, 5, provider.CreditBalance)

	var entries int64
	require.NoError(t, db.Model(&models.CreditTransaction{}).Where("provider_id = ?", provider.ID).Count(&entries).Error)
	assert.EqualValues(t, 1, entries)
	assert.Equal(t, []int{5}, notifier.receipts)
}

func TestCheckoutUnpaidSessionFails(t *testing.T) {
	db := newTestDB(t)
	notifier := &fakeNotifier{}
	rec := newTestReconciler(db, notifier)

	session := paidSession("pi_unpaid_1", 20000, "buyer@example.com")
	session.PaymentStatus = stripe.CheckoutSessionPaymentStatusUnpaid

	outcome, err := rec.ProcessCheckoutSession(session)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, outcome.Status)

	var count int64
	require.NoError(t, db.Model(&models.Provider{}).Count(&count).Error)
	assert.EqualValues(t, 0, count, "unpaid session must not provision anyone")
	assert.Empty(t, notifier.alerts, "unpaid is a gateway state, not an operator problem")
}

func TestCheckoutUnknownAmountAlertsOperator(t *testing.T) {
	db := newTestDB(t)
	notifier := &fakeNotifier{}
	rec := newTestReconciler(db, notifier)

	outcome, err := rec.ProcessCheckoutSession(paidSession("pi_odd_1", 4242, "buyer@example.com"))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, outcome.Status)
	assert.Equal(t, models.PurchaseUnknown, outcome.Kind)
	require.Len(t, notifier.alerts, 1)
	assert.Contains(t, notifier.alerts[0], "pi_odd_1")

	var event models.PaymentEvent
	require.NoError(t, db.Where("external_payment_id = ?", "pi_odd_1").First(&event).Error)
	assert.Equal(t, models.PaymentFailed, event.Status)
}

// A failed event is not terminal: a redelivery of the same payment id gets a
// fresh attempt, and only then does the outcome become permanent.
func TestFailedEventCanBeReclaimed(t *testing.T) {
	db := newTestDB(t)
	notifier := &fakeNotifier{}
	rec := newTestReconciler(db, notifier)

	unpaid := paidSession("pi_retry_1", 20000, "buyer@example.com")
	unpaid.PaymentStatus = stripe.CheckoutSessionPaymentStatusUnpaid
	outcome, err := rec.ProcessCheckoutSession(unpaid)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, outcome.Status)

	outcome, err = rec.ProcessCheckoutSession(paidSession("pi_retry_1", 20000, "buyer@example.com"))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, outcome.Status)

	var provider models.Provider
	require.NoError(t, db.Where("email = ?", "buyer@example.com").First(&provider).Error)
	assert.Equal(t, 5, provider.CreditBalance)
}

// An attempt that died after claiming but before applying credits leaves a
// processing row behind. Once that claim goes stale, a redelivery must take it
// over and apply the purchase instead of acking it as already processed.
func TestStaleProcessingClaimIsRecovered(t *testing.T) {
	db := newTestDB(t)
	notifier := &fakeNotifier{}
	rec := newTestReconciler(db, notifier)

	stuck := models.PaymentEvent{
		ExternalPaymentID: "pi_stuck_1",
		RawAmount:         20000,
		PayerEmail:        "buyer@example.com",
		Status:            models.PaymentProcessing,
	}
	require.NoError(t, db.Create(&stuck).Error)
	// UpdateColumn leaves updated_at alone, so age it explicitly
	require.NoError(t, db.Model(&stuck).
		UpdateColumn("updated_at", time.Now().Add(-time.Hour)).Error)

	outcome, err := rec.ProcessCheckoutSession(paidSession("pi_stuck_1", 20000, "buyer@example.com"))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, outcome.Status)

	var provider models.Provider
	require.NoError(t, db.Where("email = ?", "buyer@example.com").First(&provider).Error)
	assert.Equal(t, 5, provider.CreditBalance)

	var event models.PaymentEvent
	require.NoError(t, db.Where("external_payment_id = ?", "pi_stuck_1").First(&event).Error)
	assert.Equal(t, models.PaymentSuccess, event.Status)
}

// A fresh processing claim belongs to an in-flight attempt and stays
// exclusive: a concurrent delivery of the same payment backs off.
func TestFreshProcessingClaimStaysExclusive(t *testing.T) {
	db := newTestDB(t)
	notifier := &fakeNotifier{}
	rec := newTestReconciler(db, notifier)

	inflight := models.PaymentEvent{
		ExternalPaymentID: "pi_inflight_1",
		RawAmount:         20000,
		PayerEmail:        "buyer@example.com",
		Status:            models.PaymentProcessing,
	}
	require.NoError(t, db.Create(&inflight).Error)

	outcome, err := rec.ProcessCheckoutSession(paidSession("pi_inflight_1", 20000, "buyer@example.com"))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentAlreadyProcessed, outcome.Status)

	var count int64
	require.NoError(t, db.Model(&models.Provider{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestCheckoutSingleLeadPurchase(t *testing.T) {
	db := newTestDB(t)
	notifier := &fakeNotifier{}
	rec := newTestReconciler(db, notifier)

	lead := createLead(t, db, "LEADBUY1", "34102")

	session := paidSession("pi_lead_1", 3500, "homeshopper@example.com")
	session.ClientReferenceID = "LEADBUY1"

	outcome, err := rec.ProcessCheckoutSession(session)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, outcome.Status)
	assert.Equal(t, models.PurchaseSingleLead, outcome.Kind)
	assert.Equal(t, []string{"homeshopper@example.com"}, notifier.buyerSends)

	var reloaded models.Lead
	require.NoError(t, db.First(&reloaded, lead.ID).Error)
	assert.Equal(t, models.LeadPurchased, reloaded.Status)
}

// The purchased status commits before the buyer email goes out, so a flaky
// send never leaves a paid-for lead looking unsold.
func TestSingleLeadPurchaseSurvivesBuyerSendFailure(t *testing.T) {
	db := newTestDB(t)
	notifier := &fakeNotifier{failBuyer: true}
	rec := newTestReconciler(db, notifier)

	lead := createLead(t, db, "LEADBUY2", "34102")

	session := paidSession("pi_lead_3", 3500, "homeshopper@example.com")
	session.ClientReferenceID = "LEADBUY2"

	outcome, err := rec.ProcessCheckoutSession(session)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, outcome.Status)

	var reloaded models.Lead
	require.NoError(t, db.First(&reloaded, lead.ID).Error)
	assert.Equal(t, models.LeadPurchased, reloaded.Status)
}

func TestCheckoutSingleLeadUnknownCode(t *testing.T) {
	db := newTestDB(t)
	notifier := &fakeNotifier{}
	rec := newTestReconciler(db, notifier)

	session := paidSession("pi_lead_2", 3500, "homeshopper@example.com")
	session.ClientReferenceID = "MISSING1"

	outcome, err := rec.ProcessCheckoutSession(session)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, outcome.Status)
	assert.Len(t, notifier.alerts, 1)
	assert.Empty(t, notifier.buyerSends)
}

func TestCheckoutBadPayerEmailFails(t *testing.T) {
	db := newTestDB(t)
	notifier := &fakeNotifier{}
	rec := newTestReconciler(db, notifier)

	outcome, err := rec.ProcessCheckoutSession(paidSession("pi_noaddr_1", 20000, ""))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, outcome.Status)
	assert.Len(t, notifier.alerts, 1)
}

func TestCheckoutPaymentIntentIDWinsOverSessionID(t *testing.T) {
	db := newTestDB(t)
	rec := newTestReconciler(db, &fakeNotifier{})

	session := paidSession("cs_abc", 20000, "buyer@example.com")
	session.PaymentIntent = &stripe.PaymentIntent{ID: "pi_real_1"}

	_, err := rec.ProcessCheckoutSession(session)
	require.NoError(t, err)

	var event models.PaymentEvent
	require.NoError(t, db.Where("external_payment_id = ?", "pi_real_1").First(&event).Error)
}

func TestInvoiceCreditsSubscription(t *testing.T) {
	db := newTestDB(t)
	notifier := &fakeNotifier{}
	rec := newTestReconciler(db, notifier)

	existing := createProvider(t, db, "alpha", 2, "34102")

	invoice := &stripe.Invoice{
		ID:            "in_sub_1",
		Paid:          true,
		AmountPaid:    9900,
		CustomerEmail: existing.Email,
	}
	outcome, err := rec.ProcessInvoice(invoice)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, outcome.Status)
	assert.Equal(t, models.PurchaseSubscription, outcome.Kind)
	assert.Equal(t, 3, outcome.Credits)

	var provider models.Provider
	require.NoError(t, db.First(&provider, existing.ID).Error)
	assert.Equal(t, 5, provider.CreditBalance)
	assert.True(t, provider.Verified)
	require.NotNil(t, provider.PremiumExpiresAt)

	var entry models.CreditTransaction
	require.NoError(t, db.Where("provider_id = ? AND type = ?", provider.ID, models.TxSubscriptionCredit).First(&entry).Error)
	assert.Equal(t, 3, entry.Amount)
}

func TestInvoiceUnpaidFails(t *testing.T) {
	db := newTestDB(t)
	notifier := &fakeNotifier{}
	rec := newTestReconciler(db, notifier)

	invoice := &stripe.Invoice{ID: "in_unpaid_1", Paid: false, AmountPaid: 0, CustomerEmail: "buyer@example.com"}
	outcome, err := rec.ProcessInvoice(invoice)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, outcome.Status)
}

func TestInvoiceUnknownAmountAlerts(t *testing.T) {
	db := newTestDB(t)
	notifier := &fakeNotifier{}
	rec := newTestReconciler(db, notifier)

	invoice := &stripe.Invoice{ID: "in_odd_1", Paid: true, AmountPaid: 1234, CustomerEmail: "buyer@example.com"}
	outcome, err := rec.ProcessInvoice(invoice)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, outcome.Status)
	assert.Len(t, notifier.alerts, 1)
}
