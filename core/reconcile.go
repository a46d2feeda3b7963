package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"leadnexus/models"
)

// ReconcileOutcome reports what one payment event resolved to.
type ReconcileOutcome struct {
	Status     string `json:"status"` // models.Payment* constant
	Kind       string `json:"kind"`
	ProviderID uint   `json:"provider_id,omitempty"`
	Credits    int    `json:"credits,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// PaymentReconciler consumes verified payment-gateway events and applies
// their ledger and perk effects exactly once per external payment id.
// Signature verification happens at the HTTP edge before events reach it.
type PaymentReconciler struct {
	DB       *gorm.DB
	Ledger   *CreditLedger
	Premium  *PremiumStatusManager
	Notifier Notifier
	Prices   *PriceTable
	Logger   *logrus.Logger

	// PremiumDays is the perk window granted by qualifying purchases
	PremiumDays int
}

func NewPaymentReconciler(db *gorm.DB, ledger *CreditLedger, premium *PremiumStatusManager, notifier Notifier, prices *PriceTable, logger *logrus.Logger, premiumDays int) *PaymentReconciler {
	return &PaymentReconciler{
		DB:          db,
		Ledger:      ledger,
		Premium:     premium,
		Notifier:    notifier,
		Prices:      prices,
		Logger:      logger,
		PremiumDays: premiumDays,
	}
}

// ProcessCheckoutSession reconciles a completed checkout: credit pack or
// single-lead purchase. Business failures (unknown purchase, missing lead)
// are recorded and alerted but do not propagate as errors, so the gateway is
// still acknowledged instead of retrying a permanently unresolvable event.
func (pr *PaymentReconciler) ProcessCheckoutSession(session *stripe.CheckoutSession) (*ReconcileOutcome, error) {
	paymentID := session.ID
	if session.PaymentIntent != nil {
		paymentID = session.PaymentIntent.ID
	}

	email := session.CustomerEmail
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		email = session.CustomerDetails.Email
	}

	event, claimed, err := pr.claim(paymentID, session.AmountTotal, email)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return pr.duplicate(event), nil
	}

	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return pr.fail(event, models.PurchaseUnknown, fmt.Sprintf("payment status %q, nothing applied", session.PaymentStatus), false)
	}

	ctx := &PurchaseContext{
		Metadata:       session.Metadata,
		AmountSubtotal: session.AmountSubtotal,
		AmountTotal:    session.AmountTotal,
		LeadRef:        session.ClientReferenceID,
	}
	if session.LineItems != nil {
		for _, item := range session.LineItems.Data {
			if item.Description != "" {
				ctx.LineItemNames = append(ctx.LineItemNames, item.Description)
			}
			if item.Price != nil {
				ctx.PriceIDs = append(ctx.PriceIDs, item.Price.ID)
			}
		}
	}

	cls := pr.Prices.Classify(ctx)
	pr.Logger.WithFields(logrus.Fields{
		"payment_id": paymentID,
		"amount":     session.AmountTotal,
		"kind":       cls.Kind,
		"matcher":    cls.Matcher,
	}).Info("checkout payment classified")

	switch cls.Kind {
	case models.PurchaseCreditPack:
		return pr.applyCreditPurchase(event, email, cls, models.TxPackCredit)
	case models.PurchaseSingleLead:
		return pr.applySingleLead(event, session.ClientReferenceID, email)
	default:
		return pr.fail(event, models.PurchaseUnknown,
			fmt.Sprintf("no matcher classified amount %d", session.AmountTotal), true)
	}
}

// ProcessInvoice reconciles a recurring subscription invoice into monthly
// credits plus the premium perk.
func (pr *PaymentReconciler) ProcessInvoice(invoice *stripe.Invoice) (*ReconcileOutcome, error) {
	paymentID := invoice.ID
	if invoice.PaymentIntent != nil {
		paymentID = invoice.PaymentIntent.ID
	}

	event, claimed, err := pr.claim(paymentID, invoice.AmountPaid, invoice.CustomerEmail)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return pr.duplicate(event), nil
	}

	if !invoice.Paid || invoice.AmountPaid <= 0 {
		return pr.fail(event, models.PurchaseSubscription, "invoice not paid, nothing applied", false)
	}

	cls := pr.Prices.ClassifySubscription(invoice.AmountPaid)
	pr.Logger.WithFields(logrus.Fields{
		"payment_id":     paymentID,
		"amount":         invoice.AmountPaid,
		"billing_reason": invoice.BillingReason,
		"kind":           cls.Kind,
	}).Info("invoice payment classified")

	if cls.Kind != models.PurchaseSubscription {
		return pr.fail(event, models.PurchaseUnknown,
			fmt.Sprintf("no subscription plan for amount %d", invoice.AmountPaid), true)
	}
	return pr.applyCreditPurchase(event, invoice.CustomerEmail, cls, models.TxSubscriptionCredit)
}

// staleClaimWindow bounds how long a processing claim stays exclusive. A row
// stuck in processing past it belonged to an attempt that died mid-flight and
// may be taken over by the next delivery.
const staleClaimWindow = 10 * time.Minute

// claim atomically inserts the PaymentEvent row keyed by the external payment
// id. A losing insert returns the existing row and claimed=false, closing the
// race between concurrent deliveries of the same duplicate. A previously
// failed event may be re-claimed, since the gateway redelivers only when the
// charge itself is worth another look; so may a processing claim older than
// staleClaimWindow. Only terminal success states stay closed.
func (pr *PaymentReconciler) claim(paymentID string, amount int64, email string) (*models.PaymentEvent, bool, error) {
	event := models.PaymentEvent{
		ExternalPaymentID: paymentID,
		RawAmount:         amount,
		PayerEmail:        strings.ToLower(email),
		Status:            models.PaymentProcessing,
	}
	res := pr.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_payment_id"}},
		DoNothing: true,
	}).Create(&event)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return &event, true, nil
	}

	var existing models.PaymentEvent
	if err := pr.DB.Where("external_payment_id = ?", paymentID).First(&existing).Error; err != nil {
		return nil, false, err
	}
	if existing.Status == models.PaymentFailed ||
		(existing.Status == models.PaymentProcessing && time.Since(existing.UpdatedAt) > staleClaimWindow) {
		// The guarded update renews updated_at, so the winner holds a fresh
		// lease and a concurrent takeover attempt affects zero rows.
		takeover := pr.DB.Model(&models.PaymentEvent{}).
			Where("id = ? AND (status = ? OR updated_at < ?)",
				existing.ID, models.PaymentFailed, time.Now().Add(-staleClaimWindow)).
			Update("status", models.PaymentProcessing)
		if takeover.Error != nil {
			return nil, false, takeover.Error
		}
		if takeover.RowsAffected == 1 {
			existing.Status = models.PaymentProcessing
			return &existing, true, nil
		}
	}
	return &existing, false, nil
}

func (pr *PaymentReconciler) duplicate(event *models.PaymentEvent) *ReconcileOutcome {
	// Not an error from the gateway's perspective: acknowledge and do nothing.
	pr.Logger.WithFields(logrus.Fields{
		"payment_id": event.ExternalPaymentID,
		"status":     event.Status,
	}).Warn("duplicate payment delivery, no side effects applied")
	return &ReconcileOutcome{
		Status: models.PaymentAlreadyProcessed,
		Kind:   event.Kind,
		Detail: "payment already processed",
	}
}

func (pr *PaymentReconciler) applyCreditPurchase(event *models.PaymentEvent, email string, cls Classification, txType string) (*ReconcileOutcome, error) {
	if err := checkmail.ValidateFormat(email); err != nil {
		return pr.fail(event, cls.Kind, fmt.Sprintf("unusable payer email %q", email), true)
	}

	provider, err := pr.resolveOrProvision(email)
	if err != nil {
		return nil, err
	}

	balance, err := pr.Ledger.Credit(provider.ID, cls.Pack.Credits, txType, event.ExternalPaymentID)
	if err != nil {
		return nil, err
	}
	if err := pr.DB.Model(provider).Update("last_purchase_at", time.Now()).Error; err != nil {
		return nil, err
	}

	if cls.Pack.Perk {
		if err := pr.Premium.Grant(provider.ID, pr.PremiumDays); err != nil {
			return nil, err
		}
		if err := pr.DB.First(provider, provider.ID).Error; err != nil {
			return nil, err
		}
		if nerr := pr.Notifier.SendPremiumActivated(provider); nerr != nil {
			pr.Logger.WithField("provider_id", provider.ID).Warnf("premium notice failed: %v", nerr)
		}
	}
	if nerr := pr.Notifier.SendPurchaseReceipt(provider, cls.Pack.Credits, balance); nerr != nil {
		pr.Logger.WithField("provider_id", provider.ID).Warnf("receipt failed: %v", nerr)
	}

	if err := pr.finalize(event, models.PaymentSuccess, cls.Kind, &provider.ID, cls.Pack.Credits, cls.Matcher); err != nil {
		return nil, err
	}
	return &ReconcileOutcome{
		Status:     models.PaymentSuccess,
		Kind:       cls.Kind,
		ProviderID: provider.ID,
		Credits:    cls.Pack.Credits,
	}, nil
}

func (pr *PaymentReconciler) applySingleLead(event *models.PaymentEvent, leadCode, email string) (*ReconcileOutcome, error) {
	var lead models.Lead
	if err := pr.DB.Where("code = ?", leadCode).First(&lead).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return pr.fail(event, models.PurchaseSingleLead, fmt.Sprintf("lead %q not found", leadCode), true)
		}
		return nil, err
	}

	// Monotonic: purchased is terminal, never reverted. Duplicate deliveries
	// are already blocked by claim, this guard covers manual replays. The
	// status commits before the send, so a failed write never leaves a
	// delivered lead looking unsold.
	if lead.Status != models.LeadPurchased {
		if err := pr.DB.Model(&lead).Update("status", models.LeadPurchased).Error; err != nil {
			return nil, err
		}
	}

	if nerr := pr.Notifier.SendLeadToBuyer(email, &lead); nerr != nil {
		pr.Logger.WithField("lead", lead.Code).Warnf("buyer delivery failed: %v", nerr)
	}

	if err := pr.finalize(event, models.PaymentSuccess, models.PurchaseSingleLead, nil, 0, "lead_reference"); err != nil {
		return nil, err
	}
	return &ReconcileOutcome{
		Status: models.PaymentSuccess,
		Kind:   models.PurchaseSingleLead,
		Detail: "lead " + lead.Code + " delivered to " + email,
	}, nil
}

// resolveOrProvision finds the provider owning the payer email, creating an
// inactive-area but active account on first purchase. Inherited ambiguity:
// alias or case-variant emails create separate provider records.
func (pr *PaymentReconciler) resolveOrProvision(email string) (*models.Provider, error) {
	normalized := strings.ToLower(email)
	var provider models.Provider
	err := pr.DB.Where("email = ?", normalized).First(&provider).Error
	if err == nil {
		return &provider, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	provider = models.Provider{
		CompanyName: normalized,
		Email:       normalized,
		Status:      models.ProviderActive,
	}
	if err := pr.DB.Create(&provider).Error; err != nil {
		return nil, err
	}
	pr.Logger.WithFields(logrus.Fields{
		"provider_id": provider.ID,
		"email":       normalized,
	}).Info("auto-provisioned provider from payment")
	return &provider, nil
}

// fail records a terminal failure. Alerting is best-effort; the gateway still
// gets an acknowledgment, since retrying a permanently unresolvable event
// would never converge.
func (pr *PaymentReconciler) fail(event *models.PaymentEvent, kind, detail string, alert bool) (*ReconcileOutcome, error) {
	pr.Logger.WithFields(logrus.Fields{
		"payment_id": event.ExternalPaymentID,
		"kind":       kind,
	}).Warnf("payment not applied: %s", detail)

	if alert {
		if nerr := pr.Notifier.SendOperatorAlert("payment needs review: "+event.ExternalPaymentID, detail); nerr != nil {
			pr.Logger.Warnf("operator alert failed: %v", nerr)
		}
	}
	if err := pr.finalize(event, models.PaymentFailed, kind, nil, 0, detail); err != nil {
		return nil, err
	}
	return &ReconcileOutcome{Status: models.PaymentFailed, Kind: kind, Detail: detail}, nil
}

func (pr *PaymentReconciler) finalize(event *models.PaymentEvent, status, kind string, providerID *uint, credits int, detail string) error {
	updates := map[string]interface{}{
		"status":  status,
		"kind":    kind,
		"credits": credits,
		"detail":  detail,
	}
	if providerID != nil {
		updates["provider_id"] = *providerID
	}
	return pr.DB.Model(event).Updates(updates).Error
}
