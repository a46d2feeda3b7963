package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"leadnexus/models"
)

func newTestIntake(db *gorm.DB, notifier *fakeNotifier) *LeadIntake {
	ledger := NewCreditLedger(db, quietLogger())
	dispatcher := NewDispatcher(db, ledger, notifier, quietLogger(), 1)
	directory := NewProviderDirectory(db)
	return NewLeadIntake(db, directory, dispatcher, quietLogger())
}

func validInput() LeadInput {
	return LeadInput{
		FirstName:   "Dana",
		Phone:       "555-010-9988",
		Email:       "dana@example.com",
		Zip:         "34102",
		ProjectType: "roofing",
	}
}

func TestSubmitRejectsBadInput(t *testing.T) {
	db := newTestDB(t)
	intake := newTestIntake(db, &fakeNotifier{})

	cases := map[string]func(*LeadInput){
		"missing first name": func(in *LeadInput) { in.FirstName = "" },
		"missing phone":      func(in *LeadInput) { in.Phone = "" },
		"bad email":          func(in *LeadInput) { in.Email = "not-an-email" },
		"short zip":          func(in *LeadInput) { in.Zip = "3410" },
		"non-numeric zip":    func(in *LeadInput) { in.Zip = "3410a" },
		"missing project":    func(in *LeadInput) { in.ProjectType = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			_, _, err := intake.Submit(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	var count int64
	require.NoError(t, db.Model(&models.Lead{}).Count(&count).Error)
	assert.EqualValues(t, 0, count, "rejected input must not persist a lead")
}

func TestSubmitZipMatchedDispatch(t *testing.T) {
	db := newTestDB(t)
	notifier := &fakeNotifier{}
	intake := newTestIntake(db, notifier)

	p := createProvider(t, db, "alpha", 5, "34102")

	lead, leadType, err := intake.Submit(validInput())
	require.NoError(t, err)
	assert.Equal(t, LeadTypeZipMatched, leadType)
	assert.NotEmpty(t, lead.Code)
	assert.Equal(t, "dana@example.com", lead.Email)
	assert.Equal(t, []uint{p.ID}, notifier.fullSends)

	var reloaded models.Lead
	require.NoError(t, db.First(&reloaded, lead.ID).Error)
	assert.Equal(t, models.LeadSent, reloaded.Status)
}

func TestSubmitDirectTargetingSkipsZipBroadcast(t *testing.T) {
	db := newTestDB(t)
	notifier := &fakeNotifier{}
	intake := newTestIntake(db, notifier)

	target := createProvider(t, db, "alpha", 5, "34102")
	createProvider(t, db, "bystander", 5, "34102")

	in := validInput()
	in.ProviderID = &target.ID
	_, leadType, err := intake.Submit(in)
	require.NoError(t, err)
	assert.Equal(t, LeadTypeDirect, leadType)
	assert.Equal(t, []uint{target.ID}, notifier.fullSends)
}

func TestSubmitDirectByName(t *testing.T) {
	db := newTestDB(t)
	notifier := &fakeNotifier{}
	intake := newTestIntake(db, notifier)

	target := createProvider(t, db, "Acme Roofing", 5, "99999")

	in := validInput()
	in.ProviderName = "acme roofing"
	_, leadType, err := intake.Submit(in)
	require.NoError(t, err)
	assert.Equal(t, LeadTypeDirect, leadType)
	assert.Equal(t, []uint{target.ID}, notifier.fullSends)
}

func TestSubmitNoTargetsLeavesLeadNew(t *testing.T) {
	db := newTestDB(t)
	notifier := &fakeNotifier{}
	intake := newTestIntake(db, notifier)

	lead, leadType, err := intake.Submit(validInput())
	require.NoError(t, err)
	assert.Equal(t, LeadTypeZipMatched, leadType)
	assert.Equal(t, models.LeadNew, lead.Status)
	assert.Empty(t, notifier.fullSends)
	assert.Empty(t, notifier.teaserSends)
}

func TestResendUnknownCode(t *testing.T) {
	db := newTestDB(t)
	intake := newTestIntake(db, &fakeNotifier{})

	_, _, err := intake.Resend("NOPE1234")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResendDispatchesAgain(t *testing.T) {
	db := newTestDB(t)
	notifier := &fakeNotifier{}
	intake := newTestIntake(db, notifier)

	createProvider(t, db, "alpha", 5, "34102")

	lead, _, err := intake.Submit(validInput())
	require.NoError(t, err)

	_, result, err := intake.Resend(lead.Code)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FullCount)
	assert.Len(t, notifier.fullSends, 2)
}

func TestSubmitChargesOncePerProviderWithOverlappingAreas(t *testing.T) {
	db := newTestDB(t)
	notifier := &fakeNotifier{}
	intake := newTestIntake(db, notifier)

	provider := createProvider(t, db, "alpha", 5, "34102")
	require.NoError(t, db.Create(&models.ServiceArea{ProviderID: provider.ID, Zip: "34102"}).Error)

	_, _, err := intake.Submit(validInput())
	require.NoError(t, err)

	var reloaded models.Provider
	require.NoError(t, db.First(&reloaded, provider.ID).Error)
	assert.Equal(t, 4, reloaded.CreditBalance)

	var debits int64
	require.NoError(t, db.Model(&models.CreditTransaction{}).Where("provider_id = ?", provider.ID).Count(&debits).Error)
	assert.EqualValues(t, 1, debits)
	assert.Equal(t, []uint{provider.ID}, notifier.fullSends)
}
