package core

import (
	"fmt"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"leadnexus/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection, so every session sees the same in-memory database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.Migrate(db))
	return db
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func quietAuditLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func createProvider(t *testing.T, db *gorm.DB, name string, balance int, zips ...string) *models.Provider {
	t.Helper()

	provider := models.Provider{
		CompanyName:   name,
		Email:         fmt.Sprintf("%s@example.com", name),
		Phone:         "555-010-1234",
		Status:        models.ProviderActive,
		CreditBalance: balance,
	}
	require.NoError(t, db.Create(&provider).Error)
	for _, zip := range zips {
		require.NoError(t, db.Create(&models.ServiceArea{ProviderID: provider.ID, Zip: zip}).Error)
	}
	return &provider
}

func createLead(t *testing.T, db *gorm.DB, code, zip string) *models.Lead {
	t.Helper()

	lead := models.Lead{
		Code:        code,
		FirstName:   "Dana",
		LastName:    "Smith",
		Phone:       "555-867-5309",
		Email:       "dana@example.com",
		Zip:         zip,
		ProjectType: "roofing",
		Status:      models.LeadNew,
	}
	require.NoError(t, db.Create(&lead).Error)
	return &lead
}

// fakeNotifier records every notification and can simulate send failures.
type fakeNotifier struct {
	mu sync.Mutex

	fullSends      []uint
	teaserSends    []uint
	buyerSends     []string
	receipts       []int
	premiumNotices []uint
	alerts         []string

	failFull  bool
	failBuyer bool
}

func (f *fakeNotifier) SendLeadFull(p *models.Provider, l *models.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fullSends = append(f.fullSends, p.ID)
	if f.failFull {
		return fmt.Errorf("smtp unavailable")
	}
	return nil
}

func (f *fakeNotifier) SendLeadTeaser(p *models.Provider, l *models.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teaserSends = append(f.teaserSends, p.ID)
	return nil
}

func (f *fakeNotifier) SendLeadToBuyer(email string, l *models.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buyerSends = append(f.buyerSends, email)
	if f.failBuyer {
		return fmt.Errorf("smtp unavailable")
	}
	return nil
}

func (f *fakeNotifier) SendPurchaseReceipt(p *models.Provider, credits, balance int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receipts = append(f.receipts, credits)
	return nil
}

func (f *fakeNotifier) SendPremiumActivated(p *models.Provider) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.premiumNotices = append(f.premiumNotices, p.ID)
	return nil
}

func (f *fakeNotifier) SendOperatorAlert(subject, detail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, subject)
	return nil
}

var _ Notifier = (*fakeNotifier)(nil)
