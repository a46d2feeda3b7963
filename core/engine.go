package core

import (
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EngineConfig carries the tunables the engine needs from configuration.
type EngineConfig struct {
	UnitLeadCost  int
	PremiumDays   int
	PriorityFloor int
	Prices        *PriceTable
}

// Engine bundles the routing and reconciliation components. It is built once
// at startup and handed to the HTTP layer and the background worker.
type Engine struct {
	Ledger     *CreditLedger
	Directory  *ProviderDirectory
	Dispatcher *Dispatcher
	Intake     *LeadIntake
	Reconciler *PaymentReconciler
	Premium    *PremiumStatusManager
}

func NewEngine(db *gorm.DB, notifier Notifier, cfg EngineConfig) *Engine {
	ledger := NewCreditLedger(db, log.New(os.Stdout, "LEDGER: ", log.LstdFlags))
	directory := NewProviderDirectory(db)
	dispatcher := NewDispatcher(db, ledger, notifier, log.New(os.Stdout, "DISPATCH: ", log.LstdFlags), cfg.UnitLeadCost)
	intake := NewLeadIntake(db, directory, dispatcher, log.New(os.Stdout, "INTAKE: ", log.LstdFlags))
	premium := NewPremiumStatusManager(db, log.New(os.Stdout, "PREMIUM: ", log.LstdFlags), cfg.PriorityFloor)

	auditLog := logrus.New()
	auditLog.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	reconciler := NewPaymentReconciler(db, ledger, premium, notifier, cfg.Prices, auditLog, cfg.PremiumDays)

	return &Engine{
		Ledger:     ledger,
		Directory:  directory,
		Dispatcher: dispatcher,
		Intake:     intake,
		Reconciler: reconciler,
		Premium:    premium,
	}
}
