package core

import (
	"fmt"
	"log"
	"strings"

	"github.com/badoux/checkmail"
	"gorm.io/gorm"

	"leadnexus/models"
	"leadnexus/utils"
)

// LeadInput is the public lead-submission contract.
type LeadInput struct {
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"omitempty,max=100"`
	Phone       string `json:"phone" validate:"required,min=7,max=20"`
	Email       string `json:"email" validate:"required,email"`
	Zip         string `json:"zip" validate:"required,len=5,numeric"`
	ProjectType string `json:"project_type" validate:"required,max=100"`
	Size        string `json:"size" validate:"omitempty,max=100"`
	Timeframe   string `json:"timeframe" validate:"omitempty,max=100"`
	Message     string `json:"message" validate:"omitempty,max=5000"`

	// Optional explicit targeting
	ProviderID   *uint  `json:"provider_id,omitempty"`
	ProviderName string `json:"provider_name,omitempty" validate:"omitempty,max=200"`
}

// Lead types reported back to the submitter
const (
	LeadTypeDirect     = "direct"
	LeadTypeZipMatched = "zip-matched"
)

// LeadIntake validates and persists an incoming lead, resolves its target
// set, and hands it to the dispatcher.
type LeadIntake struct {
	DB         *gorm.DB
	Directory  *ProviderDirectory
	Dispatcher *Dispatcher
	Logger     *log.Logger
}

func NewLeadIntake(db *gorm.DB, directory *ProviderDirectory, dispatcher *Dispatcher, logger *log.Logger) *LeadIntake {
	return &LeadIntake{DB: db, Directory: directory, Dispatcher: dispatcher, Logger: logger}
}

// Submit runs the full intake path: validate, persist, resolve targets,
// dispatch. The returned lead type tells the submitter whether the lead went
// to an explicitly named provider or into the zip broadcast.
func (li *LeadIntake) Submit(input LeadInput) (*models.Lead, string, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := checkmail.ValidateFormat(input.Email); err != nil {
		return nil, "", fmt.Errorf("%w: invalid email address", ErrValidation)
	}

	code, err := utils.GenerateLeadCode()
	if err != nil {
		return nil, "", err
	}

	lead := models.Lead{
		Code:         code,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		Email:        strings.ToLower(input.Email),
		Zip:          input.Zip,
		ProjectType:  input.ProjectType,
		Size:         input.Size,
		Timeframe:    input.Timeframe,
		Message:      input.Message,
		ProviderID:   input.ProviderID,
		ProviderName: input.ProviderName,
		Status:       models.LeadNew,
	}
	if err := li.DB.Create(&lead).Error; err != nil {
		return nil, "", err
	}

	leadType := LeadTypeZipMatched
	if input.ProviderID != nil || input.ProviderName != "" {
		leadType = LeadTypeDirect
	}

	candidates, err := li.Directory.ResolveTargets(&lead)
	if err != nil {
		return nil, "", err
	}
	if len(candidates) == 0 {
		li.Logger.Printf("lead %s (%s) has no eligible providers", lead.Code, leadType)
		return &lead, leadType, nil
	}

	result, err := li.Dispatcher.Dispatch(&lead, candidates)
	if err != nil {
		return nil, "", err
	}
	li.Logger.Printf("lead %s dispatched: %d full, %d teaser", lead.Code, result.FullCount, result.TeaserCount)
	return &lead, leadType, nil
}

// Resend re-dispatches an existing lead to its currently resolved targets.
// Delivery records append across resends, they never replace earlier ones.
func (li *LeadIntake) Resend(leadCode string) (*models.Lead, DispatchResult, error) {
	var lead models.Lead
	if err := li.DB.Where("code = ?", leadCode).First(&lead).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, DispatchResult{}, ErrNotFound
		}
		return nil, DispatchResult{}, err
	}

	candidates, err := li.Directory.ResolveTargets(&lead)
	if err != nil {
		return nil, DispatchResult{}, err
	}
	result, err := li.Dispatcher.Dispatch(&lead, candidates)
	if err != nil {
		return nil, DispatchResult{}, err
	}
	return &lead, result, nil
}
