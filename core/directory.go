package core

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"leadnexus/models"
)

// ProviderDirectory is the read side of provider lookup: it resolves a lead
// to its candidate providers and answers the self-service balance query.
type ProviderDirectory struct {
	DB *gorm.DB
}

func NewProviderDirectory(db *gorm.DB) *ProviderDirectory {
	return &ProviderDirectory{DB: db}
}

// ResolveTargets returns the providers a lead should be offered to. Explicit
// targeting (id, then name) always wins over zip matching: a directly
// targeted lead is never broadcast to other zip-covering providers. An
// explicit target that is unknown or not active resolves to an empty set.
func (pd *ProviderDirectory) ResolveTargets(lead *models.Lead) ([]models.Provider, error) {
	if lead.ProviderID != nil {
		return pd.singleActive(pd.DB.Where("id = ?", *lead.ProviderID))
	}
	if lead.ProviderName != "" {
		return pd.singleActive(pd.DB.Where("LOWER(company_name) = ?", strings.ToLower(lead.ProviderName)))
	}

	// Distinct: a provider covering the zip through multiple service-area
	// rows is still one candidate, never two.
	var providers []models.Provider
	err := pd.DB.Model(&models.Provider{}).
		Distinct("providers.*").
		Joins("JOIN service_areas ON service_areas.provider_id = providers.id").
		Where("service_areas.zip = ? AND providers.status = ?", lead.Zip, models.ProviderActive).
		Where("service_areas.deleted_at IS NULL").
		Find(&providers).Error
	if err != nil {
		return nil, err
	}
	return providers, nil
}

func (pd *ProviderDirectory) singleActive(query *gorm.DB) ([]models.Provider, error) {
	var provider models.Provider
	if err := query.First(&provider).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if provider.Status != models.ProviderActive {
		return nil, nil
	}
	return []models.Provider{provider}, nil
}

// FindByEmail looks a provider up by its lowercased email.
func (pd *ProviderDirectory) FindByEmail(email string) (*models.Provider, error) {
	var provider models.Provider
	err := pd.DB.Where("email = ?", strings.ToLower(email)).First(&provider).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &provider, nil
}

// Authenticate resolves the balance-query identity: provider email plus the
// last four digits of the phone on file. A suffix mismatch is an auth
// failure, not a lookup miss, so the caller cannot probe for accounts.
func (pd *ProviderDirectory) Authenticate(email, phoneLast4 string) (*models.Provider, error) {
	provider, err := pd.FindByEmail(email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if len(phoneLast4) != 4 || !strings.HasSuffix(digitsOnly(provider.Phone), phoneLast4) {
		return nil, ErrUnauthorized
	}
	return provider, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
