package config

import (
	"context"

	"go.uber.org/multierr"

	"github.com/coffeed/coffeed-admin/description"
	"github.com/coffeed/coffeed-admin/resolver"
)

const defaultPhotoMaxWidth = 1200

// ImportSettings are the tunables of the import pipeline.
type ImportSettings struct {
	Phone            resolver.PhoneFormat
	PhotoMaxWidth    int
	DescriptionModel string
	// DescriptionEnabled turns the language model off, leaving the default description.
	DescriptionEnabled bool
}

// ImportSettings reads the import tunables, falling back to the built-in
// defaults for missing keys.
func (s *Service) ImportSettings(ctx context.Context) (ImportSettings, error) {
	def := resolver.DefaultPhoneFormat

	countryCode, err1 := s.GetString(ctx, KeyPhoneCountryCode, def.CountryCode)
	mobilePrefix, err2 := s.GetString(ctx, KeyPhoneMobilePrefix, def.MobilePrefix)
	minDigits, err3 := s.GetInt(ctx, KeyPhoneMinLocalDigits, def.MinLocalDigits)
	photoWidth, err4 := s.GetInt(ctx, KeyPhotoMaxWidth, defaultPhotoMaxWidth)
	model, err5 := s.GetString(ctx, KeyDescriptionModel, description.DefaultGeminiModel)
	describe, err6 := s.GetBool(ctx, KeyDescriptionEnabled, true)

	if err := multierr.Combine(err1, err2, err3, err4, err5, err6); err != nil {
		return DefaultImportSettings(), err
	}

	return ImportSettings{
		Phone: resolver.PhoneFormat{
			CountryCode:    countryCode,
			MobilePrefix:   mobilePrefix,
			MinLocalDigits: minDigits,
		},
		PhotoMaxWidth:      photoWidth,
		DescriptionModel:   model,
		DescriptionEnabled: describe,
	}, nil
}

func DefaultImportSettings() ImportSettings {
	return ImportSettings{
		Phone:              resolver.DefaultPhoneFormat,
		PhotoMaxWidth:      defaultPhotoMaxWidth,
		DescriptionModel:   description.DefaultGeminiModel,
		DescriptionEnabled: true,
	}
}
