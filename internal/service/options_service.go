package service

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/GTDGit/keyprice_api/configs"
	"github.com/GTDGit/keyprice_api/internal/models"
	"github.com/GTDGit/keyprice_api/internal/pricing"
)

// FilterChoice is one selectable filter value.
type FilterChoice struct {
	ID      int    `yaml:"id" json:"id"`
	Name    string `yaml:"name" json:"name"`
	Checked bool   `yaml:"checked" json:"checked"`
}

// FilterCatalog lists every filter value the extension can offer.
type FilterCatalog struct {
	PriceRange models.PriceRange `yaml:"priceRange" json:"priceRange"`
	Stores     []FilterChoice    `yaml:"stores" json:"stores"`
	Regions    []FilterChoice    `yaml:"regions" json:"regions"`
	Editions   []FilterChoice    `yaml:"editions" json:"editions"`
	Currencies []FilterChoice    `yaml:"currencies" json:"currencies"`
	Platforms  []FilterChoice    `yaml:"platforms" json:"platforms"`
}

// OptionsService serves the filter catalog and its default selection.
type OptionsService struct {
	catalog  FilterCatalog
	defaults models.FilterOptions
}

// NewOptionsService loads the catalog from path, or the embedded default when path is empty.
func NewOptionsService(path string) (*OptionsService, error) {
	raw := configs.FilterOptions
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read filter options: %w", err)
		}
		raw = b
	}
	return ParseFilterCatalog(raw)
}

// ParseFilterCatalog decodes and validates a YAML filter catalog.
func ParseFilterCatalog(raw []byte) (*OptionsService, error) {
	var cat FilterCatalog
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return nil, fmt.Errorf("parse filter options: %w", err)
	}
	if len(cat.Currencies) == 0 || len(cat.Platforms) == 0 {
		return nil, errors.New("filter options must list at least one currency and one platform")
	}

	defaults := models.FilterOptions{
		PriceRange: &models.PriceRange{Min: cat.PriceRange.Min, Max: cat.PriceRange.Max},
		Stores:     checkedNames(cat.Stores),
		Regions:    checkedNames(cat.Regions),
		Editions:   checkedNames(cat.Editions),
		Currency:   firstChecked(cat.Currencies, pricing.DefaultCurrency),
		Platform:   firstChecked(cat.Platforms, pricing.DefaultPlatform),
	}
	// The defaults must themselves be a valid request.
	if _, err := pricing.NewCriteria(&defaults, "", ""); err != nil {
		return nil, fmt.Errorf("filter options defaults: %w", err)
	}

	return &OptionsService{catalog: cat, defaults: defaults}, nil
}

// Catalog returns every available choice.
func (s *OptionsService) Catalog() FilterCatalog {
	return s.catalog
}

// Defaults returns the filter selection of a fresh install.
func (s *OptionsService) Defaults() models.FilterOptions {
	return s.defaults
}

func checkedNames(choices []FilterChoice) []string {
	out := []string{}
	for _, c := range choices {
		if c.Checked {
			out = append(out, c.Name)
		}
	}
	return out
}

func firstChecked(choices []FilterChoice, fallback string) string {
	for _, c := range choices {
		if c.Checked {
			return c.Name
		}
	}
	return fallback
}
