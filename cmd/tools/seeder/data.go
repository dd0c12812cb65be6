package main

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

type namedSlug struct {
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
}

type categorySeed struct {
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
	Line string `yaml:"line"`
}

type planSeed struct {
	Name         string `yaml:"name"`
	Installments int    `yaml:"installments"`
	Surcharge    string `yaml:"surcharge"`
	MinAmount    string `yaml:"min_amount"`
	MaxAmount    string `yaml:"max_amount"`
	DownPercent  string `yaml:"down_percent"`
}

type productSeed struct {
	Title        string   `yaml:"title"`
	Category     string   `yaml:"category"`
	Brand        string   `yaml:"brand"`
	Price        string   `yaml:"price"`
	Stock        int      `yaml:"stock"`
	Featured     bool     `yaml:"featured"`
	OfferPrice   string   `yaml:"offer_price"`
	OfferDays    int      `yaml:"offer_days"`
	Promotion    string   `yaml:"promotion"`
	AllPlans     bool     `yaml:"all_plans"`
	CategoryPlan bool     `yaml:"category_plans"`
	Special      []string `yaml:"special_plans"`
	Defaults     []string `yaml:"default_plans"`
}

type comboSeed struct {
	Name     string   `yaml:"name"`
	Discount string   `yaml:"discount"`
	Days     int      `yaml:"days"`
	Products []string `yaml:"products"`
	Plans    []string `yaml:"plans"`
}

// dataset is the catalog written by the seeder.
type dataset struct {
	Lines         []namedSlug         `yaml:"lines"`
	Categories    []categorySeed      `yaml:"categories"`
	Brands        []namedSlug         `yaml:"brands"`
	Plans         []planSeed          `yaml:"plans"`
	CategoryPlans map[string][]string `yaml:"category_plans"`
	Products      []productSeed       `yaml:"products"`
	Combos        []comboSeed         `yaml:"combos"`
}

// loadDataset reads SEED_FILE when set and falls back to the embedded data.
func loadDataset() (dataset, error) {
	raw := defaultSeed
	if path := os.Getenv("SEED_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return dataset{}, fmt.Errorf("read seed file: %w", err)
		}
		raw = data
	}
	return parseDataset(raw)
}

func parseDataset(raw []byte) (dataset, error) {
	var ds dataset
	if err := yaml.Unmarshal(raw, &ds); err != nil {
		return dataset{}, fmt.Errorf("parse seed data: %w", err)
	}
	return ds, ds.validate()
}

// validate checks the cross references and amounts so a bad file fails
// before the transaction opens.
func (ds dataset) validate() error {
	lines := map[string]bool{}
	for _, l := range ds.Lines {
		lines[l.Slug] = true
	}
	categories := map[string]bool{}
	for _, c := range ds.Categories {
		if !lines[c.Line] {
			return fmt.Errorf("category %s: unknown line %q", c.Slug, c.Line)
		}
		categories[c.Slug] = true
	}
	brands := map[string]bool{}
	for _, b := range ds.Brands {
		brands[b.Slug] = true
	}
	plans := map[string]bool{}
	for _, p := range ds.Plans {
		if p.Installments <= 0 {
			return fmt.Errorf("plan %s: installments must be positive", p.Name)
		}
		for _, raw := range []string{p.Surcharge, p.MinAmount, p.MaxAmount, p.DownPercent} {
			if err := checkDecimal(raw); err != nil {
				return fmt.Errorf("plan %s: %w", p.Name, err)
			}
		}
		plans[p.Name] = true
	}
	knownPlans := func(owner string, names []string) error {
		for _, n := range names {
			if !plans[n] {
				return fmt.Errorf("%s: unknown plan %q", owner, n)
			}
		}
		return nil
	}
	for slug, names := range ds.CategoryPlans {
		if !categories[slug] {
			return fmt.Errorf("category plans: unknown category %q", slug)
		}
		if err := knownPlans("category "+slug, names); err != nil {
			return err
		}
	}
	products := map[string]bool{}
	for _, p := range ds.Products {
		if !categories[p.Category] || !brands[p.Brand] {
			return fmt.Errorf("product %s: unknown category or brand", p.Title)
		}
		if p.Price == "" {
			return fmt.Errorf("product %s: price required", p.Title)
		}
		for _, raw := range []string{p.Price, p.OfferPrice} {
			if err := checkDecimal(raw); err != nil {
				return fmt.Errorf("product %s: %w", p.Title, err)
			}
		}
		if err := knownPlans("product "+p.Title, append(append([]string{}, p.Special...), p.Defaults...)); err != nil {
			return err
		}
		products[p.Title] = true
	}
	for _, c := range ds.Combos {
		if len(c.Products) == 0 {
			return errors.New("combo " + c.Name + ": no products")
		}
		for _, title := range c.Products {
			if !products[title] {
				return fmt.Errorf("combo %s: unknown product %q", c.Name, title)
			}
		}
		if err := checkDecimal(c.Discount); err != nil {
			return fmt.Errorf("combo %s: %w", c.Name, err)
		}
		if err := knownPlans("combo "+c.Name, c.Plans); err != nil {
			return err
		}
	}
	return nil
}

func checkDecimal(raw string) error {
	if raw == "" {
		return nil
	}
	_, err := decimal.NewFromString(raw)
	return err
}
