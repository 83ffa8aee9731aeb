package generator

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules is a declarative generation profile, typically loaded from a YAML
// file. Zero values (nil pointers, empty slices) leave the corresponding
// Config field untouched, so a profile only needs to state what it changes.
type Rules struct {
	People       int            `yaml:"people"`
	Seed         *uint64        `yaml:"seed"`
	MinAge       int            `yaml:"minAge"`
	MaxAge       int            `yaml:"maxAge"`
	EmailDomains []string       `yaml:"emailDomains"`
	Country      string         `yaml:"country"`
	Duplicates   DuplicateRules `yaml:"duplicates"`
}

// DuplicateRules tunes how often the generator re-issues an attribute that an
// earlier person already received.
type DuplicateRules struct {
	Email   *float64 `yaml:"email"`
	Phone   *float64 `yaml:"phone"`
	Address *float64 `yaml:"address"`
}

// LoadRules parses a YAML profile from disk.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read profile %s: %w", path, err)
	}
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, fmt.Errorf("profile %s: %w", path, err)
	}
	return rules, nil
}

// Validate checks the profile for values the generator cannot honour.
func (r Rules) Validate() error {
	if r.People < 0 {
		return fmt.Errorf("people must not be negative, got %d", r.People)
	}
	if r.MinAge < 0 || r.MaxAge < 0 {
		return fmt.Errorf("ages must not be negative")
	}
	if r.MinAge > 0 && r.MaxAge > 0 && r.MinAge > r.MaxAge {
		return fmt.Errorf("minAge %d exceeds maxAge %d", r.MinAge, r.MaxAge)
	}
	for name, chance := range map[string]*float64{
		"duplicates.email":   r.Duplicates.Email,
		"duplicates.phone":   r.Duplicates.Phone,
		"duplicates.address": r.Duplicates.Address,
	} {
		if chance != nil && (*chance < 0 || *chance > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %v", name, *chance)
		}
	}
	return nil
}

// Apply overlays the profile onto a base configuration and returns the result.
func (r Rules) Apply(cfg Config) Config {
	if r.People > 0 {
		cfg.NumPeople = r.People
	}
	if r.Seed != nil {
		cfg.Seed = *r.Seed
	}
	if r.MinAge > 0 {
		cfg.MinAge = r.MinAge
	}
	if r.MaxAge > 0 {
		cfg.MaxAge = r.MaxAge
	}
	if len(r.EmailDomains) > 0 {
		cfg.EmailDomains = r.EmailDomains
	}
	if r.Country != "" {
		cfg.Country = r.Country
	}
	if r.Duplicates.Email != nil {
		cfg.DuplicateEmailChance = *r.Duplicates.Email
	}
	if r.Duplicates.Phone != nil {
		cfg.DuplicatePhoneChance = *r.Duplicates.Phone
	}
	if r.Duplicates.Address != nil {
		cfg.DuplicateAddressChance = *r.Duplicates.Address
	}
	return cfg
}
