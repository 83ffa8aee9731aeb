package generator

// Config drives the synthetic person generator.
type Config struct {
	NumPeople              int
	DuplicateEmailChance   float64
	DuplicatePhoneChance   float64
	DuplicateAddressChance float64
	MinAge                 int
	MaxAge                 int
	EmailDomains           []string
	Country                string
	Seed                   uint64
}

// DefaultConfig returns baseline settings that produce a useful test dataset:
// enough people to exercise downstream tooling, with a deliberate share of
// duplicated contact attributes.
func DefaultConfig() Config {
	return Config{
		NumPeople:              1000,
		DuplicateEmailChance:   0.15,
		DuplicatePhoneChance:   0.15,
		DuplicateAddressChance: 0.2,
		MinAge:                 18,
		MaxAge:                 90,
		EmailDomains:           []string{"example.com", "mail.test", "fakewire.dev", "inbox.example.org"},
		Country:                "US",
		Seed:                   42,
	}
}
