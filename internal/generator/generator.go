package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/go-playground/validator/v10"

	"github.com/fakewire/fakewire/internal/domain"
)

// Dataset contains the generated people.
type Dataset struct {
	People []domain.Person `json:"people"`
}

// Generator produces synthetic person records. Generation is deterministic
// for a fixed seed, and a configurable share of emails, phones and addresses
// is deliberately re-issued so dedup tooling downstream has duplicates to
// find.
type Generator struct {
	cfg      Config
	faker    *gofakeit.Faker
	validate *validator.Validate
	pools    attributePools
}

type attributePools struct {
	emails    []string
	phones    []string
	addresses []domain.Address
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	defaults := DefaultConfig()
	if cfg.NumPeople <= 0 {
		cfg.NumPeople = defaults.NumPeople
	}
	if cfg.MinAge <= 0 {
		cfg.MinAge = defaults.MinAge
	}
	if cfg.MaxAge <= 0 || cfg.MaxAge < cfg.MinAge {
		cfg.MaxAge = defaults.MaxAge
	}
	if len(cfg.EmailDomains) == 0 {
		cfg.EmailDomains = defaults.EmailDomains
	}
	if cfg.Country == "" {
		cfg.Country = defaults.Country
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}

	return &Generator{
		cfg:      cfg,
		faker:    gofakeit.New(cfg.Seed),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		pools:    attributePools{},
	}
}

// Generate synthesises person records. It respects context cancellation and
// returns an error if any generated record fails validation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	people := make([]domain.Person, g.cfg.NumPeople)
	now := time.Now().UTC()

	for i := 0; i < g.cfg.NumPeople; i++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}

		first := g.faker.FirstName()
		last := g.faker.LastName()

		email := g.maybeSharedString(&g.pools.emails, g.cfg.DuplicateEmailChance, func() string {
			return g.randomEmail(first, last)
		})
		phone := g.maybeSharedString(&g.pools.phones, g.cfg.DuplicatePhoneChance, g.randomPhone)
		address := g.maybeSharedAddress()

		birthDate := g.randomBirthDate(now)

		people[i] = domain.Person{
			ID:        fmt.Sprintf("PER-%06d", i+1),
			FirstName: first,
			LastName:  last,
			Age:       ageAt(birthDate, now),
			BirthDate: birthDate,
			Address:   address,
			Phone:     phone,
			Email:     email,
			CreatedAt: now,
		}

		if err := g.validate.Struct(people[i]); err != nil {
			return Dataset{}, fmt.Errorf("generated person %s is invalid: %w", people[i].ID, err)
		}
	}

	return Dataset{People: people}, nil
}

func (g *Generator) maybeSharedString(pool *[]string, chance float64, newValue func() string) string {
	if len(*pool) > 0 && g.faker.Float64Range(0, 1) < chance {
		return (*pool)[g.faker.Number(0, len(*pool)-1)]
	}
	val := newValue()
	*pool = append(*pool, val)
	return val
}

func (g *Generator) maybeSharedAddress() domain.Address {
	if len(g.pools.addresses) > 0 && g.faker.Float64Range(0, 1) < g.cfg.DuplicateAddressChance {
		return g.pools.addresses[g.faker.Number(0, len(g.pools.addresses)-1)]
	}
	addr := domain.Address{
		Street:     g.faker.Street(),
		City:       g.faker.City(),
		State:      g.faker.StateAbr(),
		PostalCode: g.faker.Zip(),
		Country:    g.cfg.Country,
	}
	g.pools.addresses = append(g.pools.addresses, addr)
	return addr
}

func (g *Generator) randomEmail(first, last string) string {
	domainName := g.cfg.EmailDomains[g.faker.Number(0, len(g.cfg.EmailDomains)-1)]
	return fmt.Sprintf("%s.%s%d@%s", strings.ToLower(first), strings.ToLower(last), g.faker.Number(1, 999), domainName)
}

func (g *Generator) randomPhone() string {
	return fmt.Sprintf("+1%03d%03d%04d", g.faker.Number(200, 989), g.faker.Number(200, 999), g.faker.Number(0, 9999))
}

func (g *Generator) randomBirthDate(now time.Time) time.Time {
	oldest := now.AddDate(-g.cfg.MaxAge-1, 0, 1)
	youngest := now.AddDate(-g.cfg.MinAge, 0, 0)
	bd := g.faker.DateRange(oldest, youngest)
	return time.Date(bd.Year(), bd.Month(), bd.Day(), 0, 0, 0, 0, time.UTC)
}

func ageAt(birthDate, now time.Time) int {
	years := now.Year() - birthDate.Year()
	anniversary := birthDate.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}
