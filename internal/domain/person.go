package domain

import "time"

// Address captures structured address fields on a generated person.
type Address struct {
	Street     string `json:"street" yaml:"street" validate:"required"`
	City       string `json:"city" yaml:"city" validate:"required"`
	State      string `json:"state" yaml:"state" validate:"required"`
	PostalCode string `json:"postalCode" yaml:"postalCode" validate:"required"`
	Country    string `json:"country" yaml:"country" validate:"required,iso3166_1_alpha2"`
}

// Person is the synthetic record the generator produces and the delivery
// client ships. Validation tags describe the shape every generated record
// must satisfy.
type Person struct {
	ID        string    `json:"id" validate:"required"`
	FirstName string    `json:"firstName" validate:"required"`
	LastName  string    `json:"lastName" validate:"required"`
	Age       int       `json:"age" validate:"gte=0,lte=130"`
	BirthDate time.Time `json:"birthDate" validate:"required"`
	Address   Address   `json:"address" validate:"required"`
	Phone     string    `json:"phone" validate:"required,e164"`
	Email     string    `json:"email" validate:"required,email"`
	CreatedAt time.Time `json:"createdAt"`
}

// FullName joins the name parts for display purposes.
func (p Person) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
