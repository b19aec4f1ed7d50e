package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultCountry = "Bangladesh"

type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	MiddleName  string    `json:"middle_name,omitempty"`
	LastName    string    `json:"last_name"`
	Phone       string    `json:"phone_number"`
	HouseNumber string    `json:"house_number"`
	RoadNumber  string    `json:"road_number"`
	PostalCode  string    `json:"postal_code"`
	District    string    `json:"district"`
	Country     string    `json:"country"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (u *User) FullName() string {
	if u.MiddleName != "" {
		return fmt.Sprintf("%s %s %s", u.FirstName, u.MiddleName, u.LastName)
	}
	return fmt.Sprintf("%s %s", u.FirstName, u.LastName)
}

func (u *User) FullAddress() string {
	return formatAddress(u.HouseNumber, u.RoadNumber, u.PostalCode, u.District, u.country())
}

func (u *User) country() string {
	if u.Country == "" {
		return DefaultCountry
	}
	return u.Country
}

// ShippingDetails builds the contact block printed on slips for orders that
// have not been completed yet.
func (u *User) ShippingDetails() ShippingDetails {
	return ShippingDetails{
		Name:    u.FullName(),
		Phone:   u.Phone,
		Address: u.FullAddress(),
	}
}

// Contact holds the shipping fields collected at checkout. They are written back
// to the user profile so they prefill the next checkout.
type Contact struct {
	FirstName   string `json:"first_name" validate:"required,max=150"`
	LastName    string `json:"last_name" validate:"required,max=150"`
	Phone       string `json:"phone_number" validate:"required,bdphone"`
	HouseNumber string `json:"house_number" validate:"required,max=50"`
	RoadNumber  string `json:"road_number" validate:"required,max=50"`
	PostalCode  string `json:"postal_code" validate:"required,max=20"`
	District    string `json:"district" validate:"required,max=100"`
	Note        string `json:"note" validate:"max=1000"`
}

// Normalize trims the fields and strips spaces and dashes from the phone number.
func (c *Contact) Normalize() {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Phone = strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(c.Phone))
	c.HouseNumber = strings.TrimSpace(c.HouseNumber)
	c.RoadNumber = strings.TrimSpace(c.RoadNumber)
	c.PostalCode = strings.TrimSpace(c.PostalCode)
	c.District = strings.TrimSpace(c.District)
	c.Note = strings.TrimSpace(c.Note)
}

func (c *Contact) ShippingDetails() ShippingDetails {
	return ShippingDetails{
		Name:    fmt.Sprintf("%s %s", c.FirstName, c.LastName),
		Phone:   c.Phone,
		Address: formatAddress(c.HouseNumber, c.RoadNumber, c.PostalCode, c.District, DefaultCountry),
		Note:    c.Note,
	}
}

func formatAddress(house, road, postalCode, district, country string) string {
	return fmt.Sprintf("House: %s, Road: %s, Postal Code: %s, %s, %s", house, road, postalCode, district, country)
}
