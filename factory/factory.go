// Package factory builds test data for the SauceDemo storefront: known accounts,
// attack vectors, checkout forms and the fixed product catalogue.
package factory

import (
	"errors"

	"github.com/brianvoe/gofakeit/v7"
)

var (
	// ErrUnknownUser is returned for a UserType outside the SauceDemo account list.
	ErrUnknownUser = errors.New("unknown sauce demo user")
	// ErrUnknownProduct is returned for a ProductType outside the catalogue.
	ErrUnknownProduct = errors.New("unknown sauce demo product")
)

// Factory produces random data from its own seeded faker. It is not safe for concurrent use.
type Factory struct {
	faker *gofakeit.Faker
}

// New creates a Factory. Equal non-zero seeds yield equal sequences; 0 picks a random seed.
func New(seed uint64) *Factory {
	return &Factory{faker: gofakeit.New(seed)}
}
