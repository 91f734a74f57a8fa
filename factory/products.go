package factory

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ProductType names a catalogue entry.
type ProductType string

// SauceDemo catalogue.
const (
	ProductBackpack     ProductType = "backpack"
	ProductBikeLight    ProductType = "bike_light"
	ProductBoltShirt    ProductType = "bolt_shirt"
	ProductFleeceJacket ProductType = "fleece_jacket"
	ProductOnesie       ProductType = "onesie"
	ProductRedShirt     ProductType = "red_shirt"
)

// Product is one catalogue item. TestID is the data-test attribute of its add-to-cart button.
type Product struct {
	Name   string
	Price  float64
	TestID string
}

// CartItem is a product with a quantity.
type CartItem struct {
	Product
	Quantity int
}

// CheckoutScenario is a random basket and its expected item total.
type CheckoutScenario struct {
	Products         []Product
	ExpectedSubtotal float64
}

var catalogue = []struct {
	typ     ProductType
	product Product
}{
	{ProductBackpack, Product{"Sauce Labs Backpack", 29.99, "add-to-cart-sauce-labs-backpack"}},
	{ProductBikeLight, Product{"Sauce Labs Bike Light", 9.99, "add-to-cart-sauce-labs-bike-light"}},
	{ProductBoltShirt, Product{"Sauce Labs Bolt T-Shirt", 15.99, "add-to-cart-sauce-labs-bolt-t-shirt"}},
	{ProductFleeceJacket, Product{"Sauce Labs Fleece Jacket", 49.99, "add-to-cart-sauce-labs-fleece-jacket"}},
	{ProductOnesie, Product{"Sauce Labs Onesie", 7.99, "add-to-cart-sauce-labs-onesie"}},
	{ProductRedShirt, Product{"Test.allTheThings() T-Shirt (Red)", 15.99, "add-to-cart-test.allthethings()-t-shirt-(red)"}},
}

// GetProduct returns a catalogue entry.
func GetProduct(t ProductType) (Product, error) {
	for _, e := range catalogue {
		if e.typ == t {
			return e.product, nil
		}
	}
	return Product{}, fmt.Errorf("factory.GetProduct: %w: %q", ErrUnknownProduct, t)
}

// AllProducts returns the catalogue in storefront order.
func AllProducts() []Product {
	out := make([]Product, len(catalogue))
	for i, e := range catalogue {
		out[i] = e.product
	}
	return out
}

// DefaultProduct is the backpack.
func DefaultProduct() Product { return catalogue[0].product }

// CheapestProduct is the onesie.
func CheapestProduct() Product {
	return slices.MinFunc(AllProducts(), func(a, b Product) int { return cmp.Compare(a.Price, b.Price) })
}

// MostExpensiveProduct is the fleece jacket.
func MostExpensiveProduct() Product {
	return slices.MaxFunc(AllProducts(), func(a, b Product) int { return cmp.Compare(a.Price, b.Price) })
}

// ProductsLowToHigh orders by price ascending; equal prices keep storefront order.
func ProductsLowToHigh() []Product {
	ps := AllProducts()
	slices.SortStableFunc(ps, func(a, b Product) int { return cmp.Compare(a.Price, b.Price) })
	return ps
}

// ProductsHighToLow orders by price descending; equal prices keep storefront order.
func ProductsHighToLow() []Product {
	ps := AllProducts()
	slices.SortStableFunc(ps, func(a, b Product) int { return cmp.Compare(b.Price, a.Price) })
	return ps
}

// ProductsAToZ orders by name with English collation, as the storefront's name sort does.
func ProductsAToZ() []Product {
	ps := AllProducts()
	col := collate.New(language.English)
	slices.SortStableFunc(ps, func(a, b Product) int { return col.CompareString(a.Name, b.Name) })
	return ps
}

// RandomProduct picks one catalogue entry.
func (f *Factory) RandomProduct() Product {
	return catalogue[f.faker.IntRange(0, len(catalogue)-1)].product
}

// RandomProducts returns up to count distinct products in random order.
func (f *Factory) RandomProducts(count int) []Product {
	ps := AllProducts()
	for i := len(ps) - 1; i > 0; i-- {
		j := f.faker.IntRange(0, i)
		ps[i], ps[j] = ps[j], ps[i]
	}
	return ps[:max(0, min(count, len(ps)))]
}

// NewCartItem wraps p with quantity.
func NewCartItem(p Product, quantity int) CartItem {
	return CartItem{Product: p, Quantity: quantity}
}

// CartTotal sums price × quantity, rounded to cents.
func CartTotal(items []CartItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Price * float64(it.Quantity)
	}
	return math.Round(sum*100) / 100
}

// CheckoutScenario picks productCount random products (2 when productCount <= 0), one of each.
func (f *Factory) CheckoutScenario(productCount int) CheckoutScenario {
	if productCount <= 0 {
		productCount = 2
	}
	ps := f.RandomProducts(productCount)
	items := make([]CartItem, len(ps))
	for i, p := range ps {
		items[i] = NewCartItem(p, 1)
	}
	return CheckoutScenario{Products: ps, ExpectedSubtotal: CartTotal(items)}
}
