package factory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/e2ekit/factory"
)

func names(ps []factory.Product) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

func TestSauceDemoUsers(t *testing.T) {
	for _, typ := range factory.UserTypes {
		u, err := factory.SauceDemoUser(typ)
		require.NoError(t, err)
		assert.Equal(t, string(typ), u.Username)
		assert.Equal(t, "secret_sauce", u.Password)
	}
	assert.Equal(t, "locked_out_user", factory.LockedOutUser().Username)
	assert.Equal(t, "problem_user", factory.ProblemUser().Username)

	_, err := factory.SauceDemoUser("admin")
	assert.ErrorIs(t, err, factory.ErrUnknownUser)
}

func TestNegativeUsers(t *testing.T) {
	assert.Empty(t, factory.EmptyUsername().Username)
	assert.Equal(t, "secret_sauce", factory.EmptyUsername().Password)
	assert.Equal(t, "standard_user", factory.EmptyPassword().Username)
	assert.Empty(t, factory.EmptyPassword().Password)
	assert.Contains(t, factory.XSSUser().Username, "<script>")
	assert.Equal(t, "' OR '1'='1", factory.SQLInjectionUser().Username)

	f := factory.New(7)
	invalid := f.InvalidUser()
	assert.NotEmpty(t, invalid.Username)
	assert.Len(t, invalid.Password, 12)
}

func TestFactory_SeedIsDeterministic(t *testing.T) {
	a, b := factory.New(42), factory.New(42)
	assert.Equal(t, a.RandomCheckoutInfo(), b.RandomCheckoutInfo())
	assert.Equal(t, names(a.RandomProducts(3)), names(b.RandomProducts(3)))
}

func TestCheckoutInfo(t *testing.T) {
	f := factory.New(1)

	info := f.CheckoutInfo(factory.ZipCode(""), factory.FirstName("Ada"))
	assert.Equal(t, "Ada", info.FirstName)
	assert.NotEmpty(t, info.LastName)
	assert.Empty(t, info.ZipCode)

	assert.Equal(t, factory.CheckoutInfo{}, factory.EmptyCheckoutInfo())

	partial := f.PartialCheckoutInfo()
	assert.NotEmpty(t, partial.FirstName)
	assert.Empty(t, partial.LastName+partial.ZipCode)

	long := f.LongCheckoutInfo()
	assert.Len(t, long.FirstName, 100)
	assert.Len(t, long.LastName, 100)
	assert.Len(t, long.ZipCode, 20)

	assert.Equal(t, "José María", factory.SpecialCharCheckoutInfo().LastName)
}

func TestCatalogue(t *testing.T) {
	assert.Len(t, factory.AllProducts(), 6)
	assert.Equal(t, "Sauce Labs Backpack", factory.DefaultProduct().Name)
	assert.Equal(t, "Sauce Labs Onesie", factory.CheapestProduct().Name)
	assert.Equal(t, "Sauce Labs Fleece Jacket", factory.MostExpensiveProduct().Name)

	red, err := factory.GetProduct(factory.ProductRedShirt)
	require.NoError(t, err)
	assert.Equal(t, "add-to-cart-test.allthethings()-t-shirt-(red)", red.TestID)

	_, err = factory.GetProduct("hat")
	assert.ErrorIs(t, err, factory.ErrUnknownProduct)
}

func TestSorting(t *testing.T) {
	assert.Equal(t, []string{
		"Sauce Labs Onesie",
		"Sauce Labs Bike Light",
		"Sauce Labs Bolt T-Shirt",
		"Test.allTheThings() T-Shirt (Red)",
		"Sauce Labs Backpack",
		"Sauce Labs Fleece Jacket",
	}, names(factory.ProductsLowToHigh()))

	assert.Equal(t, []string{
		"Sauce Labs Fleece Jacket",
		"Sauce Labs Backpack",
		"Sauce Labs Bolt T-Shirt",
		"Test.allTheThings() T-Shirt (Red)",
		"Sauce Labs Bike Light",
		"Sauce Labs Onesie",
	}, names(factory.ProductsHighToLow()))

	assert.Equal(t, []string{
		"Sauce Labs Backpack",
		"Sauce Labs Bike Light",
		"Sauce Labs Bolt T-Shirt",
		"Sauce Labs Fleece Jacket",
		"Sauce Labs Onesie",
		"Test.allTheThings() T-Shirt (Red)",
	}, names(factory.ProductsAToZ()))
}

func TestRandomProducts(t *testing.T) {
	f := factory.New(3)

	ps := f.RandomProducts(10)
	assert.Len(t, ps, 6)
	assert.ElementsMatch(t, names(factory.AllProducts()), names(ps))

	assert.Empty(t, f.RandomProducts(-1))
	assert.Contains(t, factory.AllProducts(), f.RandomProduct())
}

func TestCartTotal(t *testing.T) {
	items := []factory.CartItem{
		factory.NewCartItem(factory.DefaultProduct(), 2),
		factory.NewCartItem(factory.CheapestProduct(), 1),
	}
	assert.Equal(t, 67.97, factory.CartTotal(items))
	assert.Zero(t, factory.CartTotal(nil))
}

func TestCheckoutScenario(t *testing.T) {
	f := factory.New(9)

	s := f.CheckoutScenario(0)
	require.Len(t, s.Products, 2)
	assert.InDelta(t, s.Products[0].Price+s.Products[1].Price, s.ExpectedSubtotal, 0.005)

	assert.Len(t, f.CheckoutScenario(4).Products, 4)
}
