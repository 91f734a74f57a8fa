package factory

import "fmt"

// SauceDemoPassword is shared by every SauceDemo account.
const SauceDemoPassword = "secret_sauce"

// UserType names a SauceDemo account.
type UserType string

// SauceDemo accounts.
const (
	UserStandard          UserType = "standard_user"
	UserLockedOut         UserType = "locked_out_user"
	UserProblem           UserType = "problem_user"
	UserPerformanceGlitch UserType = "performance_glitch_user"
	UserError             UserType = "error_user"
	UserVisual            UserType = "visual_user"
)

// UserTypes lists every SauceDemo account.
var UserTypes = []UserType{
	UserStandard,
	UserLockedOut,
	UserProblem,
	UserPerformanceGlitch,
	UserError,
	UserVisual,
}

// User is a set of login credentials.
type User struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Email     string
}

// CheckoutInfo is the "your information" checkout form.
type CheckoutInfo struct {
	FirstName string
	LastName  string
	ZipCode   string
}

// SauceDemoUser returns the credentials of a known account.
func SauceDemoUser(t UserType) (User, error) {
	for _, known := range UserTypes {
		if known == t {
			return User{Username: string(t), Password: SauceDemoPassword}, nil
		}
	}
	return User{}, fmt.Errorf("factory.SauceDemoUser: %w: %q", ErrUnknownUser, t)
}

func mustUser(t UserType) User {
	u, err := SauceDemoUser(t)
	if err != nil {
		panic(err)
	}
	return u
}

// StandardUser is the account used by most scenarios.
func StandardUser() User { return mustUser(UserStandard) }

// LockedOutUser is rejected at login.
func LockedOutUser() User { return mustUser(UserLockedOut) }

// ProblemUser sees broken images and form fields.
func ProblemUser() User { return mustUser(UserProblem) }

// EmptyUsername keeps a valid password.
func EmptyUsername() User { return User{Password: SauceDemoPassword} }

// EmptyPassword keeps a valid username.
func EmptyPassword() User { return User{Username: string(UserStandard)} }

// XSSUser carries script injection payloads.
func XSSUser() User {
	return User{
		Username: `<script>alert("xss")</script>`,
		Password: `<img onerror="alert(1)" src="x">`,
	}
}

// SQLInjectionUser carries SQL injection payloads.
func SQLInjectionUser() User {
	return User{
		Username: `' OR '1'='1`,
		Password: `'; DROP TABLE users; --`,
	}
}

// InvalidUser returns random credentials that no account matches.
func (f *Factory) InvalidUser() User {
	return User{
		Username: f.faker.Username(),
		Password: f.faker.Password(true, true, true, false, false, 12),
	}
}

// RandomCheckoutInfo fills every field with fake data.
func (f *Factory) RandomCheckoutInfo() CheckoutInfo {
	return CheckoutInfo{
		FirstName: f.faker.FirstName(),
		LastName:  f.faker.LastName(),
		ZipCode:   f.faker.Zip(),
	}
}

// CheckoutOverride fixes one field of a generated CheckoutInfo.
type CheckoutOverride func(*CheckoutInfo)

// FirstName fixes the first name, empty strings included.
func FirstName(v string) CheckoutOverride { return func(c *CheckoutInfo) { c.FirstName = v } }

// LastName fixes the last name, empty strings included.
func LastName(v string) CheckoutOverride { return func(c *CheckoutInfo) { c.LastName = v } }

// ZipCode fixes the postal code, empty strings included.
func ZipCode(v string) CheckoutOverride { return func(c *CheckoutInfo) { c.ZipCode = v } }

// CheckoutInfo generates random checkout data and applies overrides on top.
func (f *Factory) CheckoutInfo(overrides ...CheckoutOverride) CheckoutInfo {
	info := f.RandomCheckoutInfo()
	for _, o := range overrides {
		o(&info)
	}
	return info
}

// EmptyCheckoutInfo leaves every field blank.
func EmptyCheckoutInfo() CheckoutInfo { return CheckoutInfo{} }

// PartialCheckoutInfo fills only the first name.
func (f *Factory) PartialCheckoutInfo() CheckoutInfo {
	return CheckoutInfo{FirstName: f.faker.FirstName()}
}

// LongCheckoutInfo uses 100-letter names and a 20-digit postal code.
func (f *Factory) LongCheckoutInfo() CheckoutInfo {
	return CheckoutInfo{
		FirstName: f.faker.LetterN(100),
		LastName:  f.faker.LetterN(100),
		ZipCode:   f.faker.DigitN(20),
	}
}

// SpecialCharCheckoutInfo uses apostrophes, hyphens and accented letters.
func SpecialCharCheckoutInfo() CheckoutInfo {
	return CheckoutInfo{
		FirstName: "O'Connor-Smith",
		LastName:  "José María",
		ZipCode:   "12345-6789",
	}
}
