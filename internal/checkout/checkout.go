// Package checkout validates the checkout form, prices the cart and turns a
// session snapshot into a placed order.
package checkout

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"

	"smartshop/internal/session"
)

// ErrEmptyCart is returned by PlaceOrder when there is nothing to order.
var ErrEmptyCart = errors.New("checkout: cart is empty")

var (
	mobilePattern  = regexp.MustCompile(`^[0-9]{10}$`)
	emailPattern   = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	pincodePattern = regexp.MustCompile(`^[0-9]{6}$`)
)

// Form is the customer's checkout input.
type Form struct {
	Name        string              `json:"name"`
	Mobile      string              `json:"mobile"`
	Email       string              `json:"email"`
	Address     string              `json:"address"`
	City        string              `json:"city"`
	Pincode     string              `json:"pincode"`
	PaymentMode session.PaymentMode `json:"paymentMode"`
}

// FieldErrors maps a form field to its problem.
type FieldErrors map[string]string

// Error lists the problems in field order.
func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + fe[f]
	}
	return "checkout: invalid form: " + strings.Join(parts, "; ")
}

// Normalize trims every text field.
func (f Form) Normalize() Form {
	f.Name = strings.TrimSpace(f.Name)
	f.Mobile = strings.TrimSpace(f.Mobile)
	f.Email = strings.TrimSpace(f.Email)
	f.Address = strings.TrimSpace(f.Address)
	f.City = strings.TrimSpace(f.City)
	f.Pincode = strings.TrimSpace(f.Pincode)
	f.PaymentMode = session.PaymentMode(strings.ToLower(strings.TrimSpace(string(f.PaymentMode))))
	return f
}

// Validate returns nil or a FieldErrors describing every invalid field.
func (f Form) Validate() error {
	f = f.Normalize()
	errs := FieldErrors{}

	required := []struct{ field, value string }{
		{"name", f.Name},
		{"mobile", f.Mobile},
		{"email", f.Email},
		{"address", f.Address},
		{"city", f.City},
		{"pincode", f.Pincode},
	}
	for _, r := range required {
		if r.value == "" {
			errs[r.field] = "required"
		}
	}

	if _, ok := errs["mobile"]; !ok && !mobilePattern.MatchString(f.Mobile) {
		errs["mobile"] = "must be 10 digits"
	}
	if _, ok := errs["email"]; !ok && !emailPattern.MatchString(f.Email) {
		errs["email"] = "invalid email"
	}
	if _, ok := errs["pincode"]; !ok && !pincodePattern.MatchString(f.Pincode) {
		errs["pincode"] = "must be 6 digits"
	}
	if !slices.Contains(PaymentModes(), f.PaymentMode) {
		errs["paymentMode"] = fmt.Sprintf("unknown payment mode %q", f.PaymentMode)
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// PaymentModes lists the accepted payment modes.
func PaymentModes() []session.PaymentMode {
	return []session.PaymentMode{session.PaymentCOD, session.PaymentCard, session.PaymentUPI, session.PaymentWallet}
}

// PaymentStatus is the status recorded with a submitted order: cash on
// delivery is pending, everything else is paid up front.
func PaymentStatus(mode session.PaymentMode) string {
	if mode == session.PaymentCOD {
		return "Pending"
	}
	return "Paid"
}

// Pricing holds the shipping and tax rules.
type Pricing struct {
	FreeShippingAbove int64 `toml:"free_shipping_above" json:"free_shipping_above" yaml:"free_shipping_above"`
	ShippingFee       int64 `toml:"shipping_fee" json:"shipping_fee" yaml:"shipping_fee"`
	TaxPercent        int64 `toml:"tax_percent" json:"tax_percent" yaml:"tax_percent"`
}

// DefaultPricing returns the storefront's standard rules.
func DefaultPricing() Pricing {
	return Pricing{FreeShippingAbove: 499, ShippingFee: 99, TaxPercent: 18}
}

// Quote is a priced cart.
type Quote struct {
	Subtotal int64 `json:"subtotal"`
	Shipping int64 `json:"shipping"`
	Tax      int64 `json:"tax"`
	Total    int64 `json:"total"`
}

// Quote prices lines. Shipping is free strictly above the threshold; tax is
// a percentage of the subtotal rounded half away from zero.
func (p Pricing) Quote(lines []session.CartLine) Quote {
	var q Quote
	for _, l := range lines {
		q.Subtotal += l.Subtotal()
	}
	if q.Subtotal > 0 && q.Subtotal <= p.FreeShippingAbove {
		q.Shipping = p.ShippingFee
	}
	q.Tax = int64(math.Round(float64(q.Subtotal*p.TaxPercent) / 100))
	q.Total = q.Subtotal + q.Shipping + q.Tax
	return q
}

// OrderID derives the order identifier from the placement time.
func OrderID(now time.Time) string {
	return fmt.Sprintf("ORD%d", now.UnixMilli())
}

// PlaceOrder builds the pending order for the snapshot's cart. The caller
// dispatches AddOrder and ClearCart once the order is accepted.
func PlaceOrder(s session.Snapshot, form Form, pricing Pricing, now time.Time) (session.Order, error) {
	if len(s.Cart) == 0 {
		return session.Order{}, ErrEmptyCart
	}
	if err := form.Validate(); err != nil {
		return session.Order{}, err
	}
	form = form.Normalize()

	return session.Order{
		ID:    OrderID(now),
		Items: slices.Clone(s.Cart),
		Total: pricing.Quote(s.Cart).Total,
		CustomerInfo: session.CustomerInfo{
			Name:        form.Name,
			Mobile:      form.Mobile,
			Email:       form.Email,
			Address:     form.Address,
			City:        form.City,
			Pincode:     form.Pincode,
			PaymentMode: form.PaymentMode,
		},
		OrderDate: now,
		Status:    session.OrderPending,
	}, nil
}

// Prefill fills empty contact fields from the signed-in user.
func Prefill(f Form, u *session.User) Form {
	if u == nil {
		return f
	}
	if f.Name == "" {
		f.Name = u.Name
	}
	if f.Email == "" {
		f.Email = u.Email
	}
	return f
}
