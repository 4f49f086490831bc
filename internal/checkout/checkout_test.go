package checkout

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartshop/internal/catalog"
	"smartshop/internal/session"
)

var t0 = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func validForm() Form {
	return Form{
		Name:        "Asha Rao",
		Mobile:      "9876543210",
		Email:       "asha@example.com",
		Address:     "12 MG Road",
		City:        "Pune",
		Pincode:     "411001",
		PaymentMode: session.PaymentUPI,
	}
}

func line(id string, price int64, qty int) session.CartLine {
	return session.CartLine{Product: catalog.Product{ID: catalog.ID(id), Name: "item " + id, Price: price}, Quantity: qty}
}

func TestFormValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Form)
		fields []string
	}{
		{"valid", func(*Form) {}, nil},
		{"padded is fine", func(f *Form) { f.Mobile = " 9876543210 "; f.PaymentMode = " COD " }, nil},
		{"missing name", func(f *Form) { f.Name = "  " }, []string{"name"}},
		{"short mobile", func(f *Form) { f.Mobile = "98765" }, []string{"mobile"}},
		{"letters in mobile", func(f *Form) { f.Mobile = "98765abcde" }, []string{"mobile"}},
		{"bad email", func(f *Form) { f.Email = "asha@example" }, []string{"email"}},
		{"bad pincode", func(f *Form) { f.Pincode = "4110" }, []string{"pincode"}},
		{"unknown payment", func(f *Form) { f.PaymentMode = "barter" }, []string{"paymentMode"}},
		{"empty form", func(f *Form) { *f = Form{} }, []string{"name", "mobile", "email", "address", "city", "pincode", "paymentMode"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := validForm()
			tc.modify(&f)
			err := f.Validate()
			if tc.fields == nil {
				assert.NoError(t, err)
				return
			}
			var fe FieldErrors
			require.True(t, errors.As(err, &fe))
			assert.Len(t, fe, len(tc.fields))
			for _, field := range tc.fields {
				assert.Contains(t, fe, field)
			}
		})
	}
}

func TestFieldErrorsMessageIsSorted(t *testing.T) {
	err := FieldErrors{"pincode": "must be 6 digits", "city": "required"}
	assert.Equal(t, "checkout: invalid form: city: required; pincode: must be 6 digits", err.Error())
}

func TestQuote(t *testing.T) {
	p := DefaultPricing()
	tests := []struct {
		name  string
		lines []session.CartLine
		want  Quote
	}{
		{"empty", nil, Quote{}},
		{"below threshold", []session.CartLine{line("1", 200, 2)}, Quote{Subtotal: 400, Shipping: 99, Tax: 72, Total: 571}},
		{"at threshold pays shipping", []session.CartLine{line("1", 499, 1)}, Quote{Subtotal: 499, Shipping: 99, Tax: 90, Total: 688}},
		{"above threshold", []session.CartLine{line("1", 250, 1), line("2", 250, 1)}, Quote{Subtotal: 500, Shipping: 0, Tax: 90, Total: 590}},
		{"tax rounds half up", []session.CartLine{line("1", 125, 1)}, Quote{Subtotal: 125, Shipping: 99, Tax: 23, Total: 247}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, p.Quote(tc.lines))
		})
	}
}

func TestPlaceOrder(t *testing.T) {
	snap := session.Initial(t0)
	snap.Cart = []session.CartLine{line("1", 300, 2)}

	order, err := PlaceOrder(snap, validForm(), DefaultPricing(), t0)
	require.NoError(t, err)

	assert.Equal(t, "ORD1772357400000", order.ID)
	assert.Equal(t, session.OrderPending, order.Status)
	assert.Equal(t, int64(708), order.Total)
	assert.Equal(t, t0, order.OrderDate)
	assert.Equal(t, "Pune", order.CustomerInfo.City)
	assert.Equal(t, snap.Cart, order.Items)

	order.Items[0].Quantity = 99
	assert.Equal(t, 2, snap.Cart[0].Quantity, "order lines are a copy of the cart")
}

func TestPlaceOrderRejects(t *testing.T) {
	_, err := PlaceOrder(session.Initial(t0), validForm(), DefaultPricing(), t0)
	assert.ErrorIs(t, err, ErrEmptyCart)

	snap := session.Initial(t0)
	snap.Cart = []session.CartLine{line("1", 300, 1)}
	bad := validForm()
	bad.Pincode = ""
	_, err = PlaceOrder(snap, bad, DefaultPricing(), t0)
	var fe FieldErrors
	assert.True(t, errors.As(err, &fe))
}

func TestPaymentStatus(t *testing.T) {
	assert.Equal(t, "Pending", PaymentStatus(session.PaymentCOD))
	for _, m := range []session.PaymentMode{session.PaymentCard, session.PaymentUPI, session.PaymentWallet} {
		assert.Equal(t, "Paid", PaymentStatus(m))
	}
}

func TestPrefill(t *testing.T) {
	f := Prefill(Form{Email: "other@example.com"}, &session.User{Name: "Asha", Email: "asha@example.com"})
	assert.Equal(t, "Asha", f.Name)
	assert.Equal(t, "other@example.com", f.Email)
	assert.Equal(t, Form{}, Prefill(Form{}, nil))
}
