package session

import (
	"errors"
	"fmt"
)

// ErrInvalidAction is returned by Dispatch for payloads the reducer cannot accept.
var ErrInvalidAction = errors.New("session: invalid action")

func invalid(a Action, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidAction, a.Kind(), fmt.Sprintf(format, args...))
}

// Validate checks an action payload before it reaches the reducer.
// Actions with no payload constraints always pass.
func Validate(a Action) error {
	if a == nil {
		return fmt.Errorf("%w: nil action", ErrInvalidAction)
	}
	switch act := a.(type) {
	case AddToCart:
		if err := act.Product.Validate(); err != nil {
			return invalid(a, "%v", err)
		}
		if act.Quantity < 0 {
			return invalid(a, "quantity %d is negative", act.Quantity)
		}
	case AddToWishlist:
		if err := act.Product.Validate(); err != nil {
			return invalid(a, "%v", err)
		}
	case AddRecentlyViewed:
		if err := act.Product.Validate(); err != nil {
			return invalid(a, "%v", err)
		}
	case AddViewedProduct:
		if err := act.Product.Validate(); err != nil {
			return invalid(a, "%v", err)
		}
	case RemoveFromCart:
		if act.ProductID == "" {
			return invalid(a, "empty product id")
		}
	case RemoveFromWishlist:
		if act.ProductID == "" {
			return invalid(a, "empty product id")
		}
	case UpdateQuantity:
		if act.ProductID == "" {
			return invalid(a, "empty product id")
		}
	case Login:
		if act.User.ID == "" {
			return invalid(a, "user has no id")
		}
	case Signup:
		if act.User.ID == "" {
			return invalid(a, "user has no id")
		}
	case SetLanguage:
		if act.Code == "" {
			return invalid(a, "empty language code")
		}
	case ShowToast:
		if act.Toast.Message == "" {
			return invalid(a, "empty message")
		}
		if !act.Toast.Severity.Valid() {
			return invalid(a, "unknown severity %q", act.Toast.Severity)
		}
	case AddOrder:
		if act.Order.ID == "" {
			return invalid(a, "order has no id")
		}
		if !act.Order.Status.Valid() {
			return invalid(a, "unknown status %q", act.Order.Status)
		}
	}
	return nil
}
