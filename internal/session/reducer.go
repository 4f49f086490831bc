package session

import (
	"fmt"
	"slices"
	"time"
)

// Reduce computes the snapshot that follows s after applying a, together with
// the mirror writes the transition requires. It never mutates s or anything
// reachable from it. Unknown actions return s unchanged with no effects.
//
// Reduce assumes a has passed Validate.
func Reduce(s Snapshot, a Action, now time.Time) (Snapshot, []Effect) {
	switch act := a.(type) {
	case SetUser:
		s.User = cloneUser(act.User)
		s.IsAuthenticated = s.User != nil
		return s, nil

	case Login:
		return signIn(s, act.User, fmt.Sprintf("Welcome back, %s!", act.User.Name))

	case Signup:
		return signIn(s, act.User, fmt.Sprintf("Welcome to SmartShop+, %s!", act.User.Name))

	case Logout:
		next := Initial(now)
		next.Language = s.Language
		next.Toast = &Toast{Message: "Logged out successfully!", Severity: SeverityInfo}
		return next, []Effect{remove(KeyUser), remove(KeyCart), remove(KeyWishlist)}

	case AddToCart:
		qty := act.Quantity
		if qty == 0 {
			qty = 1
		}
		i := slices.IndexFunc(s.Cart, func(l CartLine) bool {
			return l.matches(act.Product.ID, act.Size, act.Color)
		})
		if i >= 0 {
			cart := slices.Clone(s.Cart)
			cart[i].Quantity += qty
			s.Cart = cart
		} else {
			s.Cart = append(slices.Clip(s.Cart), CartLine{
				Product:       act.Product,
				Quantity:      qty,
				SelectedSize:  act.Size,
				SelectedColor: act.Color,
			})
		}
		s.Toast = &Toast{Message: act.Product.Name + " added to cart!", Severity: SeveritySuccess}
		return s, []Effect{persist(KeyCart, s.Cart)}

	case RemoveFromCart:
		s.Cart = without(s.Cart, func(l CartLine) bool { return l.Product.ID == act.ProductID })
		return s, []Effect{persist(KeyCart, s.Cart)}

	case UpdateQuantity:
		var cart []CartLine
		for _, l := range s.Cart {
			if l.Product.ID == act.ProductID {
				l.Quantity = act.Quantity
			}
			if l.Quantity > 0 {
				cart = append(cart, l)
			}
		}
		s.Cart = cart
		return s, []Effect{persist(KeyCart, s.Cart)}

	case ClearCart:
		s.Cart = nil
		return s, []Effect{remove(KeyCart)}

	case AddToWishlist:
		if s.InWishlist(act.Product.ID) {
			return s, nil
		}
		s.Wishlist = append(slices.Clip(s.Wishlist), WishlistEntry{Product: act.Product, AddedAt: now})
		s.Toast = &Toast{Message: act.Product.Name + " added to wishlist!", Severity: SeveritySuccess}
		return s, []Effect{persist(KeyWishlist, s.Wishlist)}

	case RemoveFromWishlist:
		s.Wishlist = without(s.Wishlist, func(e WishlistEntry) bool { return e.Product.ID == act.ProductID })
		return s, []Effect{persist(KeyWishlist, s.Wishlist)}

	case AddRecentlyViewed:
		s.RecentlyViewed = pushProduct(s.RecentlyViewed, act.Product, MaxRecentlyViewed)
		return s, nil

	case AddUserInterest:
		s.UserInterests = pushString(s.UserInterests, act.Category, MaxUserInterests)
		return s, nil

	case AddViewedProduct:
		s.Activity.ViewedProducts = pushProduct(s.Activity.ViewedProducts, act.Product, MaxViewedProducts)
		s.Activity.LastActivity = now
		return s, []Effect{persist(KeyActivity, s.Activity)}

	case AddClickedCategory:
		s.Activity.ClickedCategories = pushString(s.Activity.ClickedCategories, act.Category, MaxClickedCategories)
		s.Activity.LastActivity = now
		return s, []Effect{persist(KeyActivity, s.Activity)}

	case AddSearchQuery:
		s.Activity.SearchQueries = pushString(s.Activity.SearchQueries, act.Query, MaxSearchQueries)
		s.Activity.LastActivity = now
		return s, []Effect{persist(KeyActivity, s.Activity)}

	case AddRecentSearch:
		s.RecentSearches = pushString(s.RecentSearches, act.Text, MaxRecentSearches)
		return s, nil

	case SetLanguage:
		s.Language = act.Code
		return s, []Effect{persist(KeyLanguage, s.Language)}

	case SetSearchQuery:
		s.SearchQuery = act.Text
		return s, nil

	case ToggleVoiceSearch:
		s.IsVoiceSearchActive = !s.IsVoiceSearchActive
		return s, nil

	case ToggleChat:
		s.IsChatOpen = !s.IsChatOpen
		return s, nil

	case SetWeather:
		s.CurrentWeather = act.Weather
		return s, nil

	case SetCategory:
		s.SelectedCategory = cloneString(act.Category)
		return s, nil

	case SetCategoryFilter:
		s.CurrentCategory = &act.Category
		return s, nil

	case SetLoading:
		s.IsLoading = act.Loading
		return s, nil

	case SetOrders:
		s.Orders = cloneOrders(act.Orders)
		return s, nil

	case AddOrder:
		o := act.Order
		o.Items = slices.Clone(o.Items)
		s.Orders = append(slices.Clip(s.Orders), o)
		return s, []Effect{persist(KeyOrders, s.Orders)}

	case LoadCartFromStorage:
		s.Cart = without(act.Cart, func(l CartLine) bool { return l.Quantity <= 0 })
		return s, nil

	case LoadWishlistFromStorage:
		s.Wishlist = slices.Clone(act.Wishlist)
		return s, nil

	case LoadUserActivity:
		p := act.Patch
		if p.SearchQueries != nil {
			s.Activity.SearchQueries = slices.Clone(p.SearchQueries)
		}
		if p.ClickedCategories != nil {
			s.Activity.ClickedCategories = slices.Clone(p.ClickedCategories)
		}
		if p.ViewedProducts != nil {
			s.Activity.ViewedProducts = slices.Clone(p.ViewedProducts)
		}
		if p.LastActivity != nil {
			s.Activity.LastActivity = *p.LastActivity
		}
		return s, nil

	case ShowToast:
		t := act.Toast
		s.Toast = &t
		return s, nil

	case HideToast:
		s.Toast = nil
		return s, nil

	case SetRedirectPath:
		s.RedirectPath = cloneString(act.Path)
		return s, nil
	}
	return s, nil
}

func signIn(s Snapshot, u User, greeting string) (Snapshot, []Effect) {
	s.User = cloneUser(&u)
	s.IsAuthenticated = true
	s.Toast = &Toast{Message: greeting, Severity: SeveritySuccess}
	return s, []Effect{persist(KeyUser, s.User)}
}

// without returns the elements for which drop is false, or nil when none remain.
func without[T any](list []T, drop func(T) bool) []T {
	var out []T
	for _, e := range list {
		if !drop(e) {
			out = append(out, e)
		}
	}
	return out
}

func cloneUser(u *User) *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Preferences != nil {
		p := *u.Preferences
		p.Categories = slices.Clone(p.Categories)
		c.Preferences = &p
	}
	return &c
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneOrders(orders []Order) []Order {
	if orders == nil {
		return nil
	}
	out := make([]Order, len(orders))
	for i, o := range orders {
		o.Items = slices.Clone(o.Items)
		out[i] = o
	}
	return out
}
