// Package session implements the storefront's client-side state store.
//
// All client-visible mutable state lives in a single Snapshot. Mutations go
// through Store.Dispatch, which reduces the current snapshot and an Action
// into the next snapshot and hands the designated slices to the durable
// mirror. Snapshots are never modified after they are published.
package session

import (
	"time"

	"smartshop/internal/catalog"
)

// Default slice values for a fresh session.
const (
	DefaultLanguage = "en"
	DefaultWeather  = "sunny"
)

// List caps for the move-to-front lists.
const (
	MaxRecentlyViewed    = 10
	MaxUserInterests     = 10
	MaxSearchQueries     = 10
	MaxClickedCategories = 5
	MaxViewedProducts    = 5
	MaxRecentSearches    = 10
)

// Preferences are optional shopping preferences attached to a user.
type Preferences struct {
	Categories []string `json:"categories"`
	PriceRange [2]int64 `json:"priceRange"`
}

// User is the authenticated shopper. A nil *User means anonymous.
type User struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Avatar      string       `json:"avatar,omitempty"`
	Location    string       `json:"location,omitempty"`
	Language    string       `json:"language"`
	Preferences *Preferences `json:"preferences,omitempty"`
}

// CartLine is one line of the cart. Lines are unique by (product ID, size, color).
type CartLine struct {
	Product       catalog.Product `json:"product"`
	Quantity      int             `json:"quantity"`
	SelectedSize  string          `json:"selectedSize,omitempty"`
	SelectedColor string          `json:"selectedColor,omitempty"`
}

// Subtotal is price times quantity.
func (l CartLine) Subtotal() int64 {
	return l.Product.Price * int64(l.Quantity)
}

func (l CartLine) matches(id catalog.ID, size, color string) bool {
	return l.Product.ID == id && l.SelectedSize == size && l.SelectedColor == color
}

// WishlistEntry is a saved product. Entries are unique by product ID.
type WishlistEntry struct {
	Product catalog.Product `json:"product"`
	AddedAt time.Time       `json:"addedAt"`
}

// ActivityLog tracks recent shopper behaviour.
type ActivityLog struct {
	SearchQueries     []string          `json:"searchQueries"`
	ClickedCategories []string          `json:"clickedCategories"`
	ViewedProducts    []catalog.Product `json:"viewedProducts"`
	LastActivity      time.Time         `json:"lastActivity"`
}

// Severity classifies a toast notification.
type Severity string

// Toast severities.
const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeveritySuccess, SeverityError, SeverityInfo:
		return true
	}
	return false
}

// Toast is the single pending notification.
type Toast struct {
	Message  string   `json:"message"`
	Severity Severity `json:"type"`
}

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

// Order statuses, in lifecycle order.
const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderShipped, OrderDelivered:
		return true
	}
	return false
}

// Next returns the status that follows s, or s itself once delivered.
func (s OrderStatus) Next() OrderStatus {
	switch s {
	case OrderPending:
		return OrderConfirmed
	case OrderConfirmed:
		return OrderShipped
	default:
		return OrderDelivered
	}
}

// PaymentMode is how the customer pays.
type PaymentMode string

// Payment modes accepted at checkout.
const (
	PaymentCOD    PaymentMode = "cod"
	PaymentCard   PaymentMode = "card"
	PaymentUPI    PaymentMode = "upi"
	PaymentWallet PaymentMode = "wallet"
)

// CustomerInfo is the checkout form as captured on the order.
type CustomerInfo struct {
	Name        string      `json:"name"`
	Mobile      string      `json:"mobile"`
	Email       string      `json:"email"`
	Address     string      `json:"address"`
	City        string      `json:"city"`
	Pincode     string      `json:"pincode"`
	PaymentMode PaymentMode `json:"paymentMode"`
}

// Order is a placed order. Line items are a snapshot of the cart at checkout.
type Order struct {
	ID           string       `json:"id"`
	Items        []CartLine   `json:"items"`
	Total        int64        `json:"total"`
	CustomerInfo CustomerInfo `json:"customerInfo"`
	OrderDate    time.Time    `json:"orderDate"`
	Status       OrderStatus  `json:"status"`
}

// Snapshot is the complete state of a session at one point in time.
//
// SelectedCategory (SetCategory) and CurrentCategory (SetCategoryFilter) are
// independent filters; so are UserInterests and Activity.ClickedCategories.
type Snapshot struct {
	User                *User             `json:"user"`
	IsAuthenticated     bool              `json:"isAuthenticated"`
	Cart                []CartLine        `json:"cart"`
	Wishlist            []WishlistEntry   `json:"wishlist"`
	RecentlyViewed      []catalog.Product `json:"recentlyViewed"`
	UserInterests       []string          `json:"userInterests"`
	Activity            ActivityLog       `json:"userActivity"`
	Language            string            `json:"language"`
	SearchQuery         string            `json:"searchQuery"`
	RecentSearches      []string          `json:"recentSearches"`
	IsVoiceSearchActive bool              `json:"isVoiceSearchActive"`
	IsChatOpen          bool              `json:"isChatOpen"`
	CurrentWeather      string            `json:"currentWeather"`
	SelectedCategory    *string           `json:"selectedCategory"`
	CurrentCategory     *string           `json:"currentCategory"`
	Orders              []Order           `json:"orders"`
	IsLoading           bool              `json:"isLoading"`
	Toast               *Toast            `json:"toast"`
	RedirectPath        *string           `json:"redirectPath"`
}

// Initial returns the snapshot of a fresh, anonymous session.
func Initial(now time.Time) Snapshot {
	return Snapshot{
		Activity: ActivityLog{
			LastActivity: now,
		},
		Language:       DefaultLanguage,
		CurrentWeather: DefaultWeather,
	}
}

// CartTotal sums every cart line.
func (s Snapshot) CartTotal() int64 {
	var total int64
	for _, l := range s.Cart {
		total += l.Subtotal()
	}
	return total
}

// CartCount sums the quantities of every cart line.
func (s Snapshot) CartCount() int {
	n := 0
	for _, l := range s.Cart {
		n += l.Quantity
	}
	return n
}

// InWishlist reports whether a product is in the wishlist.
func (s Snapshot) InWishlist(id catalog.ID) bool {
	for _, e := range s.Wishlist {
		if e.Product.ID == id {
			return true
		}
	}
	return false
}

// InCart reports whether any cart line holds the product.
func (s Snapshot) InCart(id catalog.ID) bool {
	for _, l := range s.Cart {
		if l.Product.ID == id {
			return true
		}
	}
	return false
}
