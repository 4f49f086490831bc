package session

import (
	"time"

	"smartshop/internal/catalog"
)

// Kind identifies an action.
type Kind int

// Action kinds.
const (
	KindUnknown Kind = iota
	KindSetUser
	KindLogin
	KindSignup
	KindLogout
	KindAddToCart
	KindRemoveFromCart
	KindUpdateQuantity
	KindClearCart
	KindAddToWishlist
	KindRemoveFromWishlist
	KindAddRecentlyViewed
	KindAddUserInterest
	KindAddViewedProduct
	KindAddClickedCategory
	KindAddSearchQuery
	KindAddRecentSearch
	KindSetLanguage
	KindSetSearchQuery
	KindToggleVoiceSearch
	KindToggleChat
	KindSetWeather
	KindSetCategory
	KindSetCategoryFilter
	KindSetLoading
	KindSetOrders
	KindAddOrder
	KindLoadCartFromStorage
	KindLoadWishlistFromStorage
	KindLoadUserActivity
	KindShowToast
	KindHideToast
	KindSetRedirectPath
)

var kindNames = [...]string{
	KindUnknown:                 "UNKNOWN",
	KindSetUser:                 "SET_USER",
	KindLogin:                   "LOGIN",
	KindSignup:                  "SIGNUP",
	KindLogout:                  "LOGOUT",
	KindAddToCart:               "ADD_TO_CART",
	KindRemoveFromCart:          "REMOVE_FROM_CART",
	KindUpdateQuantity:          "UPDATE_QUANTITY",
	KindClearCart:               "CLEAR_CART",
	KindAddToWishlist:           "ADD_TO_WISHLIST",
	KindRemoveFromWishlist:      "REMOVE_FROM_WISHLIST",
	KindAddRecentlyViewed:       "ADD_RECENTLY_VIEWED",
	KindAddUserInterest:         "ADD_USER_INTEREST",
	KindAddViewedProduct:        "ADD_VIEWED_PRODUCT",
	KindAddClickedCategory:      "ADD_CLICKED_CATEGORY",
	KindAddSearchQuery:          "ADD_SEARCH_QUERY",
	KindAddRecentSearch:         "ADD_RECENT_SEARCH",
	KindSetLanguage:             "SET_LANGUAGE",
	KindSetSearchQuery:          "SET_SEARCH_QUERY",
	KindToggleVoiceSearch:       "TOGGLE_VOICE_SEARCH",
	KindToggleChat:              "TOGGLE_CHAT",
	KindSetWeather:              "SET_WEATHER",
	KindSetCategory:             "SET_CATEGORY",
	KindSetCategoryFilter:       "SET_CATEGORY_FILTER",
	KindSetLoading:              "SET_LOADING",
	KindSetOrders:               "SET_ORDERS",
	KindAddOrder:                "ADD_ORDER",
	KindLoadCartFromStorage:     "LOAD_CART_FROM_STORAGE",
	KindLoadWishlistFromStorage: "LOAD_WISHLIST_FROM_STORAGE",
	KindLoadUserActivity:        "LOAD_USER_ACTIVITY",
	KindShowToast:               "SHOW_TOAST",
	KindHideToast:               "HIDE_TOAST",
	KindSetRedirectPath:         "SET_REDIRECT_PATH",
}

// String returns the wire name of the action kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// Action is a tagged state mutation passed to Store.Dispatch.
type Action interface {
	Kind() Kind
}

// SetUser replaces the user without any persistence.
type SetUser struct{ User *User }

// Login sets an authenticated user after a successful sign-in.
type Login struct{ User User }

// Signup sets an authenticated user after account creation.
type Signup struct{ User User }

// Logout resets the session, keeping only the language.
type Logout struct{}

// AddToCart adds Quantity units of a product variant. A zero Quantity means 1.
type AddToCart struct {
	Product  catalog.Product
	Quantity int
	Size     string
	Color    string
}

// RemoveFromCart drops every cart line for the product.
type RemoveFromCart struct{ ProductID catalog.ID }

// UpdateQuantity sets the quantity of the product's lines; <= 0 removes them.
type UpdateQuantity struct {
	ProductID catalog.ID
	Quantity  int
}

// ClearCart empties the cart.
type ClearCart struct{}

// AddToWishlist saves a product unless it is already saved.
type AddToWishlist struct{ Product catalog.Product }

// RemoveFromWishlist deletes a saved product.
type RemoveFromWishlist struct{ ProductID catalog.ID }

// AddRecentlyViewed records a product page visit.
type AddRecentlyViewed struct{ Product catalog.Product }

// AddUserInterest records an interest tag.
type AddUserInterest struct{ Category string }

// AddViewedProduct records a viewed product in the activity log.
type AddViewedProduct struct{ Product catalog.Product }

// AddClickedCategory records a category click in the activity log.
type AddClickedCategory struct{ Category string }

// AddSearchQuery records a search in the activity log.
type AddSearchQuery struct{ Query string }

// AddRecentSearch records a search in the session-only recent list.
type AddRecentSearch struct{ Text string }

// SetLanguage changes the UI language.
type SetLanguage struct{ Code string }

// SetSearchQuery sets the current search text.
type SetSearchQuery struct{ Text string }

// ToggleVoiceSearch flips the voice search flag.
type ToggleVoiceSearch struct{}

// ToggleChat flips the chat widget flag.
type ToggleChat struct{}

// SetWeather sets the contextual weather tag.
type SetWeather struct{ Weather string }

// SetCategory sets SelectedCategory. A nil Category clears it.
type SetCategory struct{ Category *string }

// SetCategoryFilter sets CurrentCategory.
type SetCategoryFilter struct{ Category string }

// SetLoading sets the loading flag.
type SetLoading struct{ Loading bool }

// SetOrders replaces the order list.
type SetOrders struct{ Orders []Order }

// AddOrder appends an order.
type AddOrder struct{ Order Order }

// LoadCartFromStorage hydrates the cart at startup.
type LoadCartFromStorage struct{ Cart []CartLine }

// LoadWishlistFromStorage hydrates the wishlist at startup.
type LoadWishlistFromStorage struct{ Wishlist []WishlistEntry }

// ActivityPatch carries the activity fields to overwrite; nil fields are kept.
type ActivityPatch struct {
	SearchQueries     []string
	ClickedCategories []string
	ViewedProducts    []catalog.Product
	LastActivity      *time.Time
}

// LoadUserActivity merges a stored activity log into the session.
type LoadUserActivity struct{ Patch ActivityPatch }

// ShowToast fills the toast slot, replacing any pending toast.
type ShowToast struct{ Toast Toast }

// HideToast clears the toast slot.
type HideToast struct{}

// SetRedirectPath remembers where to go after sign-in.
type SetRedirectPath struct{ Path *string }

func (SetUser) Kind() Kind                 { return KindSetUser }
func (Login) Kind() Kind                   { return KindLogin }
func (Signup) Kind() Kind                  { return KindSignup }
func (Logout) Kind() Kind                  { return KindLogout }
func (AddToCart) Kind() Kind               { return KindAddToCart }
func (RemoveFromCart) Kind() Kind          { return KindRemoveFromCart }
func (UpdateQuantity) Kind() Kind          { return KindUpdateQuantity }
func (ClearCart) Kind() Kind               { return KindClearCart }
func (AddToWishlist) Kind() Kind           { return KindAddToWishlist }
func (RemoveFromWishlist) Kind() Kind      { return KindRemoveFromWishlist }
func (AddRecentlyViewed) Kind() Kind       { return KindAddRecentlyViewed }
func (AddUserInterest) Kind() Kind         { return KindAddUserInterest }
func (AddViewedProduct) Kind() Kind        { return KindAddViewedProduct }
func (AddClickedCategory) Kind() Kind      { return KindAddClickedCategory }
func (AddSearchQuery) Kind() Kind          { return KindAddSearchQuery }
func (AddRecentSearch) Kind() Kind         { return KindAddRecentSearch }
func (SetLanguage) Kind() Kind             { return KindSetLanguage }
func (SetSearchQuery) Kind() Kind          { return KindSetSearchQuery }
func (ToggleVoiceSearch) Kind() Kind       { return KindToggleVoiceSearch }
func (ToggleChat) Kind() Kind              { return KindToggleChat }
func (SetWeather) Kind() Kind              { return KindSetWeather }
func (SetCategory) Kind() Kind             { return KindSetCategory }
func (SetCategoryFilter) Kind() Kind       { return KindSetCategoryFilter }
func (SetLoading) Kind() Kind              { return KindSetLoading }
func (SetOrders) Kind() Kind               { return KindSetOrders }
func (AddOrder) Kind() Kind                { return KindAddOrder }
func (LoadCartFromStorage) Kind() Kind     { return KindLoadCartFromStorage }
func (LoadWishlistFromStorage) Kind() Kind { return KindLoadWishlistFromStorage }
func (LoadUserActivity) Kind() Kind        { return KindLoadUserActivity }
func (ShowToast) Kind() Kind               { return KindShowToast }
func (HideToast) Kind() Kind               { return KindHideToast }
func (SetRedirectPath) Kind() Kind         { return KindSetRedirectPath }
