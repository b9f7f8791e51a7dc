package model

import "time"

// RetailReport is the aggregate retail report: headline summary, top clients
// by spend, and a cart breakdown per top client.
type RetailReport struct {
	Summary       ReportSummary  `json:"summary"`
	TopClients    []TopClient    `json:"top_clients"`
	ShoppingCarts []ShoppingCart `json:"shopping_carts"`
}

// ReportSummary holds the headline numbers for the reporting window.
type ReportSummary struct {
	TotalActiveShoppers int     `json:"total_active_shoppers"`
	TotalCartValue      float64 `json:"total_cart_value"`
	AverageCartValue    float64 `json:"average_cart_value"`
}

// TopClient is one row of the top-spenders listing.
type TopClient struct {
	UserID         string  `json:"user_id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	TotalSpent     float64 `json:"total_spent"`
	TotalPurchases int     `json:"total_purchases"`
}

// ShoppingCart is the per-client cart breakdown in the retail report.
type ShoppingCart struct {
	ClientName string     `json:"client_name"`
	CartValue  float64    `json:"cart_value"`
	ItemsCount int        `json:"items_count"`
	Items      []CartItem `json:"items"`
}

// CartItem is a single item line within a shopping cart.
type CartItem struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// ActiveShopper is one row of the active-shoppers listing.
type ActiveShopper struct {
	UserID         string     `json:"user_id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	CartItemsCount int        `json:"cart_items_count"`
	CartValue      float64    `json:"cart_value"`
	LastActive     *time.Time `json:"last_active"`
}

// PopularItem is one row of the popular-items listing. The item name and
// category are derived from the deepest non-empty category level.
type PopularItem struct {
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	Price         float64 `json:"price"`
	PurchaseCount int     `json:"purchase_count"`
}

// CustomerDetail is the per-customer drill-down: profile plus transactions.
type CustomerDetail struct {
	Customer     CustomerProfile       `json:"customer"`
	Transactions []CustomerTransaction `json:"transactions"`
}

// CustomerProfile is the customer header of the drill-down.
type CustomerProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CustomerTransaction is one purchase in the drill-down.
type CustomerTransaction struct {
	ID         string     `json:"id"`
	Timestamp  *time.Time `json:"timestamp"`
	Item       string     `json:"item"`
	Quantity   int        `json:"quantity"`
	UnitPrice  float64    `json:"unit_price"`
	TotalPrice float64    `json:"total_price"`
}
