package model

import "time"

// Customer is a row in the customers table, populated from the CSV load.
type Customer struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip4      string `json:"zip4"`
	Age       int    `json:"age"`
}

// Transaction is a row in the transactions table. A nil Timestamp lets the
// store default it to the load time.
type Transaction struct {
	UserID     string     `json:"user_id"`
	Timestamp  *time.Time `json:"timestamp"`
	CategoryL1 string     `json:"category_l1"`
	CategoryL2 string     `json:"category_l2"`
	CategoryL3 string     `json:"category_l3"`
	Quantity   int        `json:"quantity"`
	UnitPrice  float64    `json:"unit_price"`
	TotalPrice float64    `json:"total_price"`
}

// LoadStats summarizes a sample-data load.
type LoadStats struct {
	CustomersLoaded    int `json:"customers_loaded"`
	TransactionsLoaded int `json:"transactions_loaded"`
	ActiveShoppers     int `json:"active_shoppers"`
}
