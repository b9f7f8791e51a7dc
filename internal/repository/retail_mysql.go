package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"retail-report-api/internal/model"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// MySQLRetailStore implements RetailStore using MySQL.
type MySQLRetailStore struct {
	db *sql.DB
}

// NewMySQLRetailStore creates a new MySQL retail store.
// dsn format: "user:password@tcp(host:port)/dbname?parseTime=true"
func NewMySQLRetailStore(dsn string) (*MySQLRetailStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	if err := createMySQLSchema(db); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	log.Printf("[MySQLRetailStore] Initialized with pool: max=%d, idle=%d", 25, 10)
	return &MySQLRetailStore{db: db}, nil
}

// createMySQLSchema creates the customers/transactions tables and indexes.
// MySQL cannot do CREATE INDEX IF NOT EXISTS, so indexes live in the table
// definitions.
func createMySQLSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			id CHAR(36) PRIMARY KEY,
			first_name TEXT,
			last_name  TEXT,
			email      TEXT NOT NULL,
			address    TEXT,
			city       TEXT,
			state      TEXT,
			zip4       TEXT,
			age        INT
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id CHAR(36) PRIMARY KEY DEFAULT (UUID()),
			user_id CHAR(36) NOT NULL,
			timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			category_l1 TEXT,
			category_l2 TEXT,
			category_l3 TEXT,
			quantity INT,
			unit_price DECIMAL(12,2),
			total_price DECIMAL(14,2),
			INDEX idx_tx_user (user_id),
			INDEX idx_tx_time (timestamp),
			CONSTRAINT fk_tx_customer FOREIGN KEY (user_id) REFERENCES customers(id) ON DELETE CASCADE
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// myWindowFilter is the since-days predicate; the parameter appears twice.
const myWindowFilter = `(? <= 0 OR %s >= DATE_SUB(NOW(), INTERVAL ? DAY))`

// RetailReport computes the aggregate report.
func (r *MySQLRetailStore) RetailReport(ctx context.Context, sinceDays, limit int) (*model.RetailReport, error) {
	report := &model.RetailReport{
		TopClients:    []model.TopClient{},
		ShoppingCarts: []model.ShoppingCart{},
	}

	summaryQuery := fmt.Sprintf(`
		SELECT
			COUNT(DISTINCT t.user_id),
			COALESCE(SUM(t.total_price), 0),
			COALESCE(AVG(t.total_price), 0)
		FROM transactions t
		WHERE `+myWindowFilter, "t.timestamp")

	err := r.db.QueryRowContext(ctx, summaryQuery, sinceDays, sinceDays).Scan(
		&report.Summary.TotalActiveShoppers,
		&report.Summary.TotalCartValue,
		&report.Summary.AverageCartValue,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query report summary: %w", err)
	}

	topQuery := fmt.Sprintf(`
		SELECT
			c.id,
			TRIM(CONCAT(COALESCE(c.first_name, ''), ' ', COALESCE(c.last_name, ''))) AS name,
			COALESCE(c.email, ''),
			ROUND(SUM(t.total_price), 2) AS total_spent,
			COUNT(*)
		FROM customers c
		JOIN transactions t ON t.user_id = c.id
		WHERE `+myWindowFilter+`
		GROUP BY c.id, c.first_name, c.last_name, c.email
		ORDER BY total_spent DESC
		LIMIT ?`, "t.timestamp")

	rows, err := r.db.QueryContext(ctx, topQuery, sinceDays, sinceDays, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top clients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tc model.TopClient
		if err := rows.Scan(&tc.UserID, &tc.Name, &tc.Email, &tc.TotalSpent, &tc.TotalPurchases); err != nil {
			return nil, fmt.Errorf("failed to scan top client: %w", err)
		}
		report.TopClients = append(report.TopClients, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	itemQuery := fmt.Sprintf(`
		SELECT
			COALESCE(NULLIF(TRIM(category_l3), ''),
			         NULLIF(TRIM(category_l2), ''),
			         NULLIF(TRIM(category_l1), ''), '') AS name,
			COALESCE(NULLIF(TRIM(category_l2), ''), category_l1, '') AS category,
			COALESCE(SUM(quantity), 0) AS quantity,
			COALESCE(AVG(unit_price), 0)
		FROM transactions
		WHERE user_id = ?
		  AND `+myWindowFilter+`
		GROUP BY name, category
		ORDER BY quantity DESC
		LIMIT 20`, "timestamp")

	for _, tc := range report.TopClients {
		itemRows, err := r.db.QueryContext(ctx, itemQuery, tc.UserID, sinceDays, sinceDays)
		if err != nil {
			return nil, fmt.Errorf("failed to query cart items for %s: %w", tc.UserID, err)
		}

		cart := model.ShoppingCart{ClientName: tc.Name, Items: []model.CartItem{}}
		for itemRows.Next() {
			var item model.CartItem
			if err := itemRows.Scan(&item.Name, &item.Category, &item.Quantity, &item.Price); err != nil {
				itemRows.Close()
				return nil, fmt.Errorf("failed to scan cart item: %w", err)
			}
			cart.Items = append(cart.Items, item)
		}
		if err := itemRows.Err(); err != nil {
			itemRows.Close()
			return nil, err
		}
		itemRows.Close()

		for _, item := range cart.Items {
			cart.CartValue += item.Price * float64(item.Quantity)
			cart.ItemsCount += item.Quantity
		}
		cart.CartValue = roundCents(cart.CartValue)
		report.ShoppingCarts = append(report.ShoppingCarts, cart)
	}

	return report, nil
}

// ActiveShoppers lists shoppers with at least one transaction in the window.
func (r *MySQLRetailStore) ActiveShoppers(ctx context.Context, sinceDays, limit int) ([]model.ActiveShopper, error) {
	query := fmt.Sprintf(`
		SELECT
			c.id,
			TRIM(CONCAT(COALESCE(c.first_name, ''), ' ', COALESCE(c.last_name, ''))) AS name,
			COALESCE(c.email, ''),
			COALESCE(SUM(t.quantity), 0),
			COALESCE(SUM(t.total_price), 0) AS cart_value,
			MAX(t.timestamp)
		FROM customers c
		JOIN transactions t ON t.user_id = c.id
		WHERE `+myWindowFilter+`
		GROUP BY c.id, c.first_name, c.last_name, c.email
		ORDER BY cart_value DESC`, "t.timestamp")

	args := []interface{}{sinceDays, sinceDays}
	if limit > 0 {
		query += "\n\t\tLIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query active shoppers: %w", err)
	}
	defer rows.Close()

	shoppers := []model.ActiveShopper{}
	for rows.Next() {
		var (
			s          model.ActiveShopper
			lastActive sql.NullTime
		)
		if err := rows.Scan(&s.UserID, &s.Name, &s.Email, &s.CartItemsCount, &s.CartValue, &lastActive); err != nil {
			return nil, fmt.Errorf("failed to scan active shopper: %w", err)
		}
		if lastActive.Valid {
			t := lastActive.Time.UTC()
			s.LastActive = &t
		}
		shoppers = append(shoppers, s)
	}
	return shoppers, rows.Err()
}

// PopularItems lists the most purchased items in the window.
func (r *MySQLRetailStore) PopularItems(ctx context.Context, sinceDays, limit int) ([]model.PopularItem, error) {
	query := fmt.Sprintf(`
		SELECT
			COALESCE(NULLIF(TRIM(category_l3), ''),
			         NULLIF(TRIM(category_l2), ''),
			         NULLIF(TRIM(category_l1), '')) AS name,
			COALESCE(NULLIF(TRIM(category_l2), ''), category_l1, '') AS category,
			COALESCE(AVG(unit_price), 0),
			COALESCE(SUM(quantity), 0) AS purchase_count
		FROM transactions
		WHERE `+myWindowFilter+`
		GROUP BY name, category
		HAVING name IS NOT NULL
		ORDER BY purchase_count DESC
		LIMIT ?`, "timestamp")

	rows, err := r.db.QueryContext(ctx, query, sinceDays, sinceDays, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query popular items: %w", err)
	}
	defer rows.Close()

	items := []model.PopularItem{}
	for rows.Next() {
		var item model.PopularItem
		if err := rows.Scan(&item.Name, &item.Category, &item.Price, &item.PurchaseCount); err != nil {
			return nil, fmt.Errorf("failed to scan popular item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CustomerDetail returns one customer's profile and transactions.
func (r *MySQLRetailStore) CustomerDetail(ctx context.Context, userID string, sinceDays int) (*model.CustomerDetail, error) {
	var first, last, email sql.NullString
	detail := &model.CustomerDetail{Transactions: []model.CustomerTransaction{}}

	err := r.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, email FROM customers WHERE id = ?`,
		userID,
	).Scan(&detail.Customer.ID, &first, &last, &email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query customer: %w", err)
	}
	detail.Customer.Name = joinName(first.String, last.String)
	detail.Customer.Email = email.String

	txQuery := fmt.Sprintf(`
		SELECT
			id,
			timestamp,
			COALESCE(NULLIF(TRIM(category_l3), ''),
			         NULLIF(TRIM(category_l2), ''),
			         NULLIF(TRIM(category_l1), ''), '') AS item,
			COALESCE(quantity, 0),
			COALESCE(unit_price, 0),
			COALESCE(total_price, 0)
		FROM transactions
		WHERE user_id = ?
		  AND `+myWindowFilter+`
		ORDER BY timestamp DESC`, "timestamp")

	rows, err := r.db.QueryContext(ctx, txQuery, userID, sinceDays, sinceDays)
	if err != nil {
		return nil, fmt.Errorf("failed to query customer transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tx model.CustomerTransaction
			ts sql.NullTime
		)
		if err := rows.Scan(&tx.ID, &ts, &tx.Item, &tx.Quantity, &tx.UnitPrice, &tx.TotalPrice); err != nil {
			return nil, fmt.Errorf("failed to scan customer transaction: %w", err)
		}
		if ts.Valid {
			t := ts.Time.UTC()
			tx.Timestamp = &t
		}
		detail.Transactions = append(detail.Transactions, tx)
	}
	return detail, rows.Err()
}

// InsertCustomers batch-inserts customers, skipping duplicate ids.
func (r *MySQLRetailStore) InsertCustomers(ctx context.Context, customers []model.Customer) (int, error) {
	if len(customers) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT IGNORE INTO customers (id, first_name, last_name, email, address, city, state, zip4, age)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, c := range customers {
		res, err := stmt.ExecContext(ctx, c.ID, c.FirstName, c.LastName, c.Email, c.Address, c.City, c.State, c.Zip4, c.Age)
		if err != nil {
			return 0, fmt.Errorf("failed to insert customer %s: %w", c.ID, err)
		}
		// Ignored duplicates report zero affected rows.
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read rows affected: %w", err)
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit customers: %w", err)
	}
	return int(inserted), nil
}

// InsertTransactions batch-inserts transactions.
func (r *MySQLRetailStore) InsertTransactions(ctx context.Context, txs []model.Transaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT INTO transactions
			(id, user_id, quantity, unit_price, total_price, category_l1, category_l2, category_l3, timestamp)
		VALUES (UUID(), ?, ?, ?, ?, ?, ?, ?, COALESCE(?, NOW()))`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, t := range txs {
		var ts interface{}
		if t.Timestamp != nil {
			ts = *t.Timestamp
		}
		if _, err := stmt.ExecContext(ctx, t.UserID, t.Quantity, t.UnitPrice, t.TotalPrice, t.CategoryL1, t.CategoryL2, t.CategoryL3, ts); err != nil {
			return 0, fmt.Errorf("failed to insert transaction for %s: %w", t.UserID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transactions: %w", err)
	}
	return len(txs), nil
}

// Counts returns the current customer and transaction row counts.
func (r *MySQLRetailStore) Counts(ctx context.Context) (int64, int64, error) {
	var customers, transactions int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&customers); err != nil {
		return 0, 0, fmt.Errorf("failed to count customers: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&transactions); err != nil {
		return 0, 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return customers, transactions, nil
}

// Wipe removes all customers and transactions. DELETE instead of TRUNCATE
// because MySQL refuses to truncate a table referenced by a foreign key.
func (r *MySQLRetailStore) Wipe(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("failed to wipe transactions: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM customers`); err != nil {
		return fmt.Errorf("failed to wipe customers: %w", err)
	}
	return nil
}

// Stats returns statistics about the retail database.
func (r *MySQLRetailStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	customers, transactions, err := r.Counts(ctx)
	if err != nil {
		return nil, err
	}
	stats["customers"] = customers
	stats["transactions"] = transactions

	poolStats := r.db.Stats()
	stats["pool"] = map[string]interface{}{
		"open_connections": poolStats.OpenConnections,
		"in_use":           poolStats.InUse,
		"idle":             poolStats.Idle,
	}

	return stats, nil
}

// Close closes the database connection pool.
func (r *MySQLRetailStore) Close() error {
	return r.db.Close()
}

var _ RetailStore = (*MySQLRetailStore)(nil)
