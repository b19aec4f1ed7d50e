package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const orderSelect = `
	SELECT id, user_id, in_cart, ship_name, ship_phone, ship_address, ship_note,
	       created_at, updated_at, completed_at
	FROM orders`

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o                          domain.Order
		name, phone, address, note sql.NullString
		completedAt                sql.NullTime
	)
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.InCart,
		&name,
		&phone,
		&address,
		&note,
		&o.CreatedAt,
		&o.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		t := completedAt.Time
		o.CompletedAt = &t
	}
	if name.Valid {
		o.Shipping = &domain.ShippingDetails{
			Name:    name.String,
			Phone:   phone.String,
			Address: address.String,
			Note:    note.String,
		}
	}
	o.Items = []domain.OrderItem{}
	return &o, nil
}

// EnsureActiveCart relies on the partial unique index on orders(user_id) WHERE in_cart.
// The no-op DO UPDATE makes RETURNING yield the existing row on conflict.
func (r *Repository) EnsureActiveCart(ctx context.Context, userID uuid.UUID) (*domain.Order, error) {
	query := `INSERT INTO orders (id, user_id, in_cart, created_at, updated_at)
	          VALUES ($1, $2, TRUE, NOW(), NOW())
	          ON CONFLICT (user_id) WHERE in_cart DO UPDATE SET updated_at = orders.updated_at
	          RETURNING id`

	var orderID uuid.UUID
	err := r.db.QueryRowContext(ctx, query, uuid.New(), userID).Scan(&orderID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("upsert active cart: %w", err)
	}

	return r.GetOrder(ctx, orderID)
}

func (r *Repository) GetActiveCart(ctx context.Context, userID uuid.UUID) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, orderSelect+` WHERE user_id = $1 AND in_cart`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query active cart: %w", err)
	}

	if err := r.attachItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, orderSelect+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}

	if err := r.attachItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) ListCompletedOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		orderSelect+` WHERE user_id = $1 AND NOT in_cart ORDER BY completed_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	if err := r.attachItems(ctx, orders...); err != nil {
		return nil, err
	}
	return orders, nil
}

const itemSelect = `
	SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.price_at_purchase,
	       oi.created_at, oi.updated_at
	FROM order_items oi
	JOIN products p ON p.id = oi.product_id`

func scanItem(row rowScanner) (*domain.OrderItem, error) {
	item := &domain.OrderItem{}
	err := row.Scan(
		&item.ID,
		&item.OrderID,
		&item.ProductID,
		&item.ProductName,
		&item.Quantity,
		&item.PriceAtPurchase,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// attachItems loads the lines of all given orders with one query.
func (r *Repository) attachItems(ctx context.Context, orders ...*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[uuid.UUID]*domain.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID.String()
		byID[o.ID] = o
	}

	rows, err := r.db.QueryContext(ctx,
		itemSelect+` WHERE oi.order_id = ANY($1::uuid[]) ORDER BY oi.created_at, oi.id`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, *item)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}
	return nil
}

func (r *Repository) GetItem(ctx context.Context, itemID uuid.UUID) (*ItemRef, error) {
	query := `
	SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.price_at_purchase,
	       oi.created_at, oi.updated_at, o.user_id, o.in_cart
	FROM order_items oi
	JOIN products p ON p.id = oi.product_id
	JOIN orders o ON o.id = oi.order_id
	WHERE oi.id = $1`

	var ref ItemRef
	err := r.db.QueryRowContext(ctx, query, itemID).Scan(
		&ref.Item.ID,
		&ref.Item.OrderID,
		&ref.Item.ProductID,
		&ref.Item.ProductName,
		&ref.Item.Quantity,
		&ref.Item.PriceAtPurchase,
		&ref.Item.CreatedAt,
		&ref.Item.UpdatedAt,
		&ref.UserID,
		&ref.InCart,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order item by id: %w", err)
	}
	return &ref, nil
}

// AddItem only writes into orders that are still carts. The price is taken from
// the product passed in and is not part of the conflict update.
func (r *Repository) AddItem(ctx context.Context, orderID uuid.UUID, product *domain.Product, quantity int) (*domain.OrderItem, error) {
	query := `
	INSERT INTO order_items (id, order_id, product_id, quantity, price_at_purchase, created_at, updated_at)
	SELECT $1, o.id, $3, $4, $5, NOW(), NOW()
	FROM orders o
	WHERE o.id = $2 AND o.in_cart
	ON CONFLICT (order_id, product_id) DO UPDATE
	SET quantity = order_items.quantity + EXCLUDED.quantity, updated_at = NOW()
	RETURNING id, order_id, product_id, quantity, price_at_purchase, created_at, updated_at`

	item := domain.OrderItem{ProductName: product.Name}
	err := r.db.QueryRowContext(ctx, query, uuid.New(), orderID, product.ID, quantity, product.Price).Scan(
		&item.ID,
		&item.OrderID,
		&item.ProductID,
		&item.Quantity,
		&item.PriceAtPurchase,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotActive
	}
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("upsert order item: %w", err)
	}
	return &item, nil
}

func (r *Repository) SetItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	query := `UPDATE order_items oi
	          SET quantity = $2, updated_at = NOW()
	          FROM orders o
	          WHERE oi.id = $1 AND o.id = oi.order_id AND o.in_cart`

	result, err := r.db.ExecContext(ctx, query, itemID, quantity)
	if err != nil {
		return fmt.Errorf("update item quantity: %w", err)
	}
	return expectAffected(result, ErrItemNotFound)
}

func (r *Repository) RemoveItem(ctx context.Context, itemID uuid.UUID) error {
	query := `DELETE FROM order_items oi
	          USING orders o
	          WHERE oi.id = $1 AND o.id = oi.order_id AND o.in_cart`

	result, err := r.db.ExecContext(ctx, query, itemID)
	if err != nil {
		return fmt.Errorf("delete order item: %w", err)
	}
	return expectAffected(result, ErrItemNotFound)
}

func expectAffected(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

type stockLine struct {
	productID uuid.UUID
	stock     int
	quantity  int
}

// CompleteOrder runs the stock check and the deduction in one transaction.
// The order row and every product row it references are locked first, products
// in id order so that concurrent completions cannot deadlock.
func (r *Repository) CompleteOrder(ctx context.Context, orderID uuid.UUID, shipping domain.ShippingDetails) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var inCart bool
	err = tx.QueryRowContext(ctx, `SELECT in_cart FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&inCart)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("lock order: %w", err)
	}
	if !inCart {
		return ErrOrderNotActive
	}

	lines, err := lockStockLines(ctx, tx, orderID)
	if err != nil {
		return err
	}

	for _, line := range lines {
		if line.quantity > line.stock {
			return &StockShortage{ProductID: line.productID, Requested: line.quantity, Available: line.stock}
		}
	}

	for _, line := range lines {
		_, err := tx.ExecContext(ctx,
			`UPDATE products SET available_stock = available_stock - $2, updated_at = NOW() WHERE id = $1`,
			line.productID, line.quantity)
		if err != nil {
			return fmt.Errorf("deduct stock for product %s: %w", line.productID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET in_cart = FALSE, completed_at = NOW(), updated_at = NOW(),
		    ship_name = $2, ship_phone = $3, ship_address = $4, ship_note = $5
		WHERE id = $1`,
		orderID, shipping.Name, shipping.Phone, shipping.Address, shipping.Note)
	if err != nil {
		return fmt.Errorf("close order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order completion: %w", err)
	}
	return nil
}

func lockStockLines(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) ([]stockLine, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT p.id, p.available_stock, oi.quantity
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY p.id
		FOR UPDATE OF p`, orderID)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()

	var lines []stockLine
	for rows.Next() {
		var line stockLine
		if err := rows.Scan(&line.productID, &line.stock, &line.quantity); err != nil {
			return nil, fmt.Errorf("scan stock line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return lines, nil
}
