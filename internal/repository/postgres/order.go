package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

const orderColumns = "id, order_date, total, status, buyer_name, buyer_surname, buyer_phone, buyer_address, version"

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new OrderRepository backed by Postgres.
func NewOrderRepository(db *sql.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

// Upsert writes the order row and replaces its lines. A row already at a
// newer version is left alone.
func (r *orderRepository) Upsert(ctx context.Context, o entity.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			order_date = EXCLUDED.order_date,
			total = EXCLUDED.total,
			status = EXCLUDED.status,
			buyer_name = EXCLUDED.buyer_name,
			buyer_surname = EXCLUDED.buyer_surname,
			buyer_phone = EXCLUDED.buyer_phone,
			buyer_address = EXCLUDED.buyer_address,
			version = EXCLUDED.version
		WHERE orders.version <= EXCLUDED.version
		RETURNING id`,
		o.ID, o.OrderDate, o.Total, o.Status,
		o.Buyer.Name, o.Buyer.Surname, o.Buyer.Phone, o.Buyer.Address, o.Version,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		// stale write
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to upsert order %s: %w", o.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM order_lines WHERE order_id = $1", o.ID); err != nil {
		return fmt.Errorf("failed to clear lines of order %s: %w", o.ID, err)
	}
	for i, line := range o.Lines {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO order_lines (order_id, position, product_id, product_name, category, price, unit_mode, amount) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
			o.ID, i, line.Product.ID, line.Product.Name, line.Product.Category, line.Product.Price, line.Product.UnitMode, line.Amount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert line %d of order %s: %w", i, o.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func scanOrder(row rowScanner) (entity.Order, error) {
	var o entity.Order
	err := row.Scan(&o.ID, &o.OrderDate, &o.Total, &o.Status,
		&o.Buyer.Name, &o.Buyer.Surname, &o.Buyer.Phone, &o.Buyer.Address, &o.Version)
	return o, err
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (entity.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Order{}, fmt.Errorf("%w: %s", entity.ErrOrderNotFound, id)
	}
	if err != nil {
		return entity.Order{}, fmt.Errorf("failed to query order %s: %w", id, err)
	}

	orders := []entity.Order{o}
	if err := r.attachLines(ctx, orders); err != nil {
		return entity.Order{}, err
	}
	return orders[0], nil
}

func (r *orderRepository) FindAll(ctx context.Context) ([]entity.Order, error) {
	return r.query(ctx, "SELECT "+orderColumns+" FROM orders ORDER BY order_date DESC, id")
}

func (r *orderRepository) FindByBuyerName(ctx context.Context, name string) ([]entity.Order, error) {
	return r.query(ctx, "SELECT "+orderColumns+" FROM orders WHERE buyer_name = $1 ORDER BY order_date DESC, id", name)
}

func (r *orderRepository) query(ctx context.Context, query string, args ...any) ([]entity.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []entity.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}

	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachLines loads the lines of all orders in one query.
func (r *orderRepository) attachLines(ctx context.Context, orders []entity.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	byID := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = i
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT order_id, product_id, product_name, category, price, unit_mode, amount FROM order_lines WHERE order_id = ANY($1) ORDER BY order_id, position",
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var line entity.OrderLine
		if err := rows.Scan(&orderID, &line.Product.ID, &line.Product.Name, &line.Product.Category,
			&line.Product.Price, &line.Product.UnitMode, &line.Amount); err != nil {
			return fmt.Errorf("failed to scan order line: %w", err)
		}
		i := byID[orderID]
		orders[i].Lines = append(orders[i].Lines, line)
	}
	return rows.Err()
}
