package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

const productColumns = "id, name, description, category, image_url, price, stock, unit_mode, status"

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new ProductRepository backed by Postgres.
func NewProductRepository(db *sql.DB) repository.ProductRepository {
	return &productRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (entity.Product, error) {
	var p entity.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.ImageURL, &p.Price, &p.Stock, &p.UnitMode, &p.Status)
	return p, err
}

func (r *productRepository) FindByID(ctx context.Context, id string) (entity.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Product{}, fmt.Errorf("%w: %s", entity.ErrProductNotFound, id)
	}
	if err != nil {
		return entity.Product{}, fmt.Errorf("failed to query product %s: %w", id, err)
	}
	return p, nil
}

func (r *productRepository) FindAll(ctx context.Context) ([]entity.Product, error) {
	return r.query(ctx, "SELECT "+productColumns+" FROM products ORDER BY name, id")
}

func (r *productRepository) FindByCategory(ctx context.Context, category string) ([]entity.Product, error) {
	return r.query(ctx, "SELECT "+productColumns+" FROM products WHERE category = $1 ORDER BY name, id", category)
}

func (r *productRepository) query(ctx context.Context, query string, args ...any) ([]entity.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []entity.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product rows: %w", err)
	}
	return products, nil
}

func (r *productRepository) Save(ctx context.Context, p entity.Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			image_url = EXCLUDED.image_url,
			price = EXCLUDED.price,
			stock = EXCLUDED.stock,
			unit_mode = EXCLUDED.unit_mode,
			status = EXCLUDED.status`,
		p.ID, p.Name, p.Description, p.Category, p.ImageURL, p.Price, p.Stock, p.UnitMode, p.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to save product %s: %w", p.ID, err)
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", entity.ErrProductNotFound, id)
	}
	return nil
}

// Mutate locks the product row for the duration of fn, so concurrent
// mutations of the same product queue up on the row lock.
func (r *productRepository) Mutate(ctx context.Context, id string, fn func(p *entity.Product) error) (entity.Product, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return entity.Product{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	cur, err := scanProduct(tx.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1 FOR UPDATE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Product{}, fmt.Errorf("%w: %s", entity.ErrProductNotFound, id)
	}
	if err != nil {
		return entity.Product{}, fmt.Errorf("failed to lock product %s: %w", id, err)
	}

	next := cur
	if err := fn(&next); err != nil {
		return cur, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE products SET name = $2, description = $3, category = $4, image_url = $5,
			price = $6, stock = $7, unit_mode = $8, status = $9
		WHERE id = $1`,
		next.ID, next.Name, next.Description, next.Category, next.ImageURL, next.Price, next.Stock, next.UnitMode, next.Status,
	)
	if err != nil {
		return cur, fmt.Errorf("failed to update product %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return cur, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return next, nil
}

func (r *productRepository) Seed(ctx context.Context, products []entity.Product) error {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil // already seeded
	}

	for _, p := range products {
		if err := r.Save(ctx, p); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.ID, err)
		}
	}
	return nil
}
