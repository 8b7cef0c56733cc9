package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// ProductInput is the editable part of a product. A nil Stock leaves the
// stock as it is.
type ProductInput struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Category    string              `json:"category"`
	ImageURL    string              `json:"image_url"`
	Price       decimal.NullDecimal `json:"price"`
	Stock       *float64            `json:"stock,omitempty"`
	UnitMode    string              `json:"unit_mode"`
}

func (in ProductInput) validate() (entity.UnitMode, error) {
	if strings.TrimSpace(in.Name) == "" {
		return "", fmt.Errorf("%w: name is required", entity.ErrInvalidInput)
	}
	if in.Price.Valid && in.Price.Decimal.IsNegative() {
		return "", fmt.Errorf("%w: price must not be negative", entity.ErrInvalidInput)
	}
	if in.Stock != nil && *in.Stock < 0 {
		return "", fmt.Errorf("%w: stock must not be negative", entity.ErrInvalidInput)
	}
	return entity.ParseUnitMode(in.UnitMode)
}

func (in ProductInput) applyTo(p *entity.Product, mode entity.UnitMode) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Category = in.Category
	p.ImageURL = in.ImageURL
	p.Price = in.Price
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	p.UnitMode = mode
	p.RecomputeStatus()
}

// CatalogService manages the product catalog.
type CatalogService struct {
	productRepo repository.ProductRepository
}

func NewCatalogService(productRepo repository.ProductRepository) *CatalogService {
	return &CatalogService{productRepo: productRepo}
}

func (s *CatalogService) List(ctx context.Context) ([]entity.Product, error) {
	return s.productRepo.FindAll(ctx)
}

func (s *CatalogService) ListByCategory(ctx context.Context, category string) ([]entity.Product, error) {
	return s.productRepo.FindByCategory(ctx, category)
}

func (s *CatalogService) Get(ctx context.Context, id string) (entity.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

func (s *CatalogService) Create(ctx context.Context, in ProductInput) (entity.Product, error) {
	mode, err := in.validate()
	if err != nil {
		return entity.Product{}, err
	}

	p := entity.Product{ID: uuid.NewString()}
	in.applyTo(&p, mode)
	if err := s.productRepo.Save(ctx, p); err != nil {
		return entity.Product{}, fmt.Errorf("failed to create product: %w", err)
	}
	return p, nil
}

// Update replaces the editable fields of a product in one Mutate, so an
// update without Stock never loses a concurrent decrement.
func (s *CatalogService) Update(ctx context.Context, id string, in ProductInput) (entity.Product, error) {
	mode, err := in.validate()
	if err != nil {
		return entity.Product{}, err
	}
	return s.productRepo.Mutate(ctx, id, func(p *entity.Product) error {
		in.applyTo(p, mode)
		return nil
	})
}

func (s *CatalogService) Delete(ctx context.Context, id string) error {
	return s.productRepo.Delete(ctx, id)
}
