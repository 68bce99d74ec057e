package service

import (
	"context"
	"strings"
	"time"

	"poultrymarket/internal/model"
	"poultrymarket/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// productService implements ProductService.
type productService struct {
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(productRepo repository.ProductRepository, logger zerolog.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		logger:      logger.With().Str("service", "product").Logger(),
	}
}

func (s *productService) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	filter.Search = strings.TrimSpace(filter.Search)

	products, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Int("count", len(products)).Msg("products listed")
	return products, nil
}

func (s *productService) Get(ctx context.Context, viewer *model.User, id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, model.NotFound("product")
	}
	if !product.IsActive && !canManage(viewer, product) {
		return nil, model.ErrProductUnavailable
	}
	return product, nil
}

func (s *productService) Create(ctx context.Context, seller *model.User, req *model.ProductRequest) (*model.Product, error) {
	if !seller.Role.CanSell() {
		return nil, model.ErrForbidden
	}
	if err := validateProduct(req); err != nil {
		return nil, err
	}

	now := time.Now()
	product := &model.Product{
		ID:        uuid.New(),
		SellerID:  seller.ID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyProduct(product, req)

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info().Str("product_id", product.ID.String()).Str("seller_id", seller.ID.String()).Msg("product created")
	return product, nil
}

func (s *productService) Update(ctx context.Context, actor *model.User, id uuid.UUID, req *model.ProductRequest) (*model.Product, error) {
	product, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := validateProduct(req); err != nil {
		return nil, err
	}

	applyProduct(product, req)
	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// Delete deactivates the product so existing orders keep their reference.
func (s *productService) Delete(ctx context.Context, actor *model.User, id uuid.UUID) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.productRepo.Deactivate(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Str("product_id", id.String()).Str("actor_id", actor.ID.String()).Msg("product deactivated")
	return nil
}

func (s *productService) owned(ctx context.Context, actor *model.User, id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, model.NotFound("product")
	}
	if !canManage(actor, product) {
		return nil, model.ErrForbidden
	}
	return product, nil
}

func canManage(user *model.User, product *model.Product) bool {
	return user != nil && (user.IsAdmin() || user.ID == product.SellerID)
}

func validateProduct(req *model.ProductRequest) error {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return model.Validationf("name is required")
	case strings.TrimSpace(req.Category) == "":
		return model.Validationf("category is required")
	case !req.Price.IsPositive():
		return model.Validationf("price must be greater than zero")
	case req.Stock < 0:
		return model.Validationf("stock cannot be negative")
	}
	return nil
}

func applyProduct(p *model.Product, req *model.ProductRequest) {
	p.Name = strings.TrimSpace(req.Name)
	p.Description = strings.TrimSpace(req.Description)
	p.Category = strings.TrimSpace(req.Category)
	p.Price = req.Price.Round(2)
	p.Unit = strings.TrimSpace(req.Unit)
	if p.Unit == "" {
		p.Unit = "piece"
	}
	p.Stock = req.Stock
	p.ImageURLs = req.ImageURLs
	if p.ImageURLs == nil {
		p.ImageURLs = []string{}
	}
}
