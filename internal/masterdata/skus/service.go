package skus

import (
	"context"
	"errors"
	"fmt"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, req CreateSKURequest) (*SKU, error) {
	existing, err := s.repo.GetByCode(ctx, req.Code)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check existing sku: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyExists
	}

	sku := SKU{
		Name:          req.Name,
		Code:          req.Code,
		CurrentStock:  req.CurrentStock,
		PurchasePrice: req.PurchasePrice,
		SellingPrice:  req.SellingPrice,
		MinStock:      req.MinStock,
	}

	id, err := s.repo.Create(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("create sku: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateSKURequest) (*SKU, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get sku: %w", err)
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Code != nil {
		updates["code"] = *req.Code
	}
	if req.PurchasePrice != nil {
		updates["purchase_price"] = *req.PurchasePrice
	}
	if req.SellingPrice != nil {
		updates["selling_price"] = *req.SellingPrice
	}
	if req.MinStock != nil {
		updates["min_stock"] = *req.MinStock
	}

	if len(updates) == 0 {
		return existing, nil
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("update sku: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*SKU, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListSKUsRequest) ([]SKU, int, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) ListBelowMinStock(ctx context.Context) ([]SKU, error) {
	return s.repo.ListBelowMinStock(ctx)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
