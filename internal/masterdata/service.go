package masterdata

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChangeNotifier is told whenever master data changes so derived caches can
// be dropped.
type ChangeNotifier interface {
	Bump(ctx context.Context) error
}

// Service validates and applies master-data edits. The stock ledger only
// ever reads what this service writes.
type Service struct {
	repo     Repository
	notifier ChangeNotifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs Service. notifier may be nil.
func NewService(repo Repository, notifier ChangeNotifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, notifier: notifier, logger: logger, now: time.Now}
}

func (s *Service) ListProducts(ctx context.Context, filters ListFilters) ([]Product, error) {
	return s.repo.ListProducts(ctx, filters)
}

func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	if err := required("product id", id); err != nil {
		return Product{}, err
	}
	return s.repo.GetProduct(ctx, id)
}

// CreateProduct registers a product. CentralStock is accepted as the opening
// balance; afterwards only the ledger changes it.
func (s *Service) CreateProduct(ctx context.Context, product Product) (Product, error) {
	product.Name = strings.TrimSpace(product.Name)
	product.SKU = strings.TrimSpace(product.SKU)
	if err := validateProduct(product); err != nil {
		return Product{}, err
	}
	if err := s.ensureSKUFree(ctx, product.SKU, ""); err != nil {
		return Product{}, err
	}
	if err := s.ensureClassification(ctx, product); err != nil {
		return Product{}, err
	}
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	now := s.now().UTC()
	product.CreatedAt, product.UpdatedAt = now, now
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return Product{}, err
	}
	s.changed(ctx, "product created", product.ID)
	return product, nil
}

// UpdateProduct edits descriptive fields. The stored central stock is kept.
func (s *Service) UpdateProduct(ctx context.Context, id string, product Product) (Product, error) {
	current, err := s.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	product.ID = current.ID
	product.Name = strings.TrimSpace(product.Name)
	product.SKU = strings.TrimSpace(product.SKU)
	product.CentralStock = current.CentralStock
	if err := validateProduct(product); err != nil {
		return Product{}, err
	}
	if err := s.ensureSKUFree(ctx, product.SKU, current.ID); err != nil {
		return Product{}, err
	}
	if err := s.ensureClassification(ctx, product); err != nil {
		return Product{}, err
	}
	product.CreatedAt = current.CreatedAt
	product.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return Product{}, err
	}
	s.changed(ctx, "product updated", product.ID)
	return product, nil
}

// DeleteProduct removes the product together with its outlet stock,
// favorites and usage counters. History records keep their snapshots.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if _, err := s.GetProduct(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, "product deleted", id)
	return nil
}

func (s *Service) ListOutlets(ctx context.Context) ([]Outlet, error) {
	return s.repo.ListOutlets(ctx)
}

func (s *Service) GetOutlet(ctx context.Context, id string) (Outlet, error) {
	if err := required("outlet id", id); err != nil {
		return Outlet{}, err
	}
	return s.repo.GetOutlet(ctx, id)
}

func (s *Service) CreateOutlet(ctx context.Context, outlet Outlet) (Outlet, error) {
	outlet.Code = strings.TrimSpace(outlet.Code)
	outlet.Name = strings.TrimSpace(outlet.Name)
	if err := validateOutlet(outlet); err != nil {
		return Outlet{}, err
	}
	if err := s.ensureOutletCodeFree(ctx, outlet.Code, ""); err != nil {
		return Outlet{}, err
	}
	if outlet.ID == "" {
		outlet.ID = uuid.NewString()
	}
	now := s.now().UTC()
	outlet.CreatedAt, outlet.UpdatedAt = now, now
	if err := s.repo.CreateOutlet(ctx, outlet); err != nil {
		return Outlet{}, err
	}
	s.changed(ctx, "outlet created", outlet.ID)
	return outlet, nil
}

// UpdateOutlet renames or recodes an outlet. Transfer records keep the name
// captured at transfer time.
func (s *Service) UpdateOutlet(ctx context.Context, id string, outlet Outlet) (Outlet, error) {
	current, err := s.GetOutlet(ctx, id)
	if err != nil {
		return Outlet{}, err
	}
	outlet.ID = current.ID
	outlet.Code = strings.TrimSpace(outlet.Code)
	outlet.Name = strings.TrimSpace(outlet.Name)
	if err := validateOutlet(outlet); err != nil {
		return Outlet{}, err
	}
	if err := s.ensureOutletCodeFree(ctx, outlet.Code, current.ID); err != nil {
		return Outlet{}, err
	}
	outlet.CreatedAt = current.CreatedAt
	outlet.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateOutlet(ctx, outlet); err != nil {
		return Outlet{}, err
	}
	s.changed(ctx, "outlet updated", outlet.ID)
	return outlet, nil
}

// DeleteOutlet fails while the outlet holds stock or appears in history.
func (s *Service) DeleteOutlet(ctx context.Context, id string) error {
	if _, err := s.GetOutlet(ctx, id); err != nil {
		return err
	}
	refs, err := s.repo.OutletReferences(ctx, id)
	if err != nil {
		return err
	}
	if refs.InUse() {
		return fmt.Errorf("outlet %s holds %d units and %d history records: %w", id, refs.StockUnits, refs.History, ErrInUse)
	}
	if err := s.repo.DeleteOutlet(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, "outlet deleted", id)
	return nil
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, category Category) (Category, error) {
	category.Name = strings.TrimSpace(category.Name)
	if err := required("category name", category.Name); err != nil {
		return Category{}, err
	}
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return Category{}, err
	}
	return category, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.repo.GetCategory(ctx, id); err != nil {
		return err
	}
	refs, err := s.repo.CategoryReferences(ctx, id)
	if err != nil {
		return err
	}
	if refs.InUse() {
		return fmt.Errorf("category %s used by %d products: %w", id, refs.Products, ErrInUse)
	}
	return s.repo.DeleteCategory(ctx, id)
}

func (s *Service) ListUnits(ctx context.Context) ([]Unit, error) {
	return s.repo.ListUnits(ctx)
}

func (s *Service) CreateUnit(ctx context.Context, unit Unit) (Unit, error) {
	unit.Name = strings.TrimSpace(unit.Name)
	if err := required("unit name", unit.Name); err != nil {
		return Unit{}, err
	}
	if unit.ID == "" {
		unit.ID = uuid.NewString()
	}
	if err := s.repo.CreateUnit(ctx, unit); err != nil {
		return Unit{}, err
	}
	return unit, nil
}

func (s *Service) DeleteUnit(ctx context.Context, id string) error {
	if _, err := s.repo.GetUnit(ctx, id); err != nil {
		return err
	}
	refs, err := s.repo.UnitReferences(ctx, id)
	if err != nil {
		return err
	}
	if refs.InUse() {
		return fmt.Errorf("unit %s used by %d products: %w", id, refs.Products, ErrInUse)
	}
	return s.repo.DeleteUnit(ctx, id)
}

func (s *Service) ensureSKUFree(ctx context.Context, sku, selfID string) error {
	existing, found, err := s.repo.FindProductBySKU(ctx, sku)
	if err != nil {
		return err
	}
	if found && existing.ID != selfID {
		return fmt.Errorf("%q: %w", normalizeSKU(sku), ErrDuplicateSKU)
	}
	return nil
}

func (s *Service) ensureOutletCodeFree(ctx context.Context, code, selfID string) error {
	existing, found, err := s.repo.FindOutletByCode(ctx, code)
	if err != nil {
		return err
	}
	if found && existing.ID != selfID {
		return fmt.Errorf("%q: %w", code, ErrDuplicateOutletCode)
	}
	return nil
}

func (s *Service) ensureClassification(ctx context.Context, product Product) error {
	if product.CategoryID != "" {
		if _, err := s.repo.GetCategory(ctx, product.CategoryID); err != nil {
			return err
		}
	}
	if product.UnitID != "" {
		if _, err := s.repo.GetUnit(ctx, product.UnitID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) changed(ctx context.Context, what, id string) {
	s.logger.Info(what, slog.String("id", id))
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Bump(ctx); err != nil {
		s.logger.Warn("masterdata cache bump", slog.Any("error", err))
	}
}
