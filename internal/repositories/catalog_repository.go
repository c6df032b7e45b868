package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"restaurant_order_backend/internal/models"

	"github.com/jmoiron/sqlx"
)

// CatalogRepository is the read-only view of the catalog used while creating orders.
// All lookups are keyed by slug, except the menu item which is resolved from its product.
type CatalogRepository interface {
	GetBranchBySlug(ctx context.Context, slug string) (*models.Branch, error)
	GetTableBySlugInBranch(ctx context.Context, slug string, branchID int64) (*models.Table, error)
	GetUserBySlug(ctx context.Context, slug string) (*models.User, error)
	GetVariantBySlug(ctx context.Context, slug string) (*models.Variant, error)
	GetMenuItemForProduct(ctx context.Context, branchID, productID int64, day string) (*models.MenuItem, error)
}

type catalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository creates a new instance of CatalogRepository.
func NewCatalogRepository(db *sqlx.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) get(ctx context.Context, dest interface{}, what string, query string, args ...interface{}) error {
	err := r.db.GetContext(ctx, dest, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: getting %s: %v", ErrDatabaseError, what, err)
	}
	return nil
}

func (r *catalogRepository) GetBranchBySlug(ctx context.Context, slug string) (*models.Branch, error) {
	branch := &models.Branch{}
	query := `SELECT id, slug, name, address, created_at, updated_at FROM branches WHERE slug = $1`
	if err := r.get(ctx, branch, "branch "+slug, query, slug); err != nil {
		return nil, err
	}
	return branch, nil
}

// GetTableBySlugInBranch only matches tables of the given branch; a table of another branch is ErrNotFound.
func (r *catalogRepository) GetTableBySlugInBranch(ctx context.Context, slug string, branchID int64) (*models.Table, error) {
	table := &models.Table{}
	query := `SELECT id, slug, name, status, branch_id, created_at, updated_at
	          FROM tables
	          WHERE slug = $1 AND branch_id = $2`
	if err := r.get(ctx, table, "table "+slug, query, slug, branchID); err != nil {
		return nil, err
	}
	return table, nil
}

func (r *catalogRepository) GetUserBySlug(ctx context.Context, slug string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, slug, name, phone, branch_id, created_at, updated_at FROM users WHERE slug = $1`
	if err := r.get(ctx, user, "user "+slug, query, slug); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *catalogRepository) GetVariantBySlug(ctx context.Context, slug string) (*models.Variant, error) {
	variant := &models.Variant{}
	query := `SELECT id, slug, price, product_id, size_id, created_at, updated_at FROM variants WHERE slug = $1`
	if err := r.get(ctx, variant, "variant "+slug, query, slug); err != nil {
		return nil, err
	}
	return variant, nil
}

func (r *catalogRepository) GetMenuItemForProduct(ctx context.Context, branchID, productID int64, day string) (*models.MenuItem, error) {
	item := &models.MenuItem{}
	query := `SELECT mi.id, mi.slug, mi.menu_id, mi.product_id, mi.default_stock, mi.current_stock,
	                 mi.created_at, mi.updated_at
	          FROM menu_items mi
	          JOIN menus m ON mi.menu_id = m.id
	          WHERE m.branch_id = $1 AND m.day = $2 AND mi.product_id = $3`
	what := fmt.Sprintf("menu item for product %d in branch %d on %s", productID, branchID, day)
	if err := r.get(ctx, item, what, query, branchID, day, productID); err != nil {
		return nil, err
	}
	return item, nil
}
