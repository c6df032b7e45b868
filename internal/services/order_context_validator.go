package services

import (
	"context"
	"errors"
	"fmt"

	"restaurant_order_backend/internal/models"
	"restaurant_order_backend/internal/repositories"
	"restaurant_order_backend/pkg/utils"
)

// OrderContextRequest names the references of a new order.
type OrderContextRequest struct {
	Type         models.OrderType
	BranchSlug   string
	TableSlug    string // Only read for at-table orders
	OwnerSlug    string
	ApproverSlug string // Optional
}

// OrderContext holds the resolved references of a new order. Table is nil for take-out orders.
type OrderContext struct {
	Branch   *models.Branch
	Table    *models.Table
	Owner    *models.User
	Approver *models.User
}

// OrderContextValidator resolves the branch, table and users of a new order. It never writes.
type OrderContextValidator interface {
	ValidateContext(ctx context.Context, req OrderContextRequest) (*OrderContext, error)
}

type orderContextValidator struct {
	catalog repositories.CatalogRepository
}

// NewOrderContextValidator creates a new instance of OrderContextValidator.
func NewOrderContextValidator(catalog repositories.CatalogRepository) OrderContextValidator {
	return &orderContextValidator{catalog: catalog}
}

func (v *orderContextValidator) ValidateContext(ctx context.Context, req OrderContextRequest) (*OrderContext, error) {
	branch, err := v.catalog.GetBranchBySlug(ctx, req.BranchSlug)
	if err != nil {
		return nil, lookupError(err, ErrBranchNotFound, "branch", req.BranchSlug)
	}
	result := &OrderContext{Branch: branch}

	if req.Type == models.OrderTypeAtTable {
		if utils.IsEmpty(req.TableSlug) {
			return nil, fmt.Errorf("%w: a table is required for %s orders", ErrTableNotFound, models.OrderTypeAtTable)
		}
		// Scoped to the branch: a table of another branch is reported as not found.
		table, err := v.catalog.GetTableBySlugInBranch(ctx, req.TableSlug, branch.ID)
		if err != nil {
			return nil, lookupError(err, ErrTableNotFound, "table", req.TableSlug+" in branch "+branch.Slug)
		}
		result.Table = table
	}

	owner, err := v.catalog.GetUserBySlug(ctx, req.OwnerSlug)
	if err != nil {
		return nil, lookupError(err, ErrOwnerNotFound, "owner", req.OwnerSlug)
	}
	result.Owner = owner

	if !utils.IsEmpty(req.ApproverSlug) {
		approver, err := v.catalog.GetUserBySlug(ctx, req.ApproverSlug)
		if err != nil {
			return nil, lookupError(err, ErrApproverNotFound, "approver", req.ApproverSlug)
		}
		result.Approver = approver
	}
	return result, nil
}

// lookupError turns a catalog miss into the given kind; any other failure aborts the attempt.
func lookupError(err, notFound error, what, slug string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %s", notFound, slug)
	}
	return fmt.Errorf("%w: looking up %s %s: %v", ErrTransactionAborted, what, slug, err)
}
