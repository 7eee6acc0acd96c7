package categories

import (
	"context"
	"errors"
	"strings"

	"github.com/lucasortega/cartwheel-backend/pkg/db/models"
	pkgerrors "github.com/lucasortega/cartwheel-backend/pkg/errors"
	"github.com/lucasortega/cartwheel-backend/pkg/validate"
	"gorm.io/gorm"
)

// CreateCategoryRequest is the payload for adding a catalog node.
type CreateCategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=128"`
	Description *string `json:"description,omitempty"`
	ImageURL    *string `json:"image_url,omitempty" validate:"omitempty,url"`
	ParentID    *uint   `json:"parent_id,omitempty"`
}

// UpdateCategoryRequest carries the mutable category fields. ParentID moves
// the node within the tree; reparenting onto a descendant is rejected.
type UpdateCategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=128"`
	Description *string `json:"description,omitempty"`
	ImageURL    *string `json:"image_url,omitempty" validate:"omitempty,url"`
	ParentID    *uint   `json:"parent_id,omitempty"`
}

type categoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	FindByID(ctx context.Context, id uint) (*models.Category, error)
	Update(ctx context.Context, category *models.Category) error
	ListChildren(ctx context.Context, parentID uint) ([]models.Category, error)
	ListRoots(ctx context.Context) ([]models.Category, error)
	CountChildren(ctx context.Context, id uint) (int64, error)
	Delete(ctx context.Context, id uint) error
}

// Service exposes catalog tree business rules.
type Service interface {
	Create(ctx context.Context, req CreateCategoryRequest) (*models.Category, error)
	Update(ctx context.Context, id uint, req UpdateCategoryRequest) (*models.Category, error)
	Get(ctx context.Context, id uint) (*models.Category, error)
	ListChildren(ctx context.Context, parentID uint) ([]models.Category, error)
	ListRoots(ctx context.Context) ([]models.Category, error)
	Delete(ctx context.Context, id uint) error
}

// ServiceParams groups dependencies for the categories service.
type ServiceParams struct {
	Repo categoryRepository
}

type service struct {
	repo categoryRepository
}

// NewService builds a categories service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "categories repo is required")
	}
	return &service{repo: params.Repo}, nil
}

// Create validates the payload and inserts the category under its parent.
func (s *service) Create(ctx context.Context, req CreateCategoryRequest) (*models.Category, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if req.ParentID != nil {
		if _, err := s.Get(ctx, *req.ParentID); err != nil {
			return nil, err
		}
	}

	category := &models.Category{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		ParentID:    req.ParentID,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create category")
	}
	return category, nil
}

// Update mutates a category and optionally moves it within the tree.
func (s *service) Update(ctx context.Context, id uint, req UpdateCategoryRequest) (*models.Category, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	category, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		if *req.ParentID == id {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category cannot be its own parent")
		}
		if _, err := s.Get(ctx, *req.ParentID); err != nil {
			return nil, err
		}
		if err := s.ensureNotDescendant(ctx, id, *req.ParentID); err != nil {
			return nil, err
		}
	}

	category.Name = req.Name
	category.Description = req.Description
	category.ImageURL = req.ImageURL
	category.ParentID = req.ParentID
	if err := s.repo.Update(ctx, category); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update category")
	}
	return category, nil
}

// Get loads a single category.
func (s *service) Get(ctx context.Context, id uint) (*models.Category, error) {
	if id == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load category")
	}
	return category, nil
}

// ListChildren returns the direct subcategories of an existing category.
func (s *service) ListChildren(ctx context.Context, parentID uint) ([]models.Category, error) {
	if _, err := s.Get(ctx, parentID); err != nil {
		return nil, err
	}
	children, err := s.repo.ListChildren(ctx, parentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list subcategories")
	}
	return children, nil
}

// ListRoots returns the top-level categories.
func (s *service) ListRoots(ctx context.Context) ([]models.Category, error) {
	roots, err := s.repo.ListRoots(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list root categories")
	}
	return roots, nil
}

// Delete removes a category. Categories with subcategories are rejected;
// products in the category are detached, not deleted.
func (s *service) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountChildren(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count subcategories")
	}
	if count > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "category has subcategories")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete category")
	}
	return nil
}

// ensureNotDescendant walks up from the candidate parent; hitting the moved
// category means the move would create a cycle.
func (s *service) ensureNotDescendant(ctx context.Context, id, parentID uint) error {
	current := parentID
	for {
		node, err := s.repo.FindByID(ctx, current)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "walk category ancestors")
		}
		if node.ParentID == nil {
			return nil
		}
		if *node.ParentID == id {
			return pkgerrors.New(pkgerrors.CodeValidation, "category cannot be moved under its own descendant")
		}
		current = *node.ParentID
	}
}
