package categories

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lucasortega/cartwheel-backend/pkg/db/models"
	pkgerrors "github.com/lucasortega/cartwheel-backend/pkg/errors"
)

func setupCategoriesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Category{}, &models.Product{}))
	return conn
}

func newCategoriesService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: NewRepository(db)})
	require.NoError(t, err)
	return svc
}

func TestCreateAndGetCategory(t *testing.T) {
	db := setupCategoriesTestDB(t)
	svc := newCategoriesService(t, db)
	ctx := context.Background()

	root, err := svc.Create(ctx, CreateCategoryRequest{Name: "Kitchen"})
	require.NoError(t, err)
	require.NotZero(t, root.ID)

	child, err := svc.Create(ctx, CreateCategoryRequest{Name: "Mugs", ParentID: &root.ID})
	require.NoError(t, err)

	loaded, err := svc.Get(ctx, child.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.ParentID)
	assert.Equal(t, root.ID, *loaded.ParentID)
}

func TestCreateCategoryValidation(t *testing.T) {
	db := setupCategoriesTestDB(t)
	svc := newCategoriesService(t, db)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateCategoryRequest{Name: "   "})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	missing := uint(999)
	_, err = svc.Create(ctx, CreateCategoryRequest{Name: "Orphans", ParentID: &missing})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestUpdateCategoryRejectsCycles(t *testing.T) {
	db := setupCategoriesTestDB(t)
	svc := newCategoriesService(t, db)
	ctx := context.Background()

	root, err := svc.Create(ctx, CreateCategoryRequest{Name: "Kitchen"})
	require.NoError(t, err)
	mid, err := svc.Create(ctx, CreateCategoryRequest{Name: "Drinkware", ParentID: &root.ID})
	require.NoError(t, err)
	leaf, err := svc.Create(ctx, CreateCategoryRequest{Name: "Mugs", ParentID: &mid.ID})
	require.NoError(t, err)

	_, err = svc.Update(ctx, root.ID, UpdateCategoryRequest{Name: "Kitchen", ParentID: &root.ID})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.Update(ctx, root.ID, UpdateCategoryRequest{Name: "Kitchen", ParentID: &leaf.ID})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	// moving a leaf elsewhere is fine
	updated, err := svc.Update(ctx, leaf.ID, UpdateCategoryRequest{Name: "Mugs", ParentID: &root.ID})
	require.NoError(t, err)
	require.NotNil(t, updated.ParentID)
	assert.Equal(t, root.ID, *updated.ParentID)
}

func TestListChildrenAndRoots(t *testing.T) {
	db := setupCategoriesTestDB(t)
	svc := newCategoriesService(t, db)
	ctx := context.Background()

	root, err := svc.Create(ctx, CreateCategoryRequest{Name: "Kitchen"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateCategoryRequest{Name: "Mugs", ParentID: &root.ID})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateCategoryRequest{Name: "Bowls", ParentID: &root.ID})
	require.NoError(t, err)

	children, err := svc.ListChildren(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "Bowls", children[0].Name)
	assert.Equal(t, "Mugs", children[1].Name)

	roots, err := svc.ListRoots(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, root.ID, roots[0].ID)

	_, err = svc.ListChildren(ctx, 999)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestDeleteCategory(t *testing.T) {
	db := setupCategoriesTestDB(t)
	svc := newCategoriesService(t, db)
	ctx := context.Background()

	root, err := svc.Create(ctx, CreateCategoryRequest{Name: "Kitchen"})
	require.NoError(t, err)
	child, err := svc.Create(ctx, CreateCategoryRequest{Name: "Mugs", ParentID: &root.ID})
	require.NoError(t, err)

	err = svc.Delete(ctx, root.ID)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	product := &models.Product{
		Name:       "Red Mug",
		CategoryID: &child.ID,
		Price:      decimal.NewFromFloat(12.50),
		IsActive:   true,
	}
	require.NoError(t, db.Create(product).Error)

	require.NoError(t, svc.Delete(ctx, child.ID))

	var survivor models.Product
	require.NoError(t, db.First(&survivor, "id = ?", product.ID).Error)
	assert.Nil(t, survivor.CategoryID)

	_, err = svc.Get(ctx, child.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	require.NoError(t, svc.Delete(ctx, root.ID))
}
