package products

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lucasortega/cartwheel-backend/internal/categories"
	"github.com/lucasortega/cartwheel-backend/pkg/db/models"
	pkgerrors "github.com/lucasortega/cartwheel-backend/pkg/errors"
	pkgredis "github.com/lucasortega/cartwheel-backend/pkg/redis"
)

type fakeCache struct {
	data map[string]string
	gets int
	hits int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]string{}}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	f.gets++
	if value, ok := f.data[key]; ok {
		f.hits++
		return value, nil
	}
	return "", pkgredis.Nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeCache) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeCache) CacheKey(parts ...string) string {
	return "cw:cache:" + strings.Join(parts, ":")
}

func setupProductsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.ProductImage{},
		&models.CartItem{},
		&models.Review{},
		&models.Order{},
		&models.OrderItem{},
	))
	return conn
}

func newProductsService(t *testing.T, db *gorm.DB, cache *fakeCache) Service {
	t.Helper()
	params := ServiceParams{
		Repo:       NewRepository(db),
		Categories: categories.NewRepository(db),
	}
	if cache != nil {
		params.Cache = cache
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc
}

func price(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func pricePtr(value string) *decimal.Decimal {
	d := decimal.RequireFromString(value)
	return &d
}

func TestCreateProductPricingRules(t *testing.T) {
	db := setupProductsTestDB(t)
	svc := newProductsService(t, db, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateProductRequest{Name: "Mug", Price: price("-1.00")})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.Create(ctx, CreateProductRequest{
		Name:          "Mug",
		Price:         price("10.00"),
		DiscountPrice: pricePtr("12.00"),
	})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	dto, err := svc.Create(ctx, CreateProductRequest{
		Name:          "Mug",
		Price:         price("10.00"),
		DiscountPrice: pricePtr("8.00"),
		StockQuantity: 5,
	})
	require.NoError(t, err)
	assert.True(t, dto.EffectivePrice.Equal(price("8.00")))
	assert.True(t, dto.IsActive)
}

func TestCreateProductUnknownCategory(t *testing.T) {
	db := setupProductsTestDB(t)
	svc := newProductsService(t, db, nil)

	missing := uint(404)
	_, err := svc.Create(context.Background(), CreateProductRequest{
		Name:       "Mug",
		Price:      price("10.00"),
		CategoryID: &missing,
	})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestGetServesFromCacheUntilInvalidated(t *testing.T) {
	db := setupProductsTestDB(t)
	cache := newFakeCache()
	svc := newProductsService(t, db, cache)
	ctx := context.Background()

	dto, err := svc.Create(ctx, CreateProductRequest{Name: "Mug", Price: price("10.00"), StockQuantity: 5})
	require.NoError(t, err)

	first, err := svc.Get(ctx, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, cache.hits)

	second, err := svc.Get(ctx, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first.Name, second.Name)

	_, err = svc.Update(ctx, dto.ID, UpdateProductRequest{
		Name:     "Blue Mug",
		Price:    price("11.00"),
		IsActive: true,
	})
	require.NoError(t, err)

	fresh, err := svc.Get(ctx, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, "Blue Mug", fresh.Name)
	assert.True(t, fresh.Price.Equal(price("11.00")))
}

func TestAdjustStockGuard(t *testing.T) {
	db := setupProductsTestDB(t)
	svc := newProductsService(t, db, nil)
	ctx := context.Background()

	dto, err := svc.Create(ctx, CreateProductRequest{Name: "Mug", Price: price("10.00"), StockQuantity: 1})
	require.NoError(t, err)

	updated, err := svc.AdjustStock(ctx, dto.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.StockQuantity)

	_, err = svc.AdjustStock(ctx, dto.ID, -1)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	restocked, err := svc.AdjustStock(ctx, dto.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, restocked.StockQuantity)
}

func TestImageLifecycle(t *testing.T) {
	db := setupProductsTestDB(t)
	svc := newProductsService(t, db, nil)
	ctx := context.Background()

	dto, err := svc.Create(ctx, CreateProductRequest{Name: "Mug", Price: price("10.00")})
	require.NoError(t, err)

	withFirst, err := svc.AddImage(ctx, dto.ID, AddImageRequest{URL: "https://img.example.com/a.jpg", IsPrimary: true})
	require.NoError(t, err)
	require.Len(t, withFirst.Images, 1)
	assert.True(t, withFirst.Images[0].IsPrimary)

	withSecond, err := svc.AddImage(ctx, dto.ID, AddImageRequest{URL: "https://img.example.com/b.jpg", IsPrimary: true})
	require.NoError(t, err)
	require.Len(t, withSecond.Images, 2)

	primaries := 0
	var demotedID uint
	for _, image := range withSecond.Images {
		if image.IsPrimary {
			primaries++
		} else {
			demotedID = image.ID
		}
	}
	assert.Equal(t, 1, primaries)

	promoted, err := svc.SetPrimaryImage(ctx, dto.ID, demotedID)
	require.NoError(t, err)
	for _, image := range promoted.Images {
		assert.Equal(t, image.ID == demotedID, image.IsPrimary)
	}

	require.NoError(t, svc.RemoveImage(ctx, dto.ID, demotedID))
	final, err := svc.Get(ctx, dto.ID)
	require.NoError(t, err)
	require.Len(t, final.Images, 1)

	_, err = svc.SetPrimaryImage(ctx, dto.ID, demotedID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestListPaginatesWithCursor(t *testing.T) {
	db := setupProductsTestDB(t)
	svc := newProductsService(t, db, nil)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		product := &models.Product{
			Name:          fmt.Sprintf("Mug %d", i),
			Price:         price("10.00"),
			StockQuantity: 5,
			IsActive:      i%2 == 0,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(product).Error)
	}

	page, err := svc.List(ctx, ListParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, "Mug 4", page.Items[0].Name)
	require.NotEmpty(t, page.NextCursor)

	next, err := svc.List(ctx, ListParams{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 2)
	assert.Equal(t, "Mug 2", next.Items[0].Name)

	active, err := svc.List(ctx, ListParams{ActiveOnly: true, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, active.Items, 3)
}

func TestDeleteProductDetachesHistory(t *testing.T) {
	db := setupProductsTestDB(t)
	svc := newProductsService(t, db, nil)
	ctx := context.Background()

	dto, err := svc.Create(ctx, CreateProductRequest{Name: "Mug", Price: price("10.00"), StockQuantity: 5})
	require.NoError(t, err)

	user := &models.User{Username: "ana", Email: "ana@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&models.CartItem{UserID: user.ID, ProductID: dto.ID, Quantity: 1}).Error)

	order := &models.Order{
		Reference:       uuid.New(),
		UserID:          &user.ID,
		TotalAmount:     price("10.00"),
		ShippingAddress: "123 Main St",
	}
	require.NoError(t, db.Create(order).Error)
	item := &models.OrderItem{
		OrderID:     order.ID,
		ProductID:   &dto.ID,
		ProductName: dto.Name,
		Quantity:    1,
		UnitPrice:   price("10.00"),
	}
	require.NoError(t, db.Create(item).Error)

	require.NoError(t, svc.Delete(ctx, dto.ID))

	var cartCount int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("product_id = ?", dto.ID).Count(&cartCount).Error)
	assert.Zero(t, cartCount)

	var survivor models.OrderItem
	require.NoError(t, db.First(&survivor, "id = ?", item.ID).Error)
	assert.Nil(t, survivor.ProductID)
	assert.Equal(t, "Mug", survivor.ProductName)

	_, err = svc.Get(ctx, dto.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}
