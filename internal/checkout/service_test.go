package checkout

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lucasortega/cartwheel-backend/internal/cart"
	"github.com/lucasortega/cartwheel-backend/internal/orders"
	pkgdb "github.com/lucasortega/cartwheel-backend/pkg/db"
	"github.com/lucasortega/cartwheel-backend/pkg/db/models"
	"github.com/lucasortega/cartwheel-backend/pkg/enums"
	pkgerrors "github.com/lucasortega/cartwheel-backend/pkg/errors"
)

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
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
		&models.Order{},
		&models.OrderItem{},
	))
	return conn
}

func newCheckoutService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		DB:     pkgdb.FromGorm(conn),
		Cart:   cart.NewRepository(conn),
		Orders: orders.NewRepository(conn),
	})
	require.NoError(t, err)
	return svc
}

func seedCheckoutUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedCheckoutProduct(t *testing.T, db *gorm.DB, name, priceStr string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:          name,
		Price:         decimal.RequireFromString(priceStr),
		StockQuantity: stock,
		IsActive:      true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func addToCart(t *testing.T, db *gorm.DB, userID, productID uint, qty int) {
	t.Helper()
	require.NoError(t, db.Create(&models.CartItem{UserID: userID, ProductID: productID, Quantity: qty}).Error)
}

func TestExecuteCommitsOrderAndClearsCart(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db)
	ctx := context.Background()

	user := seedCheckoutUser(t, db, "ana")
	mug := seedCheckoutProduct(t, db, "Mug", "10.00", 5)
	sale := decimal.RequireFromString("7.50")
	bowl := seedCheckoutProduct(t, db, "Bowl", "9.00", 3)
	require.NoError(t, db.Model(bowl).UpdateColumn("discount_price", sale).Error)

	addToCart(t, db, user.ID, mug.ID, 2)
	addToCart(t, db, user.ID, bowl.ID, 1)

	dto, err := svc.Execute(ctx, user.ID, CheckoutInput{ShippingAddress: "123 Main St"})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusPending, dto.Status)
	assert.Equal(t, enums.PaymentStatusPending, dto.PaymentStatus)
	assert.True(t, dto.TotalAmount.Equal(decimal.RequireFromString("27.50")))
	require.Len(t, dto.Items, 2)

	byName := map[string]decimal.Decimal{}
	for _, item := range dto.Items {
		byName[item.ProductName] = item.UnitPrice
	}
	assert.True(t, byName["Mug"].Equal(decimal.RequireFromString("10.00")))
	assert.True(t, byName["Bowl"].Equal(sale))

	var mugAfter, bowlAfter models.Product
	require.NoError(t, db.First(&mugAfter, "id = ?", mug.ID).Error)
	require.NoError(t, db.First(&bowlAfter, "id = ?", bowl.ID).Error)
	assert.Equal(t, 3, mugAfter.StockQuantity)
	assert.Equal(t, 2, bowlAfter.StockQuantity)

	var cartCount int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", user.ID).Count(&cartCount).Error)
	assert.Zero(t, cartCount)
}

func TestExecuteEmptyCart(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db)

	user := seedCheckoutUser(t, db, "ana")
	_, err := svc.Execute(context.Background(), user.ID, CheckoutInput{ShippingAddress: "123 Main St"})
	assert.Equal(t, pkgerrors.CodeEmptyCart, pkgerrors.CodeOf(err))
}

func TestExecuteValidation(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db)

	user := seedCheckoutUser(t, db, "ana")
	_, err := svc.Execute(context.Background(), user.ID, CheckoutInput{ShippingAddress: "   "})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestExecuteRollsBackOnShortfall(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db)
	ctx := context.Background()

	user := seedCheckoutUser(t, db, "ana")
	plenty := seedCheckoutProduct(t, db, "Mug", "10.00", 10)
	scarce := seedCheckoutProduct(t, db, "Bowl", "9.00", 1)

	addToCart(t, db, user.ID, plenty.ID, 2)
	addToCart(t, db, user.ID, scarce.ID, 5)

	_, err := svc.Execute(ctx, user.ID, CheckoutInput{ShippingAddress: "123 Main St"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.CodeOf(err))

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	shortfalls, ok := typed.Details().([]StockShortfall)
	require.True(t, ok)
	require.Len(t, shortfalls, 1)
	assert.Equal(t, scarce.ID, shortfalls[0].ProductID)
	assert.Equal(t, 5, shortfalls[0].Requested)
	assert.Equal(t, 1, shortfalls[0].Available)

	// the whole transaction rolled back, including the successful reservation
	var plentyAfter, scarceAfter models.Product
	require.NoError(t, db.First(&plentyAfter, "id = ?", plenty.ID).Error)
	require.NoError(t, db.First(&scarceAfter, "id = ?", scarce.ID).Error)
	assert.Equal(t, 10, plentyAfter.StockQuantity)
	assert.Equal(t, 1, scarceAfter.StockQuantity)

	var cartCount int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", user.ID).Count(&cartCount).Error)
	assert.Equal(t, int64(2), cartCount)

	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)
}

func TestExecuteLastUnit(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db)
	ctx := context.Background()

	ana := seedCheckoutUser(t, db, "ana")
	bob := seedCheckoutUser(t, db, "bob")
	product := seedCheckoutProduct(t, db, "Mug", "10.00", 1)

	addToCart(t, db, ana.ID, product.ID, 1)
	addToCart(t, db, bob.ID, product.ID, 1)

	_, firstErr := svc.Execute(ctx, ana.ID, CheckoutInput{ShippingAddress: "123 Main St"})
	_, secondErr := svc.Execute(ctx, bob.ID, CheckoutInput{ShippingAddress: "456 Oak Ave"})

	require.NoError(t, firstErr)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.CodeOf(secondErr))

	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(1), orderCount)
}
