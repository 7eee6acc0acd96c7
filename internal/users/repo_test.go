package users

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgdb "github.com/lucasortega/cartwheel-backend/pkg/db"
	"github.com/lucasortega/cartwheel-backend/pkg/db/models"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.CartItem{},
		&models.Review{},
		&models.Order{},
		&models.OrderItem{},
	))
	return conn
}

func mustCreateUser(t *testing.T, db *gorm.DB, username, email string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: email, PasswordHash: "hash"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func mustCreateProduct(t *testing.T, db *gorm.DB, name string) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:          name,
		Price:         decimal.NewFromFloat(9.99),
		StockQuantity: 10,
		IsActive:      true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestRepositoryCreateEnforcesUniqueness(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, CreateUserDTO{Username: "ana", Email: "ana@example.com", PasswordHash: "x"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, CreateUserDTO{Username: "ana", Email: "other@example.com", PasswordHash: "x"})
	require.Error(t, err)
	assert.True(t, pkgdb.IsUniqueViolation(err, ""))

	_, err = repo.Create(ctx, CreateUserDTO{Username: "other", Email: "ana@example.com", PasswordHash: "x"})
	require.Error(t, err)
	assert.True(t, pkgdb.IsUniqueViolation(err, ""))
}

func TestRepositoryUpdateLastLogin(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := mustCreateUser(t, db, "ana", "ana@example.com")
	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, at))

	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastLoginAt)
	assert.WithinDuration(t, at, *reloaded.LastLoginAt, time.Second)
}

func TestRepositoryDeleteKeepsOrdersDropsCartAndReviews(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := mustCreateUser(t, db, "ana", "ana@example.com")
	product := mustCreateProduct(t, db, "Mug")

	require.NoError(t, db.Create(&models.CartItem{UserID: user.ID, ProductID: product.ID, Quantity: 2}).Error)
	require.NoError(t, db.Create(&models.Review{UserID: user.ID, ProductID: product.ID, Rating: 5}).Error)
	order := &models.Order{
		Reference:       uuid.New(),
		UserID:          &user.ID,
		TotalAmount:     decimal.NewFromFloat(19.98),
		ShippingAddress: "123 Main St",
	}
	require.NoError(t, db.Create(order).Error)

	require.NoError(t, repo.Delete(ctx, user.ID))

	var cartCount, reviewCount int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", user.ID).Count(&cartCount).Error)
	require.NoError(t, db.Model(&models.Review{}).Where("user_id = ?", user.ID).Count(&reviewCount).Error)
	assert.Zero(t, cartCount)
	assert.Zero(t, reviewCount)

	var survivor models.Order
	require.NoError(t, db.First(&survivor, "id = ?", order.ID).Error)
	assert.Nil(t, survivor.UserID)
	assert.Equal(t, order.Reference, survivor.Reference)
}

func TestRepositoryDeleteIsAtomic(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := mustCreateUser(t, db, "ana", "ana@example.com")
	product := mustCreateProduct(t, db, "Mug")
	require.NoError(t, db.Create(&models.CartItem{UserID: user.ID, ProductID: product.ID, Quantity: 2}).Error)
	require.NoError(t, db.Create(&models.Review{UserID: user.ID, ProductID: product.ID, Rating: 5}).Error)

	// make the order-detach step fail mid-cascade
	require.NoError(t, db.Migrator().DropTable(&models.Order{}))

	require.Error(t, repo.Delete(ctx, user.ID))

	var cartCount, reviewCount, userCount int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", user.ID).Count(&cartCount).Error)
	require.NoError(t, db.Model(&models.Review{}).Where("user_id = ?", user.ID).Count(&reviewCount).Error)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Count(&userCount).Error)
	assert.Equal(t, int64(1), cartCount)
	assert.Equal(t, int64(1), reviewCount)
	assert.Equal(t, int64(1), userCount)
}
