package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/bozor/internal/database"
	"github.com/example/bozor/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "bozor.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, role string) models.User {
	t.Helper()

	user := models.User{
		FirstName: "Test",
		LastName:  role,
		Email:     uuid.NewString() + "@example.com",
		Role:      role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedProduct(t *testing.T, db *gorm.DB, sellerID uuid.UUID, price float64) models.Product {
	t.Helper()

	product := models.Product{
		SellerID: sellerID,
		Name:     "Ceramic Teapot",
		Price:    price,
		Currency: "USD",
		ImageURL: "https://cdn.example.com/teapot.jpg",
		Stock:    25,
		IsActive: true,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func seedAddress(t *testing.T, db *gorm.DB, userID uuid.UUID) models.UserAddress {
	t.Helper()

	address := models.UserAddress{
		UserID:      userID,
		AddressLine: "12 Navoi Street",
		City:        "Tashkent",
		District:    "Yunusabad",
		PostalCode:  "100000",
	}
	require.NoError(t, db.Create(&address).Error)
	return address
}

// failingShipments simulates an unreachable courier API.
type failingShipments struct{}

func (failingShipments) CreateShipment(ctx context.Context, order *models.Order) (*models.Shipment, error) {
	return nil, errors.New("courier api unreachable")
}

type testEnv struct {
	db      *gorm.DB
	gateway *HMACGateway
	ships   *ShipmentService
	orders  *OrderService
	buyer   models.User
	seller  models.User
	product models.Product
	address models.UserAddress
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	gateway := NewHMACGateway("key_test", "top-secret", "")
	ships := NewShipmentService(db, "Bozor Express", nil)

	env := &testEnv{
		db:      db,
		gateway: gateway,
		ships:   ships,
		orders:  NewOrderService(db, gateway, ships, nil, nil),
		buyer:   seedUser(t, db, models.RoleBuyer),
		seller:  seedUser(t, db, models.RoleSeller),
	}
	env.product = seedProduct(t, db, env.seller.ID, 100.00)
	env.address = seedAddress(t, db, env.buyer.ID)
	return env
}

// placeOrder creates a one-item order (1 x 100.00, no tax or shipping).
func (e *testEnv) placeOrder(t *testing.T) *models.Order {
	t.Helper()

	order, err := e.orders.CreateOrder(context.Background(), e.buyer.ID, CreateOrderInput{
		Items: []CreateOrderItemInput{
			{ProductID: e.product.ID.String(), Quantity: 1},
		},
		AddressID: e.address.ID.String(),
		Currency:  "USD",
	})
	require.NoError(t, err)
	return order
}

func (e *testEnv) timelineLen(t *testing.T, orderID uuid.UUID) int {
	t.Helper()

	var count int64
	require.NoError(t, e.db.Model(&models.OrderTimelineEntry{}).
		Where("order_id = ?", orderID).Count(&count).Error)
	return int(count)
}

func (e *testEnv) reload(t *testing.T, orderID uuid.UUID) models.Order {
	t.Helper()

	var order models.Order
	require.NoError(t, e.db.Preload("Items").First(&order, "id = ?", orderID).Error)
	return order
}

func (e *testEnv) sellerActor() Actor {
	return Actor{ID: e.seller.ID, Role: models.RoleSeller}
}
