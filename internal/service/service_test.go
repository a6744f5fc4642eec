package service

import (
	"context"
	"testing"

	"github.com/dmarquez/online_store/internal/models"
	"github.com/dmarquez/online_store/internal/repo"
	"github.com/dmarquez/online_store/internal/stripe"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRepo(t *testing.T) *repo.GormRepo {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return &repo.GormRepo{DB: db}
}

type fakeGateway struct {
	failWith    error
	session     stripe.CheckoutSession
	calls       int
	lastOrderID uuid.UUID
	lastLines   []stripe.LineItem
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, orderID uuid.UUID, lines []stripe.LineItem) (*stripe.CheckoutSession, error) {
	g.calls++
	g.lastOrderID = orderID
	g.lastLines = lines
	if g.failWith != nil {
		return nil, g.failWith
	}
	s := g.session
	if s.ID == "" {
		s = stripe.CheckoutSession{
			ID:            "cs_test_1",
			URL:           "https://checkout.example.com/cs_test_1",
			PaymentIntent: "pi_test_1",
		}
	}
	return &s, nil
}

type publishedEvent struct {
	Topic string
	Key   string
	Event map[string]any
}

type fakePublisher struct {
	events []publishedEvent
}

func (p *fakePublisher) PublishEvent(ctx context.Context, topic, key string, event any) error {
	p.events = append(p.events, publishedEvent{Topic: topic, Key: key, Event: event.(map[string]any)})
	return nil
}

func (p *fakePublisher) typesSeen() []string {
	var out []string
	for _, e := range p.events {
		out = append(out, e.Event["type"].(string))
	}
	return out
}

type checkoutFixture struct {
	User    models.User
	Address models.Address
	Product models.Product
	Cart    models.Cart
}

func seedCheckout(t *testing.T, r *repo.GormRepo, priceCents int64, stock int, qty uint) checkoutFixture {
	t.Helper()

	user := models.User{Username: "buyer_" + uuid.NewString()[:8], Email: uuid.NewString() + "@example.com"}
	require.NoError(t, r.DB.Create(&user).Error)

	address := models.Address{
		UserID:      user.ID,
		FirstName:   "Ana",
		LastName:    "Lopez",
		Street:      "12 Main St",
		City:        "Springfield",
		State:       "IL",
		Country:     "US",
		ZipCode:     "62701",
		PhoneNumber: "+15551230000",
	}
	require.NoError(t, r.DB.Create(&address).Error)

	product := models.Product{
		Name:        "mechanical keyboard",
		Description: "tenkeyless, brown switches",
		PriceCents:  priceCents,
		Stock:       stock,
		Active:      true,
	}
	require.NoError(t, r.DB.Create(&product).Error)

	cart := models.Cart{UserID: user.ID}
	require.NoError(t, r.DB.Create(&cart).Error)
	item := models.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: qty}
	require.NoError(t, r.DB.Create(&item).Error)

	return checkoutFixture{User: user, Address: address, Product: product, Cart: cart}
}

// addCartFor gives another user a cart holding qty of an existing product.
func addCartFor(t *testing.T, r *repo.GormRepo, productID uuid.UUID, qty uint) (models.User, models.Address) {
	t.Helper()

	user := models.User{Username: "buyer_" + uuid.NewString()[:8], Email: uuid.NewString() + "@example.com"}
	require.NoError(t, r.DB.Create(&user).Error)

	address := models.Address{
		UserID:      user.ID,
		FirstName:   "Marco",
		LastName:    "Diaz",
		Street:      "7 Oak Ave",
		City:        "Portland",
		State:       "OR",
		Country:     "US",
		ZipCode:     "97201",
		PhoneNumber: "+15551239999",
	}
	require.NoError(t, r.DB.Create(&address).Error)

	cart := models.Cart{UserID: user.ID}
	require.NoError(t, r.DB.Create(&cart).Error)
	item := models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: qty}
	require.NoError(t, r.DB.Create(&item).Error)

	return user, address
}

func newOrderService(r *repo.GormRepo, gw *fakeGateway, pub *fakePublisher) *OrderService {
	return &OrderService{
		Repo:     r,
		Gateway:  gw,
		Producer: pub,
		Pricing:  Pricing{ShippingFeeCents: 500, TaxRateBps: 1600},
	}
}

func reloadProduct(t *testing.T, r *repo.GormRepo, id uuid.UUID) models.Product {
	t.Helper()
	p, err := r.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return *p
}

func reloadOrder(t *testing.T, r *repo.GormRepo, id uuid.UUID) models.Order {
	t.Helper()
	var o models.Order
	require.NoError(t, r.DB.Where("id = ?", id).First(&o).Error)
	return o
}

func cartItemCount(t *testing.T, r *repo.GormRepo, cartID uuid.UUID) int64 {
	t.Helper()
	n, err := r.CountCartItems(context.Background(), cartID)
	require.NoError(t, err)
	return n
}
