package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"    json:"id"`
	Username string    `gorm:"unique;not null"         json:"username"`
	Email    string    `gorm:"unique;not null"         json:"email"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	Name        string    `gorm:"not null"              json:"name"`
	Description string    `gorm:"not null"              json:"description"`
	PriceCents  int64     `gorm:"not null"              json:"price_cents"`
	Stock       int       `gorm:"not null;check:stock>=0" json:"stock"`
	Active      bool      `gorm:"not null;default:true" json:"active"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Cart survives checkout: its items are removed and the total reset,
// the row itself is never deleted.
type Cart struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"           json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	TotalCents int64      `gorm:"not null;default:0"             json:"total_cents"`
	Items      []CartItem `gorm:"foreignKey:CartID"              json:"items"`
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type CartItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"                            json:"id"`
	CartID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_product;not null" json:"cart_id"`
	ProductID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_product;not null" json:"product_id"`
	Quantity  uint      `gorm:"default:1;check:quantity>0"                      json:"quantity"`
	Product   Product   `gorm:"foreignKey:ProductID"                            json:"product"`
}

func (ci *CartItem) BeforeCreate(tx *gorm.DB) error {
	if ci.ID == uuid.Nil {
		ci.ID = uuid.New()
	}
	return nil
}

// Address is the user-editable book entry. Orders never reference it
// directly: a frozen OrderAddress copy is taken at checkout.
type Address struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"     json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	FirstName   string    `gorm:"not null"                 json:"first_name"`
	LastName    string    `gorm:"not null"                 json:"last_name"`
	Street      string    `gorm:"not null"                 json:"street"`
	City        string    `gorm:"not null"                 json:"city"`
	State       string    `gorm:"not null"                 json:"state"`
	Country     string    `gorm:"not null"                 json:"country"`
	ZipCode     string    `gorm:"not null"                 json:"zip_code"`
	PhoneNumber string    `gorm:"not null"                 json:"phone_number"`
}

func (a *Address) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type OrderAddress struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName   string    `gorm:"not null"             json:"first_name"`
	LastName    string    `gorm:"not null"             json:"last_name"`
	Street      string    `gorm:"not null"             json:"street"`
	City        string    `gorm:"not null"             json:"city"`
	State       string    `gorm:"not null"             json:"state"`
	Country     string    `gorm:"not null"             json:"country"`
	ZipCode     string    `gorm:"not null"             json:"zip_code"`
	PhoneNumber string    `gorm:"not null"             json:"phone_number"`
}

func (a *OrderAddress) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Order id doubles as the correlation key embedded in the payment
// provider's session metadata. TransactionID is the provider's payment
// intent, set by the reconciler once the provider confirms; it is
// indexed because succeeded/failed webhook events carry only the
// intent id.
type Order struct {
	ID                uuid.UUID     `gorm:"type:uuid;primaryKey"         json:"id"`
	UserID            uuid.UUID     `gorm:"type:uuid;index;not null"     json:"user_id"`
	CreatedAt         time.Time     `gorm:"not null"                     json:"created_at"`
	SubtotalCents     int64         `gorm:"not null"                     json:"subtotal_cents"`
	ShippingCents     int64         `gorm:"not null"                     json:"shipping_cents"`
	TaxCents          int64         `gorm:"not null"                     json:"tax_cents"`
	TotalCents        int64         `gorm:"not null"                     json:"total_cents"`
	OrderStatus       OrderStatus   `gorm:"not null"                     json:"order_status"`
	PaymentStatus     PaymentStatus `gorm:"not null"                     json:"payment_status"`
	PaymentMethod     string        `gorm:"not null"                     json:"payment_method"`
	TransactionID     *string       `gorm:"index"                        json:"transaction_id"`
	ShippingAddressID uuid.UUID     `gorm:"type:uuid;not null"           json:"-"`
	ShippingAddress   OrderAddress  `gorm:"foreignKey:ShippingAddressID" json:"shipping_address"`
	Items             []OrderItem   `gorm:"foreignKey:OrderID"           json:"items"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

type OrderItem struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"       json:"id"`
	OrderID        uuid.UUID `gorm:"type:uuid;index;not null"   json:"order_id"`
	ProductID      uuid.UUID `gorm:"type:uuid;not null"         json:"product_id"`
	Quantity       uint      `gorm:"default:1;check:quantity>0" json:"quantity"`
	UnitPriceCents int64     `gorm:"not null"                   json:"unit_price_cents"`
	Product        Product   `gorm:"foreignKey:ProductID"       json:"product"`
}

func (oi *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if oi.ID == uuid.Nil {
		oi.ID = uuid.New()
	}
	return nil
}

// All lists every entity in migration order.
func All() []any {
	return []any{
		&User{}, &Product{}, &Cart{}, &CartItem{},
		&Address{}, &OrderAddress{}, &Order{}, &OrderItem{},
	}
}
