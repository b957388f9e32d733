package models

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddressModel is the shipping address embedded in OrderModel.
type AddressModel struct {
	Name          string `gorm:"type:varchar(255)"`
	Line1         string `gorm:"type:varchar(255)"`
	Line2         string `gorm:"type:varchar(255)"`
	Line3         string `gorm:"type:varchar(255)"`
	City          string `gorm:"type:varchar(100)"`
	StateOrRegion string `gorm:"type:varchar(100)"`
	PostalCode    string `gorm:"type:varchar(20)"`
	CountryCode   string `gorm:"type:varchar(2)"`
	Phone         string `gorm:"type:varchar(32)"`
}

// OrderModel is the persistence model for the TrackedOrder aggregate root.
type OrderModel struct {
	AggregateModel
	IncrementID     string              `gorm:"type:varchar(32);not null;uniqueIndex"`
	StoreID         int64               `gorm:"not null;index"`
	State           string              `gorm:"type:varchar(20);not null;index"`
	RemoteStatus    string              `gorm:"type:varchar(32);not null;index"`
	SubmissionCount int                 `gorm:"not null"`
	RemoteFulfilled bool                `gorm:"not null;index"`
	ShippingMethod  string              `gorm:"type:varchar(100)"`
	ShippingAmount  decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	CustomerEmail   string              `gorm:"type:varchar(255)"`
	ShippingAddress AddressModel        `gorm:"embedded;embeddedPrefix:ship_"`
	Items           []OrderItemModel    `gorm:"foreignKey:OrderID;references:ID"`
	Comments        []OrderCommentModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain TrackedOrder.
func (m *OrderModel) ToDomain() *fulfillment.TrackedOrder {
	order := &fulfillment.TrackedOrder{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		IncrementID:       m.IncrementID,
		StoreID:           m.StoreID,
		State:             fulfillment.LocalOrderState(m.State),
		RemoteStatus:      fulfillment.RemoteStatus(m.RemoteStatus),
		SubmissionCount:   m.SubmissionCount,
		RemoteFulfilled:   m.RemoteFulfilled,
		ShippingMethod:    m.ShippingMethod,
		ShippingAmount:    m.ShippingAmount,
		CustomerEmail:     m.CustomerEmail,
		ShippingAddress:   fulfillment.Address(m.ShippingAddress),
		Items:             make([]fulfillment.OrderItem, len(m.Items)),
		Comments:          make([]fulfillment.StatusComment, len(m.Comments)),
	}
	for i := range m.Items {
		order.Items[i] = m.Items[i].ToDomain()
	}
	for i := range m.Comments {
		order.Comments[i] = fulfillment.StatusComment{
			Comment:   m.Comments[i].Comment,
			CreatedAt: m.Comments[i].CreatedAt,
		}
	}
	return order
}

// OrderModelFromDomain creates a persistence model from a domain TrackedOrder.
func OrderModelFromDomain(o *fulfillment.TrackedOrder) *OrderModel {
	m := &OrderModel{
		IncrementID:     o.IncrementID,
		StoreID:         o.StoreID,
		State:           string(o.State),
		RemoteStatus:    string(o.RemoteStatus),
		SubmissionCount: o.SubmissionCount,
		RemoteFulfilled: o.RemoteFulfilled,
		ShippingMethod:  o.ShippingMethod,
		ShippingAmount:  o.ShippingAmount,
		CustomerEmail:   o.CustomerEmail,
		ShippingAddress: AddressModel(o.ShippingAddress),
		Items:           make([]OrderItemModel, len(o.Items)),
		Comments:        make([]OrderCommentModel, len(o.Comments)),
	}
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	for i := range o.Items {
		m.Items[i] = OrderItemModelFromDomain(o.ID, i, &o.Items[i])
	}
	for i, c := range o.Comments {
		m.Comments[i] = OrderCommentModel{
			OrderID:   o.ID,
			Seq:       i,
			Comment:   c.Comment,
			CreatedAt: c.CreatedAt,
		}
	}
	return m
}

// OrderItemModel is a line of an order. Position keeps the line order stable.
type OrderItemModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position        int             `gorm:"not null"`
	ProductID       uuid.UUID       `gorm:"type:uuid;index"`
	SKU             string          `gorm:"type:varchar(64);not null;index"`
	MerchantSKU     string          `gorm:"type:varchar(64)"`
	Name            string          `gorm:"type:varchar(255)"`
	QtyOrdered      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QtyCanceled     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QtyShipped      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QtyInvoiced     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Price           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	IsVirtual       bool            `gorm:"not null"`
	RemoteFulfilled bool            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain OrderItem.
func (m *OrderItemModel) ToDomain() fulfillment.OrderItem {
	return fulfillment.OrderItem{
		ID:              m.ID,
		OrderID:         m.OrderID,
		ProductID:       m.ProductID,
		SKU:             m.SKU,
		MerchantSKU:     m.MerchantSKU,
		Name:            m.Name,
		QtyOrdered:      m.QtyOrdered,
		QtyCanceled:     m.QtyCanceled,
		QtyShipped:      m.QtyShipped,
		QtyInvoiced:     m.QtyInvoiced,
		Price:           m.Price,
		TaxAmount:       m.TaxAmount,
		IsVirtual:       m.IsVirtual,
		RemoteFulfilled: m.RemoteFulfilled,
	}
}

// OrderItemModelFromDomain creates a persistence model for the line at position.
func OrderItemModelFromDomain(orderID uuid.UUID, position int, i *fulfillment.OrderItem) OrderItemModel {
	return OrderItemModel{
		ID:              i.ID,
		OrderID:         orderID,
		Position:        position,
		ProductID:       i.ProductID,
		SKU:             i.SKU,
		MerchantSKU:     i.MerchantSKU,
		Name:            i.Name,
		QtyOrdered:      i.QtyOrdered,
		QtyCanceled:     i.QtyCanceled,
		QtyShipped:      i.QtyShipped,
		QtyInvoiced:     i.QtyInvoiced,
		Price:           i.Price,
		TaxAmount:       i.TaxAmount,
		IsVirtual:       i.IsVirtual,
		RemoteFulfilled: i.RemoteFulfilled,
	}
}

// OrderCommentModel is an append-only status history entry keyed by
// (order_id, seq).
type OrderCommentModel struct {
	OrderID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Seq       int       `gorm:"primaryKey;autoIncrement:false"`
	Comment   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderCommentModel) TableName() string {
	return "order_status_comments"
}
