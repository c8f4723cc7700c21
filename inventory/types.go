package inventory

import "time"

// Category groups products.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ParentID    int64     `json:"parentId,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
}

// Product is a stocked item.
type Product struct {
	ID           int64     `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Category     *Category `json:"category,omitempty"`
	CategoryID   int64     `json:"categoryId,omitempty"`
	UnitPrice    float64   `json:"unitPrice"`
	CurrentStock int       `json:"currentStock"`
	MinStock     int       `json:"minStock"`
	MaxStock     int       `json:"maxStock,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`
	UpdatedAt    time.Time `json:"updatedAt,omitzero"`
}

// LowStock reports whether the product is at or below its minimum stock.
func (p Product) LowStock() bool {
	return p.CurrentStock <= p.MinStock
}

// Supplier provides goods for purchase orders.
type Supplier struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contactPerson,omitempty"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Address       string    `json:"address,omitempty"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"createdAt,omitzero"`
}

// OrderStatus is the lifecycle state of a purchase order.
type OrderStatus string

const (
	// OrderPending is placed but not confirmed.
	OrderPending OrderStatus = "PENDING"
	// OrderConfirmed is accepted by the supplier.
	OrderConfirmed OrderStatus = "CONFIRMED"
	// OrderPartial has received some of its lines.
	OrderPartial OrderStatus = "PARTIAL"
	// OrderCompleted has received everything.
	OrderCompleted OrderStatus = "COMPLETED"
	// OrderCancelled will receive nothing more.
	OrderCancelled OrderStatus = "CANCELLED"
)

// Open reports whether goods may still be received against the order.
func (s OrderStatus) Open() bool {
	return s == OrderPending || s == OrderConfirmed || s == OrderPartial
}

// PurchaseOrder is an order placed with a supplier.
type PurchaseOrder struct {
	ID           int64         `json:"id"`
	OrderNumber  string        `json:"orderNumber"`
	Supplier     *Supplier     `json:"supplier,omitempty"`
	SupplierID   int64         `json:"supplierId"`
	Status       OrderStatus   `json:"status"`
	OrderDate    time.Time     `json:"orderDate"`
	ExpectedDate time.Time     `json:"expectedDate,omitzero"`
	ReceivedDate time.Time     `json:"receivedDate,omitzero"`
	TotalAmount  float64       `json:"totalAmount"`
	Notes        string        `json:"notes,omitempty"`
	CreatedByID  int64         `json:"createdById,omitempty"`
	OrderDetails []OrderDetail `json:"orderDetails"`
	CreatedAt    time.Time     `json:"createdAt,omitzero"`
}

// OrderDetail is one product line of a purchase order.
type OrderDetail struct {
	ID               int64   `json:"id"`
	OrderID          int64   `json:"orderId"`
	ProductID        int64   `json:"productId"`
	QuantityOrdered  int     `json:"quantityOrdered"`
	QuantityReceived int     `json:"quantityReceived"`
	UnitPrice        float64 `json:"unitPrice"`
	TotalPrice       float64 `json:"totalPrice"`
}

// MovementType is the direction of a stock movement.
type MovementType string

const (
	// MovementIn adds stock.
	MovementIn MovementType = "IN"
	// MovementOut removes stock.
	MovementOut MovementType = "OUT"
)

// InventoryMovement is one recorded stock change.
type InventoryMovement struct {
	ID            int64        `json:"id"`
	ProductID     int64        `json:"productId"`
	MovementType  MovementType `json:"movementType"`
	Quantity      int          `json:"quantity"`
	ReferenceType string       `json:"referenceType,omitempty"`
	ReferenceID   int64        `json:"referenceId,omitempty"`
	SourceSystem  string       `json:"sourceSystem,omitempty"`
	Notes         string       `json:"notes,omitempty"`
	CreatedByID   int64        `json:"createdById,omitempty"`
	CreatedAt     time.Time    `json:"createdAt,omitzero"`
}

// CreateProductRequest is the body of a product create or update.
type CreateProductRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	CategoryID  int64   `json:"categoryId,omitempty"`
	UnitPrice   float64 `json:"unitPrice"`
	MinStock    int     `json:"minStock"`
	MaxStock    int     `json:"maxStock,omitempty"`
}

// UpdateProductRequest carries only the fields to change.
type UpdateProductRequest struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	CategoryID  *int64   `json:"categoryId,omitempty"`
	UnitPrice   *float64 `json:"unitPrice,omitempty"`
	MinStock    *int     `json:"minStock,omitempty"`
	MaxStock    *int     `json:"maxStock,omitempty"`
	Active      *bool    `json:"active,omitempty"`
}

// StockUpdateRequest is the body of a stock increase or decrease.
type StockUpdateRequest struct {
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes,omitempty"`
}

// CreateOrderRequest is the body of a new purchase order.
type CreateOrderRequest struct {
	SupplierID   int64                      `json:"supplierId"`
	OrderDate    time.Time                  `json:"orderDate"`
	ExpectedDate time.Time                  `json:"expectedDate,omitzero"`
	Notes        string                     `json:"notes,omitempty"`
	OrderDetails []CreateOrderDetailRequest `json:"orderDetails"`
}

// CreateOrderDetailRequest is one line of a new purchase order.
type CreateOrderDetailRequest struct {
	ProductID       int64   `json:"productId"`
	QuantityOrdered int     `json:"quantityOrdered"`
	UnitPrice       float64 `json:"unitPrice"`
}

// UpdateOrderStatusRequest is the body of a status change.
type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status"`
	Notes  string      `json:"notes,omitempty"`
}

// ReceiveOrderRequest is the body of a goods receipt.
type ReceiveOrderRequest struct {
	OrderDetails []OrderDetailReceipt `json:"orderDetails"`
	Notes        string               `json:"notes,omitempty"`
}

// OrderDetailReceipt is the quantity received for one order line.
type OrderDetailReceipt struct {
	OrderDetailID    int64 `json:"orderDetailId"`
	QuantityReceived int   `json:"quantityReceived"`
}

// OrderReceipt is the result of a goods receipt.
type OrderReceipt struct {
	OrderID      int64         `json:"orderId"`
	Status       OrderStatus   `json:"status"`
	ReceivedDate time.Time     `json:"receivedDate"`
	OrderDetails []ReceiptLine `json:"orderDetails"`
}

// ReceiptLine reports one received line and the stock it left.
type ReceiptLine struct {
	OrderDetailID    int64 `json:"orderDetailId"`
	QuantityReceived int   `json:"quantityReceived"`
	NewStock         int   `json:"newStock"`
}

// OrderAlert flags an overdue purchase order.
type OrderAlert struct {
	OrderID      int64       `json:"orderId"`
	OrderNumber  string      `json:"orderNumber"`
	SupplierName string      `json:"supplierName"`
	ExpectedDate time.Time   `json:"expectedDate"`
	DaysOverdue  int         `json:"daysOverdue"`
	Status       OrderStatus `json:"status"`
}

// StockStatus classifies a product's stock against its limits.
type StockStatus string

const (
	// StockLow is at or below the minimum.
	StockLow StockStatus = "LOW"
	// StockNormal is between the minimum and maximum.
	StockNormal StockStatus = "NORMAL"
	// StockHigh is above the maximum.
	StockHigh StockStatus = "HIGH"
)

// StockLevel is one row of the stock level report.
type StockLevel struct {
	ProductID      int64       `json:"productId"`
	ProductCode    string      `json:"productCode"`
	ProductName    string      `json:"productName"`
	CategoryName   string      `json:"categoryName,omitempty"`
	CurrentStock   int         `json:"currentStock"`
	MinStock       int         `json:"minStock"`
	MaxStock       int         `json:"maxStock,omitempty"`
	StockStatus    StockStatus `json:"stockStatus"`
	LastMovementAt time.Time   `json:"lastMovementDate,omitzero"`
}

// MovementReport is one row of the movement report.
type MovementReport struct {
	ID            int64        `json:"id"`
	ProductCode   string       `json:"productCode"`
	ProductName   string       `json:"productName"`
	MovementType  MovementType `json:"movementType"`
	Quantity      int          `json:"quantity"`
	ReferenceType string       `json:"referenceType,omitempty"`
	ReferenceID   int64        `json:"referenceId,omitempty"`
	Notes         string       `json:"notes,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	CreatedBy     string       `json:"createdBy,omitempty"`
}

// DashboardMetrics holds the dashboard headline figures.
type DashboardMetrics struct {
	TotalProducts    int     `json:"totalProducts"`
	LowStockProducts int     `json:"lowStockProducts"`
	TotalOrders      int     `json:"totalOrders"`
	PendingOrders    int     `json:"pendingOrders"`
	TotalMovements   int     `json:"totalMovements"`
	TotalValue       float64 `json:"totalValue"`
}
