package inventory

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Requester sends an authenticated JSON request. *kinvex.Gateway implements it.
type Requester interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// Service groups the CRUD clients over one Requester.
type Service struct {
	Products  *Products
	Orders    *Orders
	Suppliers *Suppliers
	Reports   *Reports
}

// New returns the CRUD clients bound to r.
func New(r Requester) *Service {
	return &Service{
		Products:  &Products{r: r},
		Orders:    &Orders{r: r},
		Suppliers: &Suppliers{r: r},
		Reports:   &Reports{r: r},
	}
}

func withQuery(path string, v url.Values) string {
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}

func id(n int64) string {
	return strconv.FormatInt(n, 10)
}

const dateLayout = time.DateOnly

func setDate(v url.Values, key string, t time.Time) {
	if !t.IsZero() {
		v.Set(key, t.Format(dateLayout))
	}
}

// Products covers /inventory/products and stock movements.
type Products struct {
	r Requester
}

const productsPath = "/inventory/products"

// ProductCriteria filters a product listing. Zero values are omitted.
type ProductCriteria struct {
	Name       string
	Code       string
	CategoryID int64
	Active     *bool
	LowStock   bool
}

func (c ProductCriteria) apply(v url.Values) {
	if c.Name != "" {
		v.Set("name", c.Name)
	}
	if c.Code != "" {
		v.Set("code", c.Code)
	}
	if c.CategoryID != 0 {
		v.Set("categoryId", id(c.CategoryID))
	}
	if c.Active != nil {
		v.Set("active", strconv.FormatBool(*c.Active))
	}
	if c.LowStock {
		v.Set("minStock", "true")
	}
}

// List returns one page of products matching criteria.
func (p *Products) List(ctx context.Context, page PageRequest, criteria ProductCriteria) (Page[Product], error) {
	v := page.values(Asc)
	criteria.apply(v)
	var out Page[Product]
	err := p.r.Do(ctx, http.MethodGet, withQuery(productsPath, v), nil, &out)
	return out, err
}

// Get returns the product with productID.
func (p *Products) Get(ctx context.Context, productID int64) (*Product, error) {
	var out Product
	if err := p.r.Do(ctx, http.MethodGet, productsPath+"/"+id(productID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByCode returns the product with the given product code.
func (p *Products) GetByCode(ctx context.Context, code string) (*Product, error) {
	var out Product
	if err := p.r.Do(ctx, http.MethodGet, productsPath+"/code/"+url.PathEscape(code), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create adds a product.
func (p *Products) Create(ctx context.Context, req CreateProductRequest) (*Product, error) {
	var out Product
	if err := p.r.Do(ctx, http.MethodPost, productsPath, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces the editable fields of a product.
func (p *Products) Update(ctx context.Context, productID int64, req UpdateProductRequest) (*Product, error) {
	var out Product
	if err := p.r.Do(ctx, http.MethodPut, productsPath+"/"+id(productID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a product.
func (p *Products) Delete(ctx context.Context, productID int64) error {
	return p.r.Do(ctx, http.MethodDelete, productsPath+"/"+id(productID), nil, nil)
}

// IncreaseStock records goods in and returns the movement.
func (p *Products) IncreaseStock(ctx context.Context, productID int64, req StockUpdateRequest) (*InventoryMovement, error) {
	return p.stock(ctx, productID, "increase", req)
}

// DecreaseStock records goods out and returns the movement.
func (p *Products) DecreaseStock(ctx context.Context, productID int64, req StockUpdateRequest) (*InventoryMovement, error) {
	return p.stock(ctx, productID, "decrease", req)
}

func (p *Products) stock(ctx context.Context, productID int64, op string, req StockUpdateRequest) (*InventoryMovement, error) {
	var out InventoryMovement
	if err := p.r.Do(ctx, http.MethodPost, productsPath+"/"+id(productID)+"/stock/"+op, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LowStock returns products at or below their minimum stock.
func (p *Products) LowStock(ctx context.Context) ([]Product, error) {
	var out []Product
	err := p.r.Do(ctx, http.MethodGet, productsPath+"/low-stock", nil, &out)
	return out, err
}

// Movements lists stock movements, newest first unless page says otherwise.
// A zero productID lists movements of every product.
func (p *Products) Movements(ctx context.Context, productID int64, page PageRequest) (Page[InventoryMovement], error) {
	v := page.values(Desc)
	if productID != 0 {
		v.Set("productId", id(productID))
	}
	var out Page[InventoryMovement]
	err := p.r.Do(ctx, http.MethodGet, withQuery("/inventory/movements", v), nil, &out)
	return out, err
}

// Orders covers /orders.
type Orders struct {
	r Requester
}

const ordersPath = "/orders"

// OrderCriteria filters an order listing. Zero values are omitted.
type OrderCriteria struct {
	OrderNumber string
	SupplierID  int64
	Status      OrderStatus
	DateFrom    time.Time
	DateTo      time.Time
}

// List returns one page of purchase orders matching criteria.
func (o *Orders) List(ctx context.Context, page PageRequest, criteria OrderCriteria) (Page[PurchaseOrder], error) {
	v := page.values(Desc)
	if criteria.OrderNumber != "" {
		v.Set("orderNumber", criteria.OrderNumber)
	}
	if criteria.SupplierID != 0 {
		v.Set("supplierId", id(criteria.SupplierID))
	}
	if criteria.Status != "" {
		v.Set("status", string(criteria.Status))
	}
	setDate(v, "dateFrom", criteria.DateFrom)
	setDate(v, "dateTo", criteria.DateTo)

	var out Page[PurchaseOrder]
	err := o.r.Do(ctx, http.MethodGet, withQuery(ordersPath, v), nil, &out)
	return out, err
}

// Get returns the order with orderID.
func (o *Orders) Get(ctx context.Context, orderID int64) (*PurchaseOrder, error) {
	return o.one(ctx, http.MethodGet, ordersPath+"/"+id(orderID), nil)
}

// GetByNumber returns the order with the given order number.
func (o *Orders) GetByNumber(ctx context.Context, number string) (*PurchaseOrder, error) {
	return o.one(ctx, http.MethodGet, ordersPath+"/number/"+url.PathEscape(number), nil)
}

// Create places a purchase order.
func (o *Orders) Create(ctx context.Context, req CreateOrderRequest) (*PurchaseOrder, error) {
	return o.one(ctx, http.MethodPost, ordersPath, req)
}

// UpdateStatus moves an order to another status.
func (o *Orders) UpdateStatus(ctx context.Context, orderID int64, req UpdateOrderStatusRequest) (*PurchaseOrder, error) {
	return o.one(ctx, http.MethodPut, ordersPath+"/"+id(orderID)+"/status", req)
}

// Cancel cancels an order, recording reason.
func (o *Orders) Cancel(ctx context.Context, orderID int64, reason string) (*PurchaseOrder, error) {
	body := struct {
		Reason string `json:"reason,omitempty"`
	}{reason}
	return o.one(ctx, http.MethodPut, ordersPath+"/"+id(orderID)+"/cancel", body)
}

// Delete removes an order.
func (o *Orders) Delete(ctx context.Context, orderID int64) error {
	return o.r.Do(ctx, http.MethodDelete, ordersPath+"/"+id(orderID), nil, nil)
}

// Receive books received quantities against an order.
func (o *Orders) Receive(ctx context.Context, orderID int64, req ReceiveOrderRequest) (*OrderReceipt, error) {
	var out OrderReceipt
	if err := o.r.Do(ctx, http.MethodPost, ordersPath+"/"+id(orderID)+"/receive", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Pending returns orders not yet completed or cancelled.
func (o *Orders) Pending(ctx context.Context) ([]PurchaseOrder, error) {
	var out []PurchaseOrder
	err := o.r.Do(ctx, http.MethodGet, ordersPath+"/pending", nil, &out)
	return out, err
}

// Overdue returns alerts for orders past their expected date.
func (o *Orders) Overdue(ctx context.Context) ([]OrderAlert, error) {
	var out []OrderAlert
	err := o.r.Do(ctx, http.MethodGet, ordersPath+"/alerts/overdue", nil, &out)
	return out, err
}

func (o *Orders) one(ctx context.Context, method, path string, body any) (*PurchaseOrder, error) {
	var out PurchaseOrder
	if err := o.r.Do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Suppliers covers /suppliers.
type Suppliers struct {
	r Requester
}

// List returns suppliers, restricted to active or inactive ones when active is set.
func (s *Suppliers) List(ctx context.Context, active *bool) ([]Supplier, error) {
	v := url.Values{}
	if active != nil {
		v.Set("active", strconv.FormatBool(*active))
	}
	var out []Supplier
	err := s.r.Do(ctx, http.MethodGet, withQuery("/suppliers", v), nil, &out)
	return out, err
}

// Get returns the supplier with supplierID.
func (s *Suppliers) Get(ctx context.Context, supplierID int64) (*Supplier, error) {
	var out Supplier
	if err := s.r.Do(ctx, http.MethodGet, "/suppliers/"+id(supplierID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reports covers /reports.
type Reports struct {
	r Requester
}

// ReportFilter narrows a report. Zero values are omitted.
type ReportFilter struct {
	DateFrom     time.Time
	DateTo       time.Time
	ProductID    int64
	SupplierID   int64
	CategoryID   int64
	MovementType MovementType
}

func (f ReportFilter) values() url.Values {
	v := url.Values{}
	setDate(v, "dateFrom", f.DateFrom)
	setDate(v, "dateTo", f.DateTo)
	if f.ProductID != 0 {
		v.Set("productId", id(f.ProductID))
	}
	if f.SupplierID != 0 {
		v.Set("supplierId", id(f.SupplierID))
	}
	if f.CategoryID != 0 {
		v.Set("categoryId", id(f.CategoryID))
	}
	if f.MovementType != "" {
		v.Set("movementType", string(f.MovementType))
	}
	return v
}

// Dashboard returns the headline inventory figures.
func (r *Reports) Dashboard(ctx context.Context) (*DashboardMetrics, error) {
	var out DashboardMetrics
	if err := r.r.Do(ctx, http.MethodGet, "/reports/dashboard-metrics", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StockLevels returns per-product stock against thresholds.
func (r *Reports) StockLevels(ctx context.Context, filter ReportFilter) ([]StockLevel, error) {
	var out []StockLevel
	err := r.r.Do(ctx, http.MethodGet, withQuery("/reports/stock-levels", filter.values()), nil, &out)
	return out, err
}

// Movements returns stock movements in the filter range.
func (r *Reports) Movements(ctx context.Context, filter ReportFilter) ([]MovementReport, error) {
	var out []MovementReport
	err := r.r.Do(ctx, http.MethodGet, withQuery("/reports/inventory-movements", filter.values()), nil, &out)
	return out, err
}
