package fakeapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/kinvex/inventory"
	"github.com/MrEthical07/kinvex/permission"
	"github.com/gin-gonic/gin"
)

func (s *Server) orderRoutes(r *gin.RouterGroup) {
	o := r.Group("/orders")
	o.GET("", s.listOrders)
	o.GET("/pending", s.pendingOrders)
	o.GET("/alerts/overdue", s.overdueOrders)
	o.GET("/number/:number", s.orderByNumber)
	o.GET("/:id", s.orderByID)
	o.POST("", requireRole(permission.Operator), s.createOrder)
	o.PUT("/:id/status", requireRole(permission.Operator), s.updateOrderStatus)
	o.PUT("/:id/cancel", requireRole(permission.Operator), s.cancelOrder)
	o.POST("/:id/receive", requireRole(permission.Operator), s.receiveOrder)
	o.DELETE("/:id", requireRole(permission.Manager), s.deleteOrder)
}

func (s *Server) listOrders(c *gin.Context) {
	number := c.Query("orderNumber")
	status := inventory.OrderStatus(c.Query("status"))
	supplierID, _ := strconv.ParseInt(c.Query("supplierId"), 10, 64)

	s.mu.Lock()
	var out []inventory.PurchaseOrder
	for i := len(s.orders) - 1; i >= 0; i-- {
		o := s.orders[i]
		switch {
		case number != "" && o.OrderNumber != number:
			continue
		case status != "" && o.Status != status:
			continue
		case supplierID != 0 && o.SupplierID != supplierID:
			continue
		}
		out = append(out, s.expandOrder(o))
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, inventory.NewPage(out, pageRequest(c)))
}

func (s *Server) pendingOrders(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []inventory.PurchaseOrder{}
	for _, o := range s.orders {
		if o.Status == inventory.OrderPending {
			out = append(out, s.expandOrder(o))
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) overdueOrders(c *gin.Context) {
	now := s.now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []inventory.OrderAlert{}
	for _, o := range s.orders {
		if !o.Status.Open() || o.ExpectedDate.IsZero() || !o.ExpectedDate.Before(now) {
			continue
		}
		alert := inventory.OrderAlert{
			OrderID:      o.ID,
			OrderNumber:  o.OrderNumber,
			ExpectedDate: o.ExpectedDate,
			DaysOverdue:  int(now.Sub(o.ExpectedDate) / (24 * time.Hour)),
			Status:       o.Status,
		}
		if sup := s.findSupplier(o.SupplierID); sup != nil {
			alert.SupplierName = sup.Name
		}
		out = append(out, alert)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) orderByID(c *gin.Context) {
	n, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.findOrder(n)
	if o == nil {
		abort(c, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found")
		return
	}
	c.JSON(http.StatusOK, s.expandOrder(o))
}

func (s *Server) orderByNumber(c *gin.Context) {
	number := c.Param("number")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.OrderNumber == number {
			c.JSON(http.StatusOK, s.expandOrder(o))
			return
		}
	}
	abort(c, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found")
}

func (s *Server) createOrder(c *gin.Context) {
	var req inventory.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.OrderDetails) == 0 {
		abort(c, http.StatusBadRequest, "VALIDATION_ERROR", "supplierId and at least one order line are required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findSupplier(req.SupplierID) == nil {
		abort(c, http.StatusNotFound, "SUPPLIER_NOT_FOUND", "supplier not found")
		return
	}

	uid, _ := c.Get("uid")
	createdBy, _ := uid.(int64)
	o := &inventory.PurchaseOrder{
		ID:           s.newID(),
		SupplierID:   req.SupplierID,
		Status:       inventory.OrderPending,
		OrderDate:    req.OrderDate,
		ExpectedDate: req.ExpectedDate,
		Notes:        req.Notes,
		CreatedByID:  createdBy,
		CreatedAt:    s.now().UTC(),
	}
	if o.OrderDate.IsZero() {
		o.OrderDate = o.CreatedAt
	}
	o.OrderNumber = fmt.Sprintf("PO-%04d", o.ID)
	for _, line := range req.OrderDetails {
		if s.findProduct(line.ProductID) == nil {
			abort(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", fmt.Sprintf("product %d not found", line.ProductID))
			return
		}
		if line.QuantityOrdered <= 0 {
			abort(c, http.StatusBadRequest, "VALIDATION_ERROR", "quantityOrdered must be > 0")
			return
		}
		total := float64(line.QuantityOrdered) * line.UnitPrice
		o.OrderDetails = append(o.OrderDetails, inventory.OrderDetail{
			ID:              s.newID(),
			OrderID:         o.ID,
			ProductID:       line.ProductID,
			QuantityOrdered: line.QuantityOrdered,
			UnitPrice:       line.UnitPrice,
			TotalPrice:      total,
		})
		o.TotalAmount += total
	}
	s.orders = append(s.orders, o)
	c.JSON(http.StatusCreated, s.expandOrder(o))
}

var allowedTransitions = map[inventory.OrderStatus][]inventory.OrderStatus{
	inventory.OrderPending:   {inventory.OrderConfirmed, inventory.OrderCancelled},
	inventory.OrderConfirmed: {inventory.OrderPartial, inventory.OrderCompleted, inventory.OrderCancelled},
	inventory.OrderPartial:   {inventory.OrderCompleted, inventory.OrderCancelled},
}

func canTransition(from, to inventory.OrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s *Server) updateOrderStatus(c *gin.Context) {
	n, ok := pathID(c)
	if !ok {
		return
	}
	var req inventory.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		abort(c, http.StatusBadRequest, "VALIDATION_ERROR", "status is required")
		return
	}
	s.transition(c, n, req.Status, req.Notes)
}

func (s *Server) cancelOrder(c *gin.Context) {
	n, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)
	s.transition(c, n, inventory.OrderCancelled, req.Reason)
}

func (s *Server) transition(c *gin.Context, orderID int64, to inventory.OrderStatus, notes string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.findOrder(orderID)
	if o == nil {
		abort(c, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found")
		return
	}
	if !canTransition(o.Status, to) {
		abort(c, http.StatusConflict, "INVALID_ORDER_STATUS", fmt.Sprintf("cannot move order from %s to %s", o.Status, to))
		return
	}
	o.Status = to
	if notes != "" {
		o.Notes = notes
	}
	c.JSON(http.StatusOK, s.expandOrder(o))
}

func (s *Server) receiveOrder(c *gin.Context) {
	n, ok := pathID(c)
	if !ok {
		return
	}
	var req inventory.ReceiveOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.OrderDetails) == 0 {
		abort(c, http.StatusBadRequest, "VALIDATION_ERROR", "at least one receipt line is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.findOrder(n)
	if o == nil {
		abort(c, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found")
		return
	}
	if !o.Status.Open() {
		abort(c, http.StatusConflict, "INVALID_ORDER_STATUS", "order is not open")
		return
	}

	now := s.now().UTC()
	receipt := inventory.OrderReceipt{OrderID: o.ID, ReceivedDate: now}
	for _, line := range req.OrderDetails {
		i := -1
		for j := range o.OrderDetails {
			if o.OrderDetails[j].ID == line.OrderDetailID {
				i = j
			}
		}
		if i < 0 {
			abort(c, http.StatusNotFound, "ORDER_NOT_FOUND", fmt.Sprintf("order line %d not found", line.OrderDetailID))
			return
		}
		d := &o.OrderDetails[i]
		if line.QuantityReceived <= 0 || d.QuantityReceived+line.QuantityReceived > d.QuantityOrdered {
			abort(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "received quantity exceeds ordered quantity")
			return
		}
		d.QuantityReceived += line.QuantityReceived
		newStock := 0
		if p := s.findProduct(d.ProductID); p != nil {
			p.CurrentStock += line.QuantityReceived
			newStock = p.CurrentStock
		}
		s.movements = append(s.movements, &inventory.InventoryMovement{
			ID:            s.newID(),
			ProductID:     d.ProductID,
			MovementType:  inventory.MovementIn,
			Quantity:      line.QuantityReceived,
			ReferenceType: "PURCHASE_ORDER",
			ReferenceID:   o.ID,
			CreatedAt:     now,
		})
		receipt.OrderDetails = append(receipt.OrderDetails, inventory.ReceiptLine{
			OrderDetailID:    d.ID,
			QuantityReceived: line.QuantityReceived,
			NewStock:         newStock,
		})
	}

	o.Status = inventory.OrderCompleted
	for _, d := range o.OrderDetails {
		if d.QuantityReceived < d.QuantityOrdered {
			o.Status = inventory.OrderPartial
		}
	}
	if o.Status == inventory.OrderCompleted {
		o.ReceivedDate = now
	}
	receipt.Status = o.Status
	c.JSON(http.StatusOK, receipt)
}

func (s *Server) deleteOrder(c *gin.Context) {
	n, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.orders {
		if o.ID == n {
			s.orders = append(s.orders[:i], s.orders[i+1:]...)
			c.Status(http.StatusNoContent)
			return
		}
	}
	abort(c, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found")
}

func (s *Server) findOrder(n int64) *inventory.PurchaseOrder {
	for _, o := range s.orders {
		if o.ID == n {
			return o
		}
	}
	return nil
}

// expandOrder returns a copy of o with its supplier attached. Callers hold s.mu.
func (s *Server) expandOrder(o *inventory.PurchaseOrder) inventory.PurchaseOrder {
	out := *o
	out.OrderDetails = append([]inventory.OrderDetail(nil), o.OrderDetails...)
	if sup := s.findSupplier(o.SupplierID); sup != nil {
		cp := *sup
		out.Supplier = &cp
	}
	return out
}
