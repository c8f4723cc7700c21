package fakeapi

import (
	"net/http"
	"strconv"

	"github.com/MrEthical07/kinvex/inventory"
	"github.com/MrEthical07/kinvex/permission"
	"github.com/gin-gonic/gin"
)

func (s *Server) reportRoutes(r *gin.RouterGroup) {
	g := r.Group("/reports", requireRole(permission.Manager))
	g.GET("/dashboard-metrics", s.dashboard)
	g.GET("/stock-levels", s.stockLevels)
	g.GET("/inventory-movements", s.movementReport)
}

func (s *Server) dashboard(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var m inventory.DashboardMetrics
	for _, p := range s.products {
		m.TotalProducts++
		if p.LowStock() {
			m.LowStockProducts++
		}
		m.TotalValue += float64(p.CurrentStock) * p.UnitPrice
	}
	for _, o := range s.orders {
		m.TotalOrders++
		if o.Status == inventory.OrderPending {
			m.PendingOrders++
		}
	}
	m.TotalMovements = len(s.movements)
	c.JSON(http.StatusOK, m)
}

func (s *Server) stockLevels(c *gin.Context) {
	productID, _ := strconv.ParseInt(c.Query("productId"), 10, 64)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []inventory.StockLevel{}
	for _, p := range s.products {
		if productID != 0 && p.ID != productID {
			continue
		}
		level := inventory.StockLevel{
			ProductID:    p.ID,
			ProductCode:  p.Code,
			ProductName:  p.Name,
			CurrentStock: p.CurrentStock,
			MinStock:     p.MinStock,
			MaxStock:     p.MaxStock,
			StockStatus:  stockStatus(p),
		}
		for _, m := range s.movements {
			if m.ProductID == p.ID && m.CreatedAt.After(level.LastMovementAt) {
				level.LastMovementAt = m.CreatedAt
			}
		}
		out = append(out, level)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) movementReport(c *gin.Context) {
	productID, _ := strconv.ParseInt(c.Query("productId"), 10, 64)
	movementType := inventory.MovementType(c.Query("movementType"))
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []inventory.MovementReport{}
	for _, m := range s.movements {
		if productID != 0 && m.ProductID != productID {
			continue
		}
		if movementType != "" && m.MovementType != movementType {
			continue
		}
		row := inventory.MovementReport{
			ID:            m.ID,
			MovementType:  m.MovementType,
			Quantity:      m.Quantity,
			ReferenceType: m.ReferenceType,
			ReferenceID:   m.ReferenceID,
			Notes:         m.Notes,
			CreatedAt:     m.CreatedAt,
		}
		if p := s.findProduct(m.ProductID); p != nil {
			row.ProductCode = p.Code
			row.ProductName = p.Name
		}
		out = append(out, row)
	}
	c.JSON(http.StatusOK, out)
}
