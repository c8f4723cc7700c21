package fakeapi

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/MrEthical07/kinvex/inventory"
	"github.com/MrEthical07/kinvex/permission"
	"github.com/gin-gonic/gin"
)

func (s *Server) inventoryRoutes(r *gin.RouterGroup) {
	p := r.Group("/inventory")
	p.GET("/products", s.listProducts)
	p.GET("/products/low-stock", s.lowStock)
	p.GET("/products/code/:code", s.productByCode)
	p.GET("/products/:id", s.productByID)
	p.POST("/products", requireRole(permission.Operator), s.createProduct)
	p.PUT("/products/:id", requireRole(permission.Operator), s.updateProduct)
	p.DELETE("/products/:id", requireRole(permission.Manager), s.deleteProduct)
	p.POST("/products/:id/stock/increase", requireRole(permission.Operator), s.adjustStock(inventory.MovementIn))
	p.POST("/products/:id/stock/decrease", requireRole(permission.Operator), s.adjustStock(inventory.MovementOut))
	p.GET("/movements", s.listMovements)

	r.GET("/suppliers", s.listSuppliers)
	r.GET("/suppliers/:id", s.supplierByID)
}

func pageRequest(c *gin.Context) inventory.PageRequest {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("size"))
	return inventory.PageRequest{Page: page, Size: size, Sort: c.Query("sort"), Direction: inventory.Direction(c.Query("direction"))}
}

func pathID(c *gin.Context) (int64, bool) {
	n, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || n <= 0 {
		abort(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
		return 0, false
	}
	return n, true
}

func (s *Server) listProducts(c *gin.Context) {
	name := strings.ToLower(c.Query("name"))
	code := c.Query("code")
	active := c.Query("active")
	low := c.Query("minStock") == "true"

	s.mu.Lock()
	var out []inventory.Product
	for _, p := range s.products {
		switch {
		case name != "" && !strings.Contains(strings.ToLower(p.Name), name):
			continue
		case code != "" && p.Code != code:
			continue
		case active != "" && strconv.FormatBool(p.Active) != active:
			continue
		case low && !p.LowStock():
			continue
		}
		out = append(out, *p)
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, inventory.NewPage(out, pageRequest(c)))
}

func (s *Server) lowStock(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []inventory.Product{}
	for _, p := range s.products {
		if p.Active && p.LowStock() {
			out = append(out, *p)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) productByID(c *gin.Context) {
	n, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findProduct(n)
	if p == nil {
		abort(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) productByCode(c *gin.Context) {
	code := c.Param("code")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.Code == code {
			c.JSON(http.StatusOK, p)
			return
		}
	}
	abort(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found")
}

func (s *Server) createProduct(c *gin.Context) {
	var req inventory.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" || req.Name == "" || req.UnitPrice < 0 || req.MinStock < 0 {
		abort(c, http.StatusBadRequest, "VALIDATION_ERROR", "code, name, unitPrice and minStock are required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.Code == req.Code {
			abort(c, http.StatusConflict, "DUPLICATE_PRODUCT_CODE", "product code already exists")
			return
		}
	}
	now := s.now().UTC()
	p := &inventory.Product{
		ID:          s.newID(),
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		UnitPrice:   req.UnitPrice,
		MinStock:    req.MinStock,
		MaxStock:    req.MaxStock,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.products = append(s.products, p)
	c.JSON(http.StatusCreated, p)
}

func (s *Server) updateProduct(c *gin.Context) {
	n, ok := pathID(c)
	if !ok {
		return
	}
	var req inventory.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findProduct(n)
	if p == nil {
		abort(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found")
		return
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.CategoryID != nil {
		p.CategoryID = *req.CategoryID
	}
	if req.UnitPrice != nil {
		p.UnitPrice = *req.UnitPrice
	}
	if req.MinStock != nil {
		p.MinStock = *req.MinStock
	}
	if req.MaxStock != nil {
		p.MaxStock = *req.MaxStock
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
	p.UpdatedAt = s.now().UTC()
	c.JSON(http.StatusOK, p)
}

func (s *Server) deleteProduct(c *gin.Context) {
	n, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.products, func(p *inventory.Product) bool { return p.ID == n })
	if i < 0 {
		abort(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found")
		return
	}
	s.products = slices.Delete(s.products, i, i+1)
	c.Status(http.StatusNoContent)
}

func (s *Server) adjustStock(direction inventory.MovementType) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, ok := pathID(c)
		if !ok {
			return
		}
		var req inventory.StockUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Quantity <= 0 {
			abort(c, http.StatusBadRequest, "VALIDATION_ERROR", "quantity must be > 0")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		p := s.findProduct(n)
		if p == nil {
			abort(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found")
			return
		}
		if direction == inventory.MovementOut {
			if p.CurrentStock < req.Quantity {
				abort(c, http.StatusUnprocessableEntity, "INSUFFICIENT_STOCK", "insufficient stock")
				return
			}
			p.CurrentStock -= req.Quantity
		} else {
			p.CurrentStock += req.Quantity
		}
		uid, _ := c.Get("uid")
		createdBy, _ := uid.(int64)
		m := &inventory.InventoryMovement{
			ID:            s.newID(),
			ProductID:     p.ID,
			MovementType:  direction,
			Quantity:      req.Quantity,
			ReferenceType: "ADJUSTMENT",
			Notes:         req.Notes,
			CreatedByID:   createdBy,
			CreatedAt:     s.now().UTC(),
		}
		s.movements = append(s.movements, m)
		c.JSON(http.StatusOK, m)
	}
}

func (s *Server) listMovements(c *gin.Context) {
	productID, _ := strconv.ParseInt(c.Query("productId"), 10, 64)
	s.mu.Lock()
	var out []inventory.InventoryMovement
	for i := len(s.movements) - 1; i >= 0; i-- {
		m := s.movements[i]
		if productID == 0 || m.ProductID == productID {
			out = append(out, *m)
		}
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, inventory.NewPage(out, pageRequest(c)))
}

func (s *Server) listSuppliers(c *gin.Context) {
	active := c.Query("active")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []inventory.Supplier{}
	for _, sup := range s.suppliers {
		if active == "" || strconv.FormatBool(sup.Active) == active {
			out = append(out, *sup)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) supplierByID(c *gin.Context) {
	n, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sup := s.findSupplier(n); sup != nil {
		c.JSON(http.StatusOK, sup)
		return
	}
	abort(c, http.StatusNotFound, "SUPPLIER_NOT_FOUND", "supplier not found")
}

func (s *Server) findProduct(n int64) *inventory.Product {
	for _, p := range s.products {
		if p.ID == n {
			return p
		}
	}
	return nil
}

func (s *Server) findSupplier(n int64) *inventory.Supplier {
	for _, sup := range s.suppliers {
		if sup.ID == n {
			return sup
		}
	}
	return nil
}
