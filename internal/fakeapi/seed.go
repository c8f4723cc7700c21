package fakeapi

import (
	"github.com/MrEthical07/kinvex/inventory"
	"github.com/MrEthical07/kinvex/permission"
)

// SeedAccounts are the development logins created by New.
var SeedAccounts = []struct {
	Username string
	Password string
	Role     permission.Role
	Active   bool
}{
	{"admin", "admin123", permission.Admin, true},
	{"manager", "manager123", permission.Manager, true},
	{"operator", "operator123", permission.Operator, true},
	{"viewer", "viewer123", permission.Viewer, true},
	{"disabled", "disabled123", permission.Viewer, false},
}

func (s *Server) seed() error {
	for _, a := range SeedAccounts {
		if err := s.AddUser(a.Username, a.Password, a.Role, a.Active); err != nil {
			return err
		}
	}

	now := s.now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.suppliers = []*inventory.Supplier{
		{ID: 1, Name: "Acme Industrial", ContactPerson: "R. Ortiz", Email: "sales@acme.example", Active: true, CreatedAt: now},
		{ID: 2, Name: "Northwind Parts", ContactPerson: "L. Chen", Email: "orders@northwind.example", Active: true, CreatedAt: now},
		{ID: 3, Name: "Legacy Supply", Active: false, CreatedAt: now},
	}
	s.products = []*inventory.Product{
		{ID: 1, Code: "BOLT-M8", Name: "M8 hex bolt", UnitPrice: 0.25, CurrentStock: 1200, MinStock: 500, MaxStock: 5000, Active: true, CreatedAt: now},
		{ID: 2, Code: "NUT-M8", Name: "M8 hex nut", UnitPrice: 0.10, CurrentStock: 300, MinStock: 500, MaxStock: 5000, Active: true, CreatedAt: now},
		{ID: 3, Code: "WASH-M8", Name: "M8 washer", UnitPrice: 0.05, CurrentStock: 4000, MinStock: 1000, Active: true, CreatedAt: now},
		{ID: 4, Code: "GEAR-20T", Name: "20 tooth spur gear", UnitPrice: 7.80, CurrentStock: 12, MinStock: 20, Active: true, CreatedAt: now},
	}
	s.orders = []*inventory.PurchaseOrder{
		{
			ID: 1, OrderNumber: "PO-0001", SupplierID: 2, Status: inventory.OrderPending,
			OrderDate: now.AddDate(0, 0, -10), ExpectedDate: now.AddDate(0, 0, -3),
			OrderDetails: []inventory.OrderDetail{
				{ID: 1, OrderID: 1, ProductID: 2, QuantityOrdered: 1000, UnitPrice: 0.09, TotalPrice: 90},
			},
			TotalAmount: 90, CreatedAt: now,
		},
		{
			ID: 2, OrderNumber: "PO-0002", SupplierID: 1, Status: inventory.OrderCompleted,
			OrderDate: now.AddDate(0, 0, -30), ExpectedDate: now.AddDate(0, 0, -20), ReceivedDate: now.AddDate(0, 0, -21),
			OrderDetails: []inventory.OrderDetail{
				{ID: 2, OrderID: 2, ProductID: 1, QuantityOrdered: 1000, QuantityReceived: 1000, UnitPrice: 0.2, TotalPrice: 200},
			},
			TotalAmount: 200, CreatedAt: now,
		},
	}
	s.movements = []*inventory.InventoryMovement{
		{ID: 1, ProductID: 1, MovementType: inventory.MovementIn, Quantity: 1000, ReferenceType: "PURCHASE_ORDER", ReferenceID: 2, CreatedAt: now.AddDate(0, 0, -21)},
	}
	s.nextID = max(s.nextID, 100)
	return nil
}

func (s *Server) newID() int64 {
	s.nextID++
	return s.nextID
}

func stockStatus(p *inventory.Product) inventory.StockStatus {
	switch {
	case p.CurrentStock <= p.MinStock:
		return inventory.StockLow
	case p.MaxStock > 0 && p.CurrentStock >= p.MaxStock:
		return inventory.StockHigh
	default:
		return inventory.StockNormal
	}
}

