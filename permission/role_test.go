package permission

import (
	"errors"
	"testing"
)

func TestRoleOrdering(t *testing.T) {
	roles := Roles()
	for i, holder := range roles {
		for j, required := range roles {
			want := i >= j
			if got := Allows(holder, required); got != want {
				t.Fatalf("Allows(%s, %s) = %v, want %v", holder, required, got, want)
			}
		}
	}
	for _, r := range roles {
		if !Allows(r, Viewer) {
			t.Fatalf("%s should satisfy VIEWER", r)
		}
		if Allows(r, Admin) != (r == Admin) {
			t.Fatalf("only ADMIN should satisfy ADMIN, %s disagreed", r)
		}
	}
}

func TestRankValues(t *testing.T) {
	want := map[Role]int{Viewer: 1, Operator: 2, Manager: 3, Admin: 4}
	for r, rank := range want {
		if r.Rank() != rank {
			t.Fatalf("%s rank = %d, want %d", r, r.Rank(), rank)
		}
	}
}

func TestRankPanicsOnUndefinedRole(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for undefined role")
		}
	}()
	_ = Allows(Role("SUPERUSER"), Viewer)
}

func TestAllowsAny(t *testing.T) {
	if !AllowsAny(Operator, Admin, Operator) {
		t.Fatal("operator should satisfy one of ADMIN, OPERATOR")
	}
	if AllowsAny(Viewer, Manager, Admin) {
		t.Fatal("viewer should not satisfy MANAGER or ADMIN")
	}
	if AllowsAny(Admin) {
		t.Fatal("empty requirement list should not be satisfied")
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" manager ")
	if err != nil || r != Manager {
		t.Fatalf("ParseRole: %v %v", r, err)
	}
	if _, err := ParseRole("root"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
	if _, err := ParseRole(""); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole for empty role, got %v", err)
	}
}

func TestCapabilities(t *testing.T) {
	cases := []struct {
		role Role
		cap  Capability
		want bool
	}{
		{Viewer, ManageProducts, false},
		{Operator, ManageProducts, true},
		{Operator, ManageOrders, true},
		{Operator, ViewReports, false},
		{Manager, ViewReports, true},
		{Manager, ManageUsers, false},
		{Admin, ManageUsers, true},
		{Admin, Capability("fly"), false},
	}
	for _, tc := range cases {
		if got := Grants(tc.role, tc.cap); got != tc.want {
			t.Fatalf("Grants(%s, %s) = %v, want %v", tc.role, tc.cap, got, tc.want)
		}
	}
}
