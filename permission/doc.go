// Package permission is the single home of the Kinvex role hierarchy and every
// authorization decision derived from it.
//
// # Role order
//
// VIEWER(1) < OPERATOR(2) < MANAGER(3) < ADMIN(4). A role satisfies a requirement
// when its rank is at least the required rank. Ranking an undefined role panics:
// roles reaching this package from the outside must go through [ParseRole] first.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O. Capabilities and
// the navigation [Registry] are expressed in terms of [Role] so no caller keeps its
// own rank table.
//
// # What this package must NOT do
//
//   - Access token storage, the network, or session state.
//   - Import kinvex, jwt, or tokenstore.
package permission
