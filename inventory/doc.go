// Package inventory is the typed client for the Kinvex CRUD endpoints:
// products and stock, purchase orders, suppliers and reports.
//
// Services issue requests through a [Requester], normally a *kinvex.Gateway, so
// bearer tokens, error mapping and session invalidation come from the gateway.
// No session logic lives here.
package inventory
