// Package server wires the HTTP surface: the cookie-authenticated admin API,
// the public credential-free display endpoints (bootstrap and websocket), and
// the observability endpoints.
//
// Admin mutation handlers are thin: validate, mutate storage, then publish the
// change notification. Publishing happens only after the storage mutation
// committed, and a failed publish never fails the admin request.
package server
