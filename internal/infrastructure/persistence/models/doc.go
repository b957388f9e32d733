// Package models contains GORM persistence models for the fulfillment store.
// Domain types carry no ORM tags; each model maps to one table and converts
// to and from its domain type with ToDomain / FromDomain.
//
// Tables:
//   - products, stock_items: catalog SKU metadata and stock levels
//   - orders, order_items, order_status_comments: tracked orders
//   - invoices, invoice_items: invoices built from shipped quantities
//   - shipments, shipment_items, shipment_tracks: one shipment per package
//   - admin_notifications: operator notices
//   - store_scopes: stores where remote fulfillment is enabled
//   - sync_cursors: named scheduler cursors
package models
