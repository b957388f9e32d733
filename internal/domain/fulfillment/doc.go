// Package fulfillment contains the domain model for reconciling local orders
// and stock with a remote multi-channel fulfillment provider.
//
// The package defines:
//   - TrackedOrder and its remote status machine
//   - TrackedSku and the SkuIndex used to match remote SKUs back to products
//   - typed remote request/response structs and the RemoteClient port
//   - repository, cursor store and notifier ports implemented by infrastructure
//   - invoice and shipment builders derived from remote fulfillment results
//
// Nothing in this package performs I/O.
package fulfillment
