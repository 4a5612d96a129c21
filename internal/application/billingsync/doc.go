// Package billingsync translates commerce change notifications into billing
// platform operations.
//
// The NotificationDispatcher decodes a Pub/Sub push delivery, fetches the
// referenced commerce entity and hands it to one of the sync services:
//   - AccountSyncService: customer -> billing account
//   - OrderSyncService: order -> billing order with one subscription per line item
//   - ProductSyncService: product variants -> billing product, rate plan and charge
package billingsync
