// Package integration contains the billing synchronization bounded context.
// It relays change notifications from the commerce platform into the billing
// platform's catalog, account and order model.
//
// Key concepts:
//   - CommercePlatform: Port for reading products, customers and orders from the commerce platform
//   - BillingPlatform: Port for the billing platform's product, rate plan, charge, account and order APIs
//   - Notification: Decoded change envelope describing which commerce resource changed
//   - TermPolicy: Subscription term applied to every account signup and order subscription
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
