// Package device owns the installation's identity and entitlement.
//
// A random device id is generated once and persisted; it is registered with
// the backend to obtain an API key (stored separately by Credentials) and the
// initial premium flag. Registrar.Sync refreshes the flag on later runs and
// re-registers the same id when the backend rejects the key. Purchase
// provider callbacks overwrite the flag through Store.ApplyPurchase.
package device
