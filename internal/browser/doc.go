// Package browser keeps typed object registries in sync with keyed stores.
//
// Every registered store gets a Proxy holding one registry per category and
// one association table per auxiliary kind. The proxy subscribes to the store
// and classifies every changed key: primary keys insert, reconnect or remove
// entries, association keys update the side tables, and attribute keys touch
// the owning entry. Watchers hear about each change synchronously.
//
// Views are created and destroyed through a ViewFactory. When the last view
// of a proxy closes and the proxy is not kept, destruction is scheduled as an
// idle task and re-checked when it runs, so a view reopened in the same turn
// keeps the proxy alive.
//
// A Browser is single-threaded. Contract violations (duplicate ids, missing
// ids, payloads of the wrong type, unknown watch ids) panic when strict
// contracts are enabled and are logged and returned as errors otherwise.
package browser
