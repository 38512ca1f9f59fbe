// Package sync contains the identity reconciliation domain: local master
// entities with their natural identifiers, the ports to the external systems
// of record (ERP backend and national health registry), the resolver cascade
// that matches local entities to remote records, and the per-entity sync
// state that makes deferred synchronization observable.
//
// This package follows the Ports & Adapters pattern: the RemoteDirectory
// interface is defined here, concrete adapters (Frappe, SatuSehat) live in
// the infrastructure layer.
package sync
