// Package mongo provides a MongoDB implementation of driven.DocumentStore.
//
// Server selection and connection establishment are both bounded by the
// configured connect timeout. Timeout and network failures surface as
// domain.ErrStorageUnavailable; any other driver failure surfaces as
// domain.ErrDurableStore.
package mongo
