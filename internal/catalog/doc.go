// Package catalog implements the product catalog.
//
// Products are schema-less JSON documents identified by a unique integer
// "id". The Service validates ids, paginates listings and emits change
// events; a Store persists documents. Two stores are provided:
//
//   - SQLiteStore keeps documents as JSON rows in the embedded database
//   - MongoStore keeps them in a MongoDB collection
//
// Both enforce id uniqueness at the storage level and report connectivity
// failures as ErrStoreUnavailable.
package catalog
