// Package types defines the record data model, the Store and Backend
// interfaces, backend configuration, and the standard errors shared by the
// mirrors packages.
//
// A Store holds one Record per (namespace, id). Namespaces are declared up
// front in Config and mapped to storage at Attach time; a Store never
// creates a namespace as a side effect of Create.
package types
