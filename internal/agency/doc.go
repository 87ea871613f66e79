// Package agency provides the domain accessors of tourdesk: typed records
// for every collection and the save/get operations the rest of the program
// is built against.
//
// All accessors are built on the storage engine primitives. On top of them
// the package adds:
//
//   - Identifier assignment: records saved without an id get one from the
//     injected ident.Generator.
//   - Validation: every record is checked against its CUE definition
//     (internal/schema) before it reaches the engine. Failures are
//     store.ErrInvalidRecord.
//   - Timestamping: AI conversations and customer notes are stamped on every
//     save and read back newest first.
//   - List replace: catalog saves replace the whole collection in one
//     transaction.
//   - Defaults: settings getters return default values when nothing was
//     saved.
package agency
