// Package tools defines the contract between the execution pipeline and the
// tool adapters it runs.
//
// # Architecture
//
// Every adapter in the catalog implements the same small surface:
//   - Tool: name, description, parameter schema, mock generator, execution
//   - Cacheable (optional): declares the cache key allow-list and TTL
//   - RateLimited (optional): declares a custom admission scope and limit
//   - Validator (optional): checks beyond what the schema can express
//
// The pipeline discovers tools through a Registry populated by explicit
// Register calls; there is no filesystem scanning and no package-level state.
//
// # Design Principles
//
//   - Dependency Injection: adapters capture their dependencies via struct
//     fields or closures, never via globals
//   - Declared constraints: parameter rules live in a jsonschema declaration
//     resolved once at registration, not in ad-hoc checks
//   - Uniform results: callers always receive a Result carrying either an
//     output or a classified *Error, never a raw failure
package tools
