// Package template expands field references inside configuration strings.
//
// A template is literal text with %{ref} references. Each ref is resolved
// against a record in two steps:
//
//   - a direct field lookup, so %{host}, %{@timestamp} and %{[src][ip]}
//     read the field of that name or path
//   - when the lookup misses, the ref is evaluated as an expr language
//     expression over the record's fields, so %{user.name},
//     %{upper(host)} and %{sev ?? "3"} work
//
// Expressions are compiled once when the template is compiled. A reference
// that resolves to nothing, or whose expression fails at runtime, renders as
// the empty string.
package template
