// Package driving defines the interfaces that infrastructure calls INTO core.
//
// These are the "driving" or "primary" ports in hexagonal architecture.
// The CLI, the HTTP intake server, the MCP server and the folder watcher
// call these; core services implement them.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driving
