// Package core provides the foundational domain types and contracts used by
// agentdesk. It defines:
//
//   - State and History (the per-conversation session state and transcript)
//   - AgentBundle (per-agent, per-language behaviour configuration)
//   - Decision and its closed Action sum type
//   - ResponseMessage, TurnInput and TurnResult
//   - Narrow store interfaces for bundles, conversations, tenants and retrieval
//
// Implementation concerns (persistence, model transport, orchestration) live
// in other packages, which keeps this package free of heavy dependencies.
package core
