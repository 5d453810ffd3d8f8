// Package session houses concrete implementations of core.ConversationStore
// and core.TenantResolver. The interfaces live in the core package so higher
// level packages (engine, the agentdesk façade) never depend on concrete
// storage.
//
// Add additional backends in sub‑packages (see session/sqlite) without
// changing any calling code – only the wiring layer decides which
// implementation to instantiate.
package session
