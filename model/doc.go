// Package model defines the provider-agnostic abstractions for talking to
// language models inside agentdesk.
//
// Core goals:
//   - One synchronous request/response exchange per decision
//   - Per-request generation parameters (temperature, max tokens) so each
//     agent bundle can tune its own
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (e.g. OpenAI, Anthropic) implement the Model interface from this
// package so the decision requester stays decoupled from vendor SDKs.
package model
