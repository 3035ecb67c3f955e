// Package core provides the foundational domain types and interfaces for
// SpectraRAG. It defines the core abstractions for:
//
//   - Messages (immutable communication records between coordinator and agents)
//   - Sessions (stateful conversational containers with chat history and
//     session-scoped storage handles)
//   - Handlers (uniform agent capability contract)
//   - Collaborator capabilities (parser, embedder, vector index, generator)
//   - The error taxonomy shared by every component
//
// The package intentionally keeps implementation concerns (bus routing,
// pipeline orchestration, concrete agents, storage backends) out of scope,
// exposing small interfaces to enable custom backends and extensions.
package core
