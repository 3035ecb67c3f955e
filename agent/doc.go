// Package agent contains the four worker handlers behind the message bus:
// ingestion (parse, chunk, embed, index), retrieval (similarity search with
// optional multi-query expansion), response (context-grounded generation)
// and general (open-domain generation).
//
// Handlers are stateless: all conversation data arrives in the message
// payload and all session-scoped resources are looked up by session id.
// Collaborator faults never escape as Go errors; each handler converts them
// into an ERROR reply carrying a stable code and the originating trace id.
package agent
