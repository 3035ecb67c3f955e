package core

import "context"

// Handler is the uniform agent capability contract. Implementations are
// stateless with respect to conversation data: everything they need arrives
// in the message payload or is looked up by session id against externally
// owned resources. Handlers must never cache session data internally.
//
// Handle never returns a Go error: collaborator faults are caught at the
// handler boundary and converted into an ERROR reply carrying a stable code
// and the original trace id. Handlers never retry internally; retry policy
// belongs to the coordinator.
type Handler interface {
	Name() AgentName
	Handle(ctx context.Context, msg Message) Message
}
