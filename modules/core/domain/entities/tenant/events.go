package tenant

import "github.com/google/uuid"

type CreatedEvent struct {
	Result *Tenant
}

type StateChangedEvent struct {
	TenantID uuid.UUID
	From     State
	To       State
}

type DeletedEvent struct {
	TenantID   uuid.UUID
	SchemaName string
}
