package handlers

import (
	"context"

	"transferengine/internal/domain"
)

// Processor is the dependency HandlerDependencies exposes to the transfer
// handler. Kept as an interface, the way the teacher's HandlerDependencies
// breaks the handlers/components circular dependency.
type Processor interface {
	Process(ctx context.Context, req domain.TransferRequest) (domain.Outcome, error)
}

// Pinger is the dependency the health handler checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HandlerDependencies is what MakeTransferHandler and MakeHealthHandler close
// over, mirroring the teacher's internal/api/handlers.HandlerDependencies.
type HandlerDependencies interface {
	GetProcessor() Processor
	GetStore() Pinger
}
