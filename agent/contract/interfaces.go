package contract

import "context"

// Completer is the completion-service contract. Implementations never
// execute tool calls themselves; they only report what the model requested.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// NITDirectory resolves a Colombian tax id to its commercial record.
type NITDirectory interface {
	Lookup(ctx context.Context, nit string) (NITRecord, bool, error)
}

// VendorExporter receives profiled vendor prospects for the purchasing team.
type VendorExporter interface {
	AppendProspect(ctx context.Context, row VendorProspect) error
}
