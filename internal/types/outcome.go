package types

// OutcomeKind classifies the result of one fetch.
type OutcomeKind string

const (
	// OutcomeOk means the provider returned at least one record.
	OutcomeOk OutcomeKind = "ok"

	// OutcomeEmpty means the provider answered but had no records.
	OutcomeEmpty OutcomeKind = "empty"

	// OutcomeFailed means the provider could not be reached or its answer was unusable.
	OutcomeFailed OutcomeKind = "failed"
)

// FetchOutcome is what a fetcher hands back for one symbol.
type FetchOutcome struct {
	Kind  OutcomeKind
	Table *Table
	Err   error
}

// Ok wraps a fetched table. A nil or empty table becomes Empty.
func Ok(table *Table) FetchOutcome {
	if table.IsEmpty() {
		return Empty()
	}

	return FetchOutcome{Kind: OutcomeOk, Table: table, Err: nil}
}

// Empty is the outcome for a provider answer without records.
func Empty() FetchOutcome {
	return FetchOutcome{Kind: OutcomeEmpty, Table: nil, Err: nil}
}

// Failed is the outcome for an unreachable provider or an unusable answer.
func Failed(err error) FetchOutcome {
	return FetchOutcome{Kind: OutcomeFailed, Table: nil, Err: err}
}

func (o FetchOutcome) IsOk() bool {
	return o.Kind == OutcomeOk
}

func (o FetchOutcome) IsEmpty() bool {
	return o.Kind == OutcomeEmpty
}

func (o FetchOutcome) IsFailed() bool {
	return o.Kind == OutcomeFailed
}

// Released returns the outcome without its table. Once persisted, the artifact is
// the durable copy of the data.
func (o FetchOutcome) Released() FetchOutcome {
	o.Table = nil

	return o
}
