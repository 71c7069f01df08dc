package repository

import (
	"context"

	"github.com/tvio/ai/internal/model"
)

// DrugRepository defines data access for the ingestion pipeline using SQL
// queries only. No business logic here — strictly persistence operations.
//
// Write ordering is the caller's contract: a drug row must be committed
// before any of its document rows are attempted, which is what keeps the
// documents foreign key satisfiable.
type DrugRepository interface {
	// UpsertDrug inserts the record if absent, otherwise overwrites all
	// mutable fields keyed by SUKL code. Idempotent: a rerun with the same
	// input produces the same stored state.
	UpsertDrug(ctx context.Context, drug *model.Drug) error

	// InsertDocumentIfAbsent inserts the document row unless the
	// (sukl_code, document_id) pair already exists. Returns true when a row
	// was inserted and false when the pair was already present; the latter
	// is a no-op success so partial runs can be resumed without duplicates.
	InsertDocumentIfAbsent(ctx context.Context, doc *model.Document) (bool, error)
}
