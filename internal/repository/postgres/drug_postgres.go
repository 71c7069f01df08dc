package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/tvio/ai/internal/model"
	"github.com/tvio/ai/internal/repository"
)

// DrugPostgres is a PostgreSQL implementation of repository.DrugRepository.
// It uses database/sql with parameterized queries and contains no business logic.
// Every operation is a single statement, so each write is atomic on its own.
type DrugPostgres struct {
	db *sql.DB
}

// NewDrugPostgres creates a new DrugPostgres repository.
func NewDrugPostgres(db *sql.DB) *DrugPostgres {
	return &DrugPostgres{db: db}
}

var _ repository.DrugRepository = (*DrugPostgres)(nil)

// Lock timeouts, serialization failures, and deadlocks clear on their own,
// so each statement gets a few attempts before the error surfaces.
const maxStatementAttempts = 3

var statementRetryDelay = 100 * time.Millisecond

func (r *DrugPostgres) execStatement(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	var err error
	for attempt := 1; attempt <= maxStatementAttempts; attempt++ {
		res, err = r.db.ExecContext(ctx, query, args...)
		if err == nil || !repository.IsTransient(err) || attempt == maxStatementAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(statementRetryDelay):
		}
	}
	return res, err
}

// UpsertDrug writes one drug row, overwriting all attribute columns when the
// SUKL code already exists.
func (r *DrugPostgres) UpsertDrug(ctx context.Context, drug *model.Drug) error {
	const q = `
		INSERT INTO drugs (
			sukl_code, name, strength, dosage_form, package, route,
			supplement, container, holder, holder_country, registration_status,
			atc_code, registration_number, ddd_amount, ddd_unit,
			ddd_per_package, dispensing_mode, expiration, expiration_unit,
			registered_name, safety_features, package_language, registration_date
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23
		) ON CONFLICT (sukl_code) DO UPDATE SET
			name = EXCLUDED.name,
			strength = EXCLUDED.strength,
			dosage_form = EXCLUDED.dosage_form,
			package = EXCLUDED.package,
			route = EXCLUDED.route,
			supplement = EXCLUDED.supplement,
			container = EXCLUDED.container,
			holder = EXCLUDED.holder,
			holder_country = EXCLUDED.holder_country,
			registration_status = EXCLUDED.registration_status,
			atc_code = EXCLUDED.atc_code,
			registration_number = EXCLUDED.registration_number,
			ddd_amount = EXCLUDED.ddd_amount,
			ddd_unit = EXCLUDED.ddd_unit,
			ddd_per_package = EXCLUDED.ddd_per_package,
			dispensing_mode = EXCLUDED.dispensing_mode,
			expiration = EXCLUDED.expiration,
			expiration_unit = EXCLUDED.expiration_unit,
			registered_name = EXCLUDED.registered_name,
			safety_features = EXCLUDED.safety_features,
			package_language = EXCLUDED.package_language,
			registration_date = EXCLUDED.registration_date
	`
	_, err := r.execStatement(ctx, q,
		drug.SUKLCode,
		drug.Name,
		drug.Strength,
		drug.DosageForm,
		drug.Package,
		drug.Route,
		drug.Supplement,
		drug.Container,
		drug.Holder,
		drug.HolderCountry,
		drug.RegistrationStatus,
		drug.ATCCode,
		drug.RegistrationNumber,
		drug.DDDAmount,
		drug.DDDUnit,
		drug.DDDPerPackage,
		drug.DispensingMode,
		drug.Expiration,
		drug.ExpirationUnit,
		drug.RegisteredName,
		drug.SafetyFeatures,
		drug.PackageLanguage,
		drug.RegistrationDate,
	)
	return err
}

// InsertDocumentIfAbsent inserts one document row. Document rows are
// immutable: an existing (sukl_code, document_id) pair is left untouched
// and reported as already present.
func (r *DrugPostgres) InsertDocumentIfAbsent(ctx context.Context, doc *model.Document) (bool, error) {
	const q = `
		INSERT INTO documents (
			sukl_code, document_id, doc_type, file_name, pdf_data, pdf_size
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (sukl_code, document_id) DO NOTHING
	`
	res, err := r.execStatement(ctx, q,
		doc.SUKLCode,
		doc.DocID,
		doc.DocType,
		doc.FileName,
		doc.PDFData,
		doc.PDFSize,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
