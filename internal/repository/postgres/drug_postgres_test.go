package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvio/ai/internal/model"
)

// zeroRetryDelay removes the backoff between statement attempts for the
// duration of one test.
func zeroRetryDelay(t *testing.T) {
	t.Helper()
	restore := statementRetryDelay
	statementRetryDelay = 0
	t.Cleanup(func() { statementRetryDelay = restore })
}

func sampleDrug() *model.Drug {
	return &model.Drug{
		SUKLCode:           "0094156",
		Name:               "PARALEN",
		Strength:           "500MG",
		DosageForm:         "TBL",
		ATCCode:            "N02BE01",
		RegistrationNumber: "07/157/70-C",
		DDDAmount:          "3",
	}
}

func drugArgs(d *model.Drug) []driver.Value {
	return []driver.Value{
		d.SUKLCode, d.Name, d.Strength, d.DosageForm, d.Package, d.Route,
		d.Supplement, d.Container, d.Holder, d.HolderCountry, d.RegistrationStatus,
		d.ATCCode, d.RegistrationNumber, d.DDDAmount, d.DDDUnit,
		d.DDDPerPackage, d.DispensingMode, d.Expiration, d.ExpirationUnit,
		d.RegisteredName, d.SafetyFeatures, d.PackageLanguage, d.RegistrationDate,
	}
}

func TestDrugPostgres_UpsertDrug(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDrugPostgres(db)
	ctx := context.Background()
	drug := sampleDrug()

	t.Run("insert", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO drugs").
			WithArgs(drugArgs(drug)...).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.UpsertDrug(ctx, drug))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rerun with identical input succeeds", func(t *testing.T) {
		// The ON CONFLICT arm updates in place; the statement still
		// reports one affected row.
		mock.ExpectExec("INSERT INTO drugs").
			WithArgs(drugArgs(drug)...).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.UpsertDrug(ctx, drug))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error is propagated", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO drugs").
			WithArgs(drugArgs(drug)...).
			WillReturnError(errors.New("value too long"))

		err := repo.UpsertDrug(ctx, drug)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lock timeout is retried", func(t *testing.T) {
		zeroRetryDelay(t)

		mock.ExpectExec("INSERT INTO drugs").
			WithArgs(drugArgs(drug)...).
			WillReturnError(&pgconn.PgError{Code: "55P03"})
		mock.ExpectExec("INSERT INTO drugs").
			WithArgs(drugArgs(drug)...).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.UpsertDrug(ctx, drug))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("persistent lock timeout surfaces after last attempt", func(t *testing.T) {
		zeroRetryDelay(t)

		for i := 0; i < maxStatementAttempts; i++ {
			mock.ExpectExec("INSERT INTO drugs").
				WithArgs(drugArgs(drug)...).
				WillReturnError(&pgconn.PgError{Code: "55P03"})
		}

		err := repo.UpsertDrug(ctx, drug)
		var pgErr *pgconn.PgError
		require.ErrorAs(t, err, &pgErr)
		assert.Equal(t, "55P03", pgErr.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDrugPostgres_InsertDocumentIfAbsent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDrugPostgres(db)
	ctx := context.Background()

	content := []byte("%PDF-1.4 test")
	doc := &model.Document{
		SUKLCode: "0094156",
		DocID:    "D100",
		DocType:  "spc",
		FileName: "SPC_0094156.pdf",
		PDFData:  content,
		PDFSize:  len(content),
	}

	t.Run("inserted", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO documents").
			WithArgs(doc.SUKLCode, doc.DocID, doc.DocType, doc.FileName, doc.PDFData, doc.PDFSize).
			WillReturnResult(sqlmock.NewResult(1, 1))

		inserted, err := repo.InsertDocumentIfAbsent(ctx, doc)
		assert.NoError(t, err)
		assert.True(t, inserted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already present is a no-op success", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO documents").
			WithArgs(doc.SUKLCode, doc.DocID, doc.DocType, doc.FileName, doc.PDFData, doc.PDFSize).
			WillReturnResult(sqlmock.NewResult(0, 0))

		inserted, err := repo.InsertDocumentIfAbsent(ctx, doc)
		assert.NoError(t, err)
		assert.False(t, inserted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error is propagated", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO documents").
			WithArgs(doc.SUKLCode, doc.DocID, doc.DocType, doc.FileName, doc.PDFData, doc.PDFSize).
			WillReturnError(errors.New("value too long"))

		_, err := repo.InsertDocumentIfAbsent(ctx, doc)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deadlock is retried", func(t *testing.T) {
		zeroRetryDelay(t)

		mock.ExpectExec("INSERT INTO documents").
			WithArgs(doc.SUKLCode, doc.DocID, doc.DocType, doc.FileName, doc.PDFData, doc.PDFSize).
			WillReturnError(&pgconn.PgError{Code: "40P01"})
		mock.ExpectExec("INSERT INTO documents").
			WithArgs(doc.SUKLCode, doc.DocID, doc.DocType, doc.FileName, doc.PDFData, doc.PDFSize).
			WillReturnResult(sqlmock.NewResult(1, 1))

		inserted, err := repo.InsertDocumentIfAbsent(ctx, doc)
		assert.NoError(t, err)
		assert.True(t, inserted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
