package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespipeline/internal/models"
)

var oppColumns = []string{
	"id", "display_id", "title", "owner_id", "current_stage", "status", "stage_data",
	"expected_revenue", "currency", "win_probability", "weighted_revenue", "lead_id",
	"score", "classification", "opportunity_date", "version", "updated_by",
	"created_at", "updated_at", "has_quotation",
}

func oppRow(id int64, stage int, status string, version int) *sqlmock.Rows {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(oppColumns).AddRow(
		id, "OPP-0000001", "Boilers", 7, stage, status, []byte(`{"1":{"region":"North"}}`),
		1000.0, "INR", 25.0, 250.0, nil,
		40, "cold", now, version, 7,
		now, now, false,
	)
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestPostgresGetOpportunityNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM opportunities o\s+WHERE o.id = \$1`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(oppColumns))

	got, err := NewOpportunityRepository(db).GetByID(context.Background(), 5)
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMutateAdvancesAndRecordsHistory(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE OF o`).WithArgs(int64(1)).WillReturnRows(oppRow(1, 1, "Active", 3))
	mock.ExpectExec(`UPDATE opportunities`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 2, "Active", sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), 4, sqlmock.AnyArg(), sqlmock.AnyArg(),
			int64(1), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO opportunity_stage_history`).
		WithArgs(int64(1), 1, 2, 11, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	opp, err := NewOpportunityRepository(db).Mutate(context.Background(), 1, func(o *models.Opportunity) error {
		if assert.NotNil(t, o.StageData.Prospect) {
			assert.Equal(t, "North", o.StageData.Prospect.Region)
		}
		o.SetStage(models.StageQualification)
		o.UpdatedBy = 11
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, opp.Version)
	assert.Equal(t, models.StageQualification, opp.CurrentStage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMutateVersionConflict(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE OF o`).WillReturnRows(oppRow(1, 2, "Active", 3))
	mock.ExpectExec(`UPDATE opportunities`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := NewOpportunityRepository(db).Mutate(context.Background(), 1, func(o *models.Opportunity) error {
		o.Title = "new title"
		return nil
	})
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMutateCallbackErrorRollsBack(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE OF o`).WillReturnRows(oppRow(1, 6, "Won", 1))
	mock.ExpectRollback()

	locked := errors.New("locked")
	_, err := NewOpportunityRepository(db).Mutate(context.Background(), 1, func(*models.Opportunity) error {
		return locked
	})
	assert.ErrorIs(t, err, locked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMutateMissingRow(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE OF o`).WillReturnRows(sqlmock.NewRows(oppColumns))
	mock.ExpectRollback()

	_, err := NewOpportunityRepository(db).Mutate(context.Background(), 9, func(*models.Opportunity) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStageFilterUsesArray(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM opportunities o WHERE 1=1 AND o.status = \$1 AND o.current_stage = ANY\(\$2\) AND o.owner_id = \$3`).
		WithArgs("Active", "{2,3}", 7).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := NewOpportunityRepository(db).Count(context.Background(), models.OpportunityFilter{
		Status:  models.OpportunityActive,
		Stages:  []int{2, 3},
		OwnerID: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresKPIs(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`COUNT\(\*\) FILTER`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "open", "won", "lost", "dropped", "pipeline", "weighted", "won_value"}).
			AddRow(6, 4, 1, 1, 0, 4000.0, 1000.0, 5000.0))

	k, err := NewOpportunityRepository(db).KPIs(context.Background(), models.OpportunityFilter{})
	require.NoError(t, err)
	assert.Equal(t, models.OpportunityKPIs{Total: 6, Open: 4, Won: 1, Lost: 1, PipelineValue: 4000, WeightedPipelineValue: 1000, WonValue: 5000}, *k)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var leadColumns = []string{
	"id", "display_id", "title", "owner_id", "company", "expected_revenue", "currency",
	"approval_status", "score", "classification", "converted", "opportunity_id", "created_at", "updated_at",
}

func TestPostgresConvertLead(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM leads\s+WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(leadColumns).AddRow(
			3, "LEAD-0000003", "Acme", 7, []byte(`{"name":"Acme","region":"West"}`), 5000.0, "INR",
			"Approved", 72, "hot", false, nil, now, now,
		))
	mock.ExpectQuery(`INSERT INTO opportunities`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(41))
	mock.ExpectExec(`UPDATE leads`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "Approved",
			sqlmock.AnyArg(), sqlmock.AnyArg(), true, int64(41), sqlmock.AnyArg(), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	lead, opp, err := NewLeadRepository(db).Convert(context.Background(), 3, func(l *models.Lead) (*models.Opportunity, error) {
		assert.Equal(t, "West", l.Company.Region)
		o := &models.Opportunity{DisplayID: "OPP-0000015", OwnerID: l.OwnerID, LeadID: &l.ID}
		o.SetStage(models.StageProspect)
		return o, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(41), opp.ID)
	assert.True(t, lead.Converted)
	require.NotNil(t, lead.OpportunityID)
	assert.Equal(t, int64(41), *lead.OpportunityID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresConvertRejectedLeavesNoOpportunity(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM leads\s+WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(leadColumns).AddRow(
			3, "LEAD-0000003", "Acme", 7, []byte(`{}`), 0.0, "", "Approved", 10, "cold", true, int64(40), now, now,
		))
	mock.ExpectRollback()

	already := errors.New("already converted")
	_, _, err := NewLeadRepository(db).Convert(context.Background(), 3, func(l *models.Lead) (*models.Opportunity, error) {
		if l.Converted {
			return nil, already
		}
		return &models.Opportunity{}, nil
	})
	assert.ErrorIs(t, err, already)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQuotationGuardRunsUnderLock(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE OF o`).WithArgs(int64(1)).WillReturnRows(oppRow(1, 7, "Lost", 2))
	mock.ExpectRollback()

	terminal := errors.New("terminal")
	err := NewQuotationRepository(db).Create(context.Background(), &models.Quotation{OpportunityID: 1}, func(o *models.Opportunity) error {
		if o.Status.IsTerminal() {
			return terminal
		}
		return nil
	})
	assert.ErrorIs(t, err, terminal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQuotationCreate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE OF o`).WithArgs(int64(1)).WillReturnRows(oppRow(1, 4, "Active", 2))
	mock.ExpectQuery(`INSERT INTO quotations`).
		WithArgs("QUO-0000001", int64(1), "rev A", 10.0, 7, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
	mock.ExpectCommit()

	q := &models.Quotation{DisplayID: "QUO-0000001", OpportunityID: 1, Reference: "rev A", Amount: 10, CreatedBy: 7}
	require.NoError(t, NewQuotationRepository(db).Create(context.Background(), q, nil))
	assert.Equal(t, int64(12), q.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSequence(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO id_sequences`).
		WithArgs("OPP").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(17))

	v, err := NewSequenceRepository(db).NextValue(context.Background(), "OPP")
	require.NoError(t, err)
	assert.Equal(t, int64(17), v)
	assert.NoError(t, mock.ExpectationsWereMet())
}
