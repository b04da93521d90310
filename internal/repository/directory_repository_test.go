package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/thesis-pipeline-api/internal/models"
	appErrors "github.com/noah-isme/thesis-pipeline-api/pkg/errors"
)

func TestCorpusRepositoryListByField(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCorpusRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM thesis_corpus WHERE field = $1 ORDER BY id")).
		WithArgs("informatics").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "abstract", "keywords", "field", "author", "year", "created_at"}).
			AddRow("c-001", "Deep Learning for Crop Disease Detection", "", "{cnn,agriculture}", "informatics", "A. Putri", 2021, time.Now()))

	entries, err := repo.List(context.Background(), models.CorpusFilter{Field: "informatics"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, []string{"cnn", "agriculture"}, []string(entries[0].Keywords))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLecturerRepositoryListSearch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLecturerRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, department, expertise, active, created_at FROM lecturers WHERE active = TRUE AND department = $1")).
		WithArgs("informatics", "%budi%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "department", "expertise", "active", "created_at"}).
			AddRow("lec-1", "Budi Santoso", "informatics", "NLP", true, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM lecturers")).
		WithArgs("informatics", "%budi%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.LecturerFilter{Department: "informatics", Search: "Budi"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "Budi Santoso", list[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.AuditLog{Action: models.AuditActionSubmissionCreate, Resource: "thesis_submission"}
	require.NoError(t, repo.CreateAuditLog(context.Background(), entry))
	require.NotEmpty(t, entry.ID)
	require.False(t, entry.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "thesis")
	var dest []models.CorpusEntry
	err := repo.Get(context.Background(), "corpus:all", &dest)
	require.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	require.NoError(t, repo.Set(context.Background(), "corpus:all", dest, time.Minute))
	require.NoError(t, repo.DeleteByPattern(context.Background(), "corpus:*"))
	require.Equal(t, "thesis:corpus:all", repo.key("corpus:all"))
}
