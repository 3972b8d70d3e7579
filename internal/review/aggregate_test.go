package review

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Kyz7/juna/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestRoundOne(t *testing.T) {
	assert.Equal(t, 3.7, roundOne(11.0/3.0))
	assert.Equal(t, 4.4, roundOne(4.44))
	assert.Equal(t, 0.0, roundOne(0))
}

func TestRecomputeLocksProvider(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sub := &models.Subscription{ProviderID: uuid.New()}
	sub.ID = uuid.New()

	mock.ExpectQuery(`SELECT "id" FROM "providers" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(sub.ProviderID))
	mock.ExpectQuery(`SELECT rating, COUNT\(\*\) AS count FROM "reviews"`).
		WillReturnRows(sqlmock.NewRows([]string{"rating", "count"}).AddRow(5, 1).AddRow(3, 1))
	mock.ExpectExec(`UPDATE "subscriptions" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) AS count, COALESCE\(SUM\(reviews.rating\), 0\) AS total`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "total"}).AddRow(3, 11))
	mock.ExpectExec(`UPDATE "providers" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, recompute(db, sub))
	assert.NoError(t, mock.ExpectationsWereMet())
}
