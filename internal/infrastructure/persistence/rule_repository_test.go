package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/erp/pricing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func TestGormRuleRepository_FindByIDForTenant(t *testing.T) {
	t.Run("finds rule within tenant", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormRuleRepository(gormDB)

		ruleID := uuid.New()
		tenantID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "name", "adjustment_type", "adjustment_value", "priority", "stackable", "is_active"}).
			AddRow(ruleID, tenantID, "VIP discount", "PERCENTAGE_DISCOUNT", "10", 1, true, true)

		mock.ExpectQuery(`SELECT \* FROM "price_rules" WHERE tenant_id = \$1 AND id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, ruleID, 1).
			WillReturnRows(rows)

		rule, err := repo.FindByIDForTenant(context.Background(), tenantID, ruleID)

		assert.NoError(t, err)
		require.NotNil(t, rule)
		assert.Equal(t, ruleID, rule.ID)
		assert.Equal(t, "VIP discount", rule.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for missing rule", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormRuleRepository(gormDB)

		mock.ExpectQuery(`SELECT \* FROM "price_rules"`).
			WillReturnError(gorm.ErrRecordNotFound)

		rule, err := repo.FindByIDForTenant(context.Background(), uuid.New(), uuid.New())

		assert.Nil(t, rule)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormRuleRepository_ListActive(t *testing.T) {
	t.Run("filters by tenant and activity with scope hint", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormRuleRepository(gormDB)

		tenantID := uuid.New()
		ruleID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "name", "article_id", "adjustment_type", "adjustment_value", "priority", "stackable", "is_active"}).
			AddRow(ruleID, tenantID, "Steel promo", "STEEL-42", "FIXED_DISCOUNT", "5", 10, true, true)

		mock.ExpectQuery(`SELECT \* FROM "price_rules" WHERE \(tenant_id = \$1 AND is_active = \$2\) AND \(article_id = '' OR article_id = \$3\).*ORDER BY priority ASC,created_at ASC`).
			WithArgs(tenantID, true, "STEEL-42").
			WillReturnRows(rows)

		rules, err := repo.ListActive(context.Background(), tenantID, pricing.ScopeHint{ArticleID: "STEEL-42"})

		assert.NoError(t, err)
		require.Len(t, rules, 1)
		assert.Equal(t, "Steel promo", rules[0].Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("family hint ignores stored case", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormRuleRepository(gormDB)

		tenantID := uuid.New()
		ruleID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "name", "article_family", "adjustment_type", "adjustment_value", "priority", "stackable", "is_active"}).
			AddRow(ruleID, tenantID, "Bolt promo", "bolts", "FIXED_DISCOUNT", "2", 10, true, true)

		// The stored column is uppercased too, so a rule saved as "bolts"
		// stays in the candidate set for hint "BOLTS"
		mock.ExpectQuery(`SELECT \* FROM "price_rules" WHERE \(tenant_id = \$1 AND is_active = \$2\) AND \(article_family = '' OR \$3 LIKE UPPER\(article_family\) \|\| '%'\).*ORDER BY priority ASC,created_at ASC`).
			WithArgs(tenantID, true, "BOLTS").
			WillReturnRows(rows)

		rules, err := repo.ListActive(context.Background(), tenantID, pricing.ScopeHint{ArticleFamily: "Bolts"})

		assert.NoError(t, err)
		require.Len(t, rules, 1)
		assert.Equal(t, "Bolt promo", rules[0].Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty hint fetches all active rules", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormRuleRepository(gormDB)

		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "price_rules" WHERE tenant_id = \$1 AND is_active = \$2 ORDER BY priority ASC,created_at ASC`).
			WithArgs(tenantID, true).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		rules, err := repo.ListActive(context.Background(), tenantID, pricing.ScopeHint{})

		assert.NoError(t, err)
		assert.Empty(t, rules)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormRuleRepository_Delete(t *testing.T) {
	t.Run("deletes existing rule", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormRuleRepository(gormDB)

		tenantID := uuid.New()
		ruleID := uuid.New()

		mock.ExpectExec(`DELETE FROM "price_rules" WHERE tenant_id = \$1 AND id = \$2`).
			WithArgs(tenantID, ruleID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Delete(context.Background(), tenantID, ruleID)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound when nothing deleted", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormRuleRepository(gormDB)

		mock.ExpectExec(`DELETE FROM "price_rules"`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(context.Background(), uuid.New(), uuid.New())

		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormRuleRepository_IncrementUsage(t *testing.T) {
	t.Run("bumps counters atomically", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormRuleRepository(gormDB)

		tenantID := uuid.New()
		ids := []uuid.UUID{uuid.New(), uuid.New()}

		mock.ExpectExec(`UPDATE "price_rules" SET "updated_at"=\$1,"usage_count"=usage_count \+ 1 WHERE tenant_id = \$2 AND id IN \(\$3,\$4\)`).
			WithArgs(sqlmock.AnyArg(), tenantID, ids[0], ids[1]).
			WillReturnResult(sqlmock.NewResult(0, 2))

		err := repo.IncrementUsage(context.Background(), tenantID, ids)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no-op for empty id list", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormRuleRepository(gormDB)

		err := repo.IncrementUsage(context.Background(), uuid.New(), nil)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
