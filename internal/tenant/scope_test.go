package tenant

import (
	"context"
	"strings"
	"testing"

	"zapcommerce/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true})
	if err != nil {
		t.Fatalf("failed to open dry-run db: %v", err)
	}
	return db
}

func TestScopeInjectsMerchantFilter(t *testing.T) {
	db := dryRunDB(t)
	id := uuid.New()
	ctx, _ := WithMerchant(context.Background(), id)

	var out []models.Conversation
	stmt := db.Scopes(Scope(ctx)).Find(&out).Statement

	sql := stmt.SQL.String()
	if !strings.Contains(sql, "merchant_id = ") {
		t.Errorf("scoped query missing merchant filter: %s", sql)
	}

	found := false
	for _, v := range stmt.Vars {
		if v == id {
			found = true
		}
	}
	if !found {
		t.Errorf("scoped query vars %v missing merchant id %s", stmt.Vars, id)
	}
}

func TestScopeDeniesByDefault(t *testing.T) {
	db := dryRunDB(t)

	var out []models.Conversation
	stmt := db.Scopes(Scope(context.Background())).Find(&out).Statement

	if sql := stmt.SQL.String(); !strings.Contains(sql, "1 = 0") {
		t.Errorf("unscoped query must match zero rows, got: %s", sql)
	}
}

func TestScopeAdminBypass(t *testing.T) {
	db := dryRunDB(t)

	var out []models.Conversation
	stmt := db.Scopes(Scope(WithAdmin(context.Background()))).Find(&out).Statement

	sql := stmt.SQL.String()
	if strings.Contains(sql, "merchant_id = ") || strings.Contains(sql, "1 = 0") {
		t.Errorf("admin query should carry no tenant predicate: %s", sql)
	}
}

func TestMessageScopeResolvesThroughConversation(t *testing.T) {
	db := dryRunDB(t)
	id := uuid.New()
	ctx, _ := WithMerchant(context.Background(), id)

	var out []models.Message
	stmt := db.Scopes(MessageScope(ctx)).Find(&out).Statement

	sql := stmt.SQL.String()
	if !strings.Contains(sql, "SELECT id FROM conversations WHERE merchant_id = ") {
		t.Errorf("message scope must resolve tenancy through conversations: %s", sql)
	}
}

func TestMessageScopeDeniesByDefault(t *testing.T) {
	db := dryRunDB(t)

	var out []models.Message
	stmt := db.Scopes(MessageScope(context.Background())).Find(&out).Statement

	if sql := stmt.SQL.String(); !strings.Contains(sql, "1 = 0") {
		t.Errorf("unscoped message query must match zero rows, got: %s", sql)
	}
}
