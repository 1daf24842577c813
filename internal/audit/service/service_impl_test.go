package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/polarishq/polaris/internal/audit/domain"
	auditrepo "github.com/polarishq/polaris/internal/audit/repository"
	auditservice "github.com/polarishq/polaris/internal/audit/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&auditdomain.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) auditdomain.Service {
	t.Helper()

	node, err := snowflake.NewNode(10)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  auditrepo.Provide(),
	})
}

func TestAuditLogWritesEntry(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newTestService(t, db)

	orgRef := "org_1"
	targetID := "sub_1"
	err := svc.AuditLog(ctx, &orgRef, "webhook", nil, " reconcile.subscription.upserted ", "subscription", &targetID, map[string]any{
		"tier":      "professional",
		"signature": "whsec_abcdef12345678",
	})
	if err != nil {
		t.Fatalf("audit log: %v", err)
	}

	var row struct {
		OrgRef    string
		ActorType string
		Action    string
		TargetID  string
		Metadata  string
	}
	if err := db.Raw("SELECT org_ref, actor_type, action, target_id, metadata FROM audit_logs LIMIT 1").Scan(&row).Error; err != nil {
		t.Fatalf("scan entry: %v", err)
	}
	if row.Action != "reconcile.subscription.upserted" {
		t.Fatalf("expected trimmed action, got %q", row.Action)
	}
	if row.OrgRef != "org_1" || row.ActorType != "webhook" || row.TargetID != "sub_1" {
		t.Fatalf("unexpected entry %+v", row)
	}

	var metadata map[string]any
	if err := json.Unmarshal([]byte(row.Metadata), &metadata); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if metadata["tier"] != "professional" {
		t.Fatalf("expected tier carried, got %v", metadata["tier"])
	}
	if metadata["signature"] != "whsec_****5678" {
		t.Fatalf("expected signature masked, got %v", metadata["signature"])
	}
}

func TestAuditLogRejectsEmptyAction(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newTestService(t, db)

	if err := svc.AuditLog(ctx, nil, "system", nil, "  ", "subscription", nil, nil); err != auditdomain.ErrInvalidAction {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
}

func seedEntries(t *testing.T, db *gorm.DB, node *snowflake.Node, count int) {
	t.Helper()

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		if err := db.Exec(
			`INSERT INTO audit_logs (id, org_ref, actor_type, action, target_type, target_id, metadata, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			node.Generate(),
			"org_1",
			"webhook",
			"reconcile.subscription.upserted",
			"subscription",
			fmt.Sprintf("sub_%d", i),
			`{}`,
			base.Add(time.Duration(i)*time.Minute),
		).Error; err != nil {
			t.Fatalf("seed entry %d: %v", i, err)
		}
	}
}

func TestListPagesThroughEntries(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newTestService(t, db)

	node, err := snowflake.NewNode(11)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	seedEntries(t, db, node, 3)

	req := auditdomain.ListAuditLogRequest{OrgRef: "org_1"}
	req.PageSize = 2

	first, err := svc.List(ctx, req)
	if err != nil {
		t.Fatalf("list first page: %v", err)
	}
	if len(first.AuditLogs) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(first.AuditLogs))
	}
	if !first.HasMore || first.NextPageToken == "" {
		t.Fatalf("expected more pages, got %+v", first.PageInfo)
	}
	// Newest first.
	if first.AuditLogs[0].TargetID == nil || *first.AuditLogs[0].TargetID != "sub_2" {
		t.Fatalf("expected newest entry first, got %+v", first.AuditLogs[0].TargetID)
	}

	req.PageToken = first.NextPageToken
	second, err := svc.List(ctx, req)
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	if len(second.AuditLogs) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(second.AuditLogs))
	}
	if second.HasMore {
		t.Fatal("expected final page")
	}
	if second.AuditLogs[0].TargetID == nil || *second.AuditLogs[0].TargetID != "sub_0" {
		t.Fatalf("expected oldest entry last, got %+v", second.AuditLogs[0].TargetID)
	}
}

func TestListFiltersByAction(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newTestService(t, db)

	node, err := snowflake.NewNode(12)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	seedEntries(t, db, node, 2)

	resp, err := svc.List(ctx, auditdomain.ListAuditLogRequest{
		OrgRef: "org_1",
		Action: "reconcile.membership.created",
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(resp.AuditLogs) != 0 {
		t.Fatalf("expected no entries for unmatched action, got %d", len(resp.AuditLogs))
	}
}

func TestListRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newTestService(t, db)

	badToken := auditdomain.ListAuditLogRequest{}
	badToken.PageToken = "not-base64!"
	if _, err := svc.List(ctx, badToken); err != auditdomain.ErrInvalidPageToken {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}

	start := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	if _, err := svc.List(ctx, auditdomain.ListAuditLogRequest{StartAt: &start, EndAt: &end}); err != auditdomain.ErrInvalidTimeRange {
		t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
	}
}
