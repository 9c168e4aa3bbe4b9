package workflow

import (
	"context"
	"testing"
	"time"

	"joblink/internal/database"
)

func TestChatHistoryRequiresMembership(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	company := seedCompany(t, db, "company@acme.test")
	outsider := seedJobSeeker(t, db, "outsider@mail.test")
	post := seedJobPost(t, db, company.ID, time.Now().Add(48*time.Hour), true)

	var area database.ChatArea
	if err := db.Where("job_post_id = ?", post.ID).First(&area).Error; err != nil {
		t.Fatalf("load chat area: %v", err)
	}

	_, err := svc.ChatHistory(ctx, outsider.ID, area.ID)
	wantKind(t, err, KindForbidden)
}

func TestSendChatMessageValidatesContent(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.SendChatMessage(context.Background(), 1, 1, "   ")
	wantKind(t, err, KindValidation)
}

func TestSendAndReadChatMessages(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	company := seedCompany(t, db, "company@acme.test")
	seeker := seedJobSeeker(t, db, "seeker@mail.test")
	post := seedJobPost(t, db, company.ID, time.Now().Add(48*time.Hour), true)

	if _, err := svc.Apply(ctx, ApplyInput{JobSeekerID: seeker.ID, JobPostID: post.ID}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	var area database.ChatArea
	if err := db.Where("job_post_id = ?", post.ID).First(&area).Error; err != nil {
		t.Fatalf("load chat area: %v", err)
	}

	if _, err := svc.SendChatMessage(ctx, company.ID, area.ID, "Hello"); err != nil {
		t.Fatalf("company send: %v", err)
	}
	if _, err := svc.SendChatMessage(ctx, seeker.ID, area.ID, "Hi there"); err != nil {
		t.Fatalf("seeker send: %v", err)
	}

	history, err := svc.ChatHistory(ctx, seeker.ID, area.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].Content != "Hello" || history[1].Content != "Hi there" {
		t.Fatalf("expected chronological order, got %q then %q", history[0].Content, history[1].Content)
	}
	if history[0].SenderName != "Acme Ltd" {
		t.Fatalf("expected company name as sender, got %q", history[0].SenderName)
	}
}

func TestListChatAreasScopedByRole(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	company := seedCompany(t, db, "company@acme.test")
	seeker := seedJobSeeker(t, db, "seeker@mail.test")
	bystander := seedJobSeeker(t, db, "bystander@mail.test")
	post := seedJobPost(t, db, company.ID, time.Now().Add(48*time.Hour), true)

	if _, err := svc.Apply(ctx, ApplyInput{JobSeekerID: seeker.ID, JobPostID: post.ID}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	companyAreas, err := svc.ListChatAreas(ctx, company.ID, database.RoleCompany)
	if err != nil {
		t.Fatalf("list company areas: %v", err)
	}
	if len(companyAreas) != 1 {
		t.Fatalf("expected 1 area for company, got %d", len(companyAreas))
	}

	seekerAreas, err := svc.ListChatAreas(ctx, seeker.ID, database.RoleJobSeeker)
	if err != nil {
		t.Fatalf("list seeker areas: %v", err)
	}
	if len(seekerAreas) != 1 {
		t.Fatalf("expected 1 area for seeker, got %d", len(seekerAreas))
	}

	bystanderAreas, err := svc.ListChatAreas(ctx, bystander.ID, database.RoleJobSeeker)
	if err != nil {
		t.Fatalf("list bystander areas: %v", err)
	}
	if len(bystanderAreas) != 0 {
		t.Fatalf("expected no areas for bystander, got %d", len(bystanderAreas))
	}
}
