package workflow

import (
	"context"
	"testing"
	"time"

	"joblink/internal/database"
)

func TestSubscribeRequiresProfile(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	company := seedCompany(t, db, "company@acme.test")
	seeker := seedJobSeeker(t, db, "seeker@mail.test")

	_, err := svc.Subscribe(ctx, seeker.ID, company.ID, database.ProfileTypeEmployable)
	wantKind(t, err, KindValidation)
}

func TestSubscribeRejectsInvalidProfileType(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	company := seedCompany(t, db, "company@acme.test")
	seeker := seedJobSeeker(t, db, "seeker@mail.test")
	seedJobSeekerProfile(t, db, seeker.ID)

	_, err := svc.Subscribe(ctx, seeker.ID, company.ID, "CONSULTANT")
	wantKind(t, err, KindValidation)
}

func TestSubscribeRejectsDuplicate(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	company := seedCompany(t, db, "company@acme.test")
	seeker := seedJobSeeker(t, db, "seeker@mail.test")
	seedJobSeekerProfile(t, db, seeker.ID)

	if _, err := svc.Subscribe(ctx, seeker.ID, company.ID, database.ProfileTypeEmployable); err != nil {
		t.Fatalf("first subscribe: %v", err)
	}
	_, err := svc.Subscribe(ctx, seeker.ID, company.ID, database.ProfileTypeEmployable)
	wantKind(t, err, KindConflict)
}

func TestSubscribeNotifiesCompany(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	company := seedCompany(t, db, "company@acme.test")
	seeker := seedJobSeeker(t, db, "seeker@mail.test")
	seedJobSeekerProfile(t, db, seeker.ID)

	if _, err := svc.Subscribe(ctx, seeker.ID, company.ID, database.ProfileTypeVirtualIntern); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	var notification database.Notification
	if err := db.Where("user_id = ? AND kind = ?", company.ID, database.NotificationSubscription).
		First(&notification).Error; err != nil {
		t.Fatalf("expected subscription notification: %v", err)
	}
}

func TestInviteRejectsPendingDuplicate(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	company := seedCompany(t, db, "company@acme.test")
	seeker := seedJobSeeker(t, db, "seeker@mail.test")

	if _, err := svc.Invite(ctx, company.ID, seeker.ID, database.ProfileTypeEmployable, "join us"); err != nil {
		t.Fatalf("first invite: %v", err)
	}
	_, err := svc.Invite(ctx, company.ID, seeker.ID, database.ProfileTypeEmployable, "join us")
	wantKind(t, err, KindConflict)
}

func TestInviteUnknownJobSeekerNotFound(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	company := seedCompany(t, db, "company@acme.test")
	_, err := svc.Invite(ctx, company.ID, 999, database.ProfileTypeEmployable, "")
	wantKind(t, err, KindNotFound)
}

func TestAcceptInvitationCreatesSubscription(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	company := seedCompany(t, db, "company@acme.test")
	seeker := seedJobSeeker(t, db, "seeker@mail.test")

	invitation, err := svc.Invite(ctx, company.ID, seeker.ID, database.ProfileTypeEmployable, "join us")
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	responded, err := svc.RespondToInvitation(ctx, seeker.ID, invitation.ID, ActionAccept)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if responded.Status != database.InvitationAccepted {
		t.Fatalf("expected ACCEPTED, got %s", responded.Status)
	}

	var subscription database.CompanySubscription
	if err := db.Where("company_id = ? AND job_seeker_id = ?", company.ID, seeker.ID).
		First(&subscription).Error; err != nil {
		t.Fatalf("expected subscription created: %v", err)
	}
}

func TestDeclineInvitation(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	company := seedCompany(t, db, "company@acme.test")
	seeker := seedJobSeeker(t, db, "seeker@mail.test")

	invitation, err := svc.Invite(ctx, company.ID, seeker.ID, database.ProfileTypeEmployable, "")
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	responded, err := svc.RespondToInvitation(ctx, seeker.ID, invitation.ID, ActionDecline)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if responded.Status != database.InvitationDeclined {
		t.Fatalf("expected DECLINED, got %s", responded.Status)
	}

	var count int64
	db.Model(&database.CompanySubscription{}).Count(&count)
	if count != 0 {
		t.Fatalf("decline must not create subscriptions, got %d", count)
	}
}

func TestRespondTwiceNotFound(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	company := seedCompany(t, db, "company@acme.test")
	seeker := seedJobSeeker(t, db, "seeker@mail.test")

	invitation, err := svc.Invite(ctx, company.ID, seeker.ID, database.ProfileTypeEmployable, "")
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if _, err := svc.RespondToInvitation(ctx, seeker.ID, invitation.ID, ActionDecline); err != nil {
		t.Fatalf("first respond: %v", err)
	}

	_, err = svc.RespondToInvitation(ctx, seeker.ID, invitation.ID, ActionAccept)
	wantKind(t, err, KindNotFound)
}

func TestRespondInvalidAction(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.RespondToInvitation(context.Background(), 1, 1, "maybe")
	wantKind(t, err, KindValidation)
}

func TestRespondExpiredInvitationNotFound(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	company := seedCompany(t, db, "company@acme.test")
	seeker := seedJobSeeker(t, db, "seeker@mail.test")

	invitation := database.Invitation{
		CompanyID:   company.ID,
		JobSeekerID: seeker.ID,
		ProfileType: database.ProfileTypeEmployable,
		Status:      database.InvitationPending,
		ExpiresAt:   time.Now().Add(-time.Hour),
	}
	if err := db.Create(&invitation).Error; err != nil {
		t.Fatalf("seed invitation: %v", err)
	}

	_, err := svc.RespondToInvitation(ctx, seeker.ID, invitation.ID, ActionAccept)
	wantKind(t, err, KindNotFound)

	// 过期邀约不回写状态，保持 PENDING。
	var reloaded database.Invitation
	if err := db.First(&reloaded, invitation.ID).Error; err != nil {
		t.Fatalf("reload invitation: %v", err)
	}
	if reloaded.Status != database.InvitationPending {
		t.Fatalf("expected PENDING, got %s", reloaded.Status)
	}
}
