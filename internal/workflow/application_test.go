package workflow

import (
	"context"
	"testing"
	"time"

	"joblink/internal/database"
)

func TestApplyCreatesApplicationAndNotifiesCompany(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	company := seedCompany(t, db, "company@acme.test")
	seeker := seedJobSeeker(t, db, "seeker@mail.test")
	post := seedJobPost(t, db, company.ID, time.Now().Add(48*time.Hour), false)

	app, err := svc.Apply(ctx, ApplyInput{JobSeekerID: seeker.ID, JobPostID: post.ID})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if app.Status != database.ApplicationNotViewed {
		t.Fatalf("expected initial status NOT_VIEWED, got %s", app.Status)
	}

	var notification database.Notification
	if err := db.Where("user_id = ? AND kind = ?", company.ID, database.NotificationApplication).
		First(&notification).Error; err != nil {
		t.Fatalf("expected company notification: %v", err)
	}
}

func TestApplyRejectsDuplicate(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	company := seedCompany(t, db, "company@acme.test")
	seeker := seedJobSeeker(t, db, "seeker@mail.test")
	post := seedJobPost(t, db, company.ID, time.Now().Add(48*time.Hour), false)

	if _, err := svc.Apply(ctx, ApplyInput{JobSeekerID: seeker.ID, JobPostID: post.ID}); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	_, err := svc.Apply(ctx, ApplyInput{JobSeekerID: seeker.ID, JobPostID: post.ID})
	wantKind(t, err, KindConflict)
}

func TestApplyRejectsExpiredJobPost(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	company := seedCompany(t, db, "company@acme.test")
	seeker := seedJobSeeker(t, db, "seeker@mail.test")
	post := seedJobPost(t, db, company.ID, time.Now().Add(-time.Hour), false)

	_, err := svc.Apply(ctx, ApplyInput{JobSeekerID: seeker.ID, JobPostID: post.ID})
	wantKind(t, err, KindNotFound)
}

func TestApplyRejectsForeignResume(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	company := seedCompany(t, db, "company@acme.test")
	seeker := seedJobSeeker(t, db, "seeker@mail.test")
	other := seedJobSeeker(t, db, "other@mail.test")
	post := seedJobPost(t, db, company.ID, time.Now().Add(48*time.Hour), false)

	resume := database.Resume{UserID: other.ID, Title: "CV"}
	if err := db.Create(&resume).Error; err != nil {
		t.Fatalf("seed resume: %v", err)
	}

	_, err := svc.Apply(ctx, ApplyInput{JobSeekerID: seeker.ID, JobPostID: post.ID, ResumeID: &resume.ID})
	wantKind(t, err, KindValidation)
}

func TestApplyEnrollsSeekerInChatArea(t *testing.T) {
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
	var participant database.ChatParticipant
	if err := db.Where("chat_area_id = ? AND user_id = ?", area.ID, seeker.ID).
		First(&participant).Error; err != nil {
		t.Fatalf("expected seeker enrolled in chat area: %v", err)
	}
}

func TestUpdateApplicantStatusRejectsInvalidStatus(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	company := seedCompany(t, db, "company@acme.test")
	_, err := svc.UpdateApplicantStatus(ctx, company.ID, 1, database.ApplicationNotViewed)
	wantKind(t, err, KindValidation)
}

func TestUpdateApplicantStatusHidesForeignApplications(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	owner := seedCompany(t, db, "owner@acme.test")
	intruder := seedCompany(t, db, "intruder@acme.test")
	seeker := seedJobSeeker(t, db, "seeker@mail.test")
	post := seedJobPost(t, db, owner.ID, time.Now().Add(48*time.Hour), false)

	app, err := svc.Apply(ctx, ApplyInput{JobSeekerID: seeker.ID, JobPostID: post.ID})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	_, err = svc.UpdateApplicantStatus(ctx, intruder.ID, app.ID, database.ApplicationViewed)
	wantKind(t, err, KindNotFound)
}

func TestUpdateApplicantStatusAcceptedEnrollsAndNotifies(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	company := seedCompany(t, db, "company@acme.test")
	seeker := seedJobSeeker(t, db, "seeker@mail.test")
	post := seedJobPost(t, db, company.ID, time.Now().Add(48*time.Hour), true)

	app, err := svc.Apply(ctx, ApplyInput{JobSeekerID: seeker.ID, JobPostID: post.ID})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	updated, err := svc.UpdateApplicantStatus(ctx, company.ID, app.ID, database.ApplicationAccepted)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != database.ApplicationAccepted {
		t.Fatalf("expected ACCEPTED, got %s", updated.Status)
	}

	// 求职者在投递时已入沟通区，接受后重复入场必须保持幂等。
	var area database.ChatArea
	if err := db.Where("job_post_id = ?", post.ID).First(&area).Error; err != nil {
		t.Fatalf("load chat area: %v", err)
	}
	var count int64
	db.Model(&database.ChatParticipant{}).
		Where("chat_area_id = ? AND user_id = ?", area.ID, seeker.ID).
		Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one participant row, got %d", count)
	}

	var notification database.Notification
	if err := db.Where("user_id = ? AND kind = ?", seeker.ID, database.NotificationApplicationStatus).
		First(&notification).Error; err != nil {
		t.Fatalf("expected status notification: %v", err)
	}
}
