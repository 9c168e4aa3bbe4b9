package workflow

import (
	"context"
	"testing"
	"time"

	"joblink/internal/database"
)

func TestCreateJobPostRequiresFields(t *testing.T) {
	svc, db := newTestService(t)
	company := seedCompany(t, db, "company@acme.test")

	_, err := svc.CreateJobPost(context.Background(), company.ID, JobPostInput{
		Title:               "Backend Engineer",
		ApplicationDeadline: time.Now().Add(time.Hour),
	})
	wantKind(t, err, KindValidation)
}

func TestCreateJobPostRejectsPastDeadline(t *testing.T) {
	svc, db := newTestService(t)
	company := seedCompany(t, db, "company@acme.test")

	_, err := svc.CreateJobPost(context.Background(), company.ID, JobPostInput{
		Title:               "Backend Engineer",
		Description:         "Build things",
		Industry:            "Tech",
		JobType:             "FULL_TIME",
		ApplicationDeadline: time.Now().Add(-time.Hour),
	})
	wantKind(t, err, KindValidation)
}

func TestCreateJobPostWithChatAreaEnrollsCompany(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	company := seedCompany(t, db, "company@acme.test")

	post, err := svc.CreateJobPost(ctx, company.ID, JobPostInput{
		Title:               "Backend Engineer",
		Description:         "Build things",
		Industry:            "Tech",
		JobType:             "FULL_TIME",
		ApplicationDeadline: time.Now().Add(48 * time.Hour),
		HasChatArea:         true,
	})
	if err != nil {
		t.Fatalf("create job post: %v", err)
	}

	var area database.ChatArea
	if err := db.Where("job_post_id = ?", post.ID).First(&area).Error; err != nil {
		t.Fatalf("expected chat area: %v", err)
	}
	var participant database.ChatParticipant
	if err := db.Where("chat_area_id = ? AND user_id = ?", area.ID, company.ID).
		First(&participant).Error; err != nil {
		t.Fatalf("expected company enrolled: %v", err)
	}
}

func TestUpdateJobPostOwnership(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	owner := seedCompany(t, db, "owner@acme.test")
	intruder := seedCompany(t, db, "intruder@acme.test")
	post := seedJobPost(t, db, owner.ID, time.Now().Add(48*time.Hour), false)

	title := "Senior Backend Engineer"
	_, err := svc.UpdateJobPost(ctx, intruder.ID, post.ID, JobPostPatch{Title: &title})
	wantKind(t, err, KindNotFound)

	updated, err := svc.UpdateJobPost(ctx, owner.ID, post.ID, JobPostPatch{Title: &title})
	if err != nil {
		t.Fatalf("update job post: %v", err)
	}
	if updated.Title != title {
		t.Fatalf("expected title %q, got %q", title, updated.Title)
	}
}

func TestDeleteJobPostWithoutApplicationsRemovesIt(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	company := seedCompany(t, db, "company@acme.test")
	post := seedJobPost(t, db, company.ID, time.Now().Add(48*time.Hour), false)

	deactivated, err := svc.DeleteJobPost(ctx, company.ID, post.ID)
	if err != nil {
		t.Fatalf("delete job post: %v", err)
	}
	if deactivated {
		t.Fatal("expected hard delete, got deactivation")
	}

	var count int64
	db.Unscoped().Model(&database.JobPost{}).Where("id = ?", post.ID).Count(&count)
	if count != 0 {
		t.Fatalf("expected job post removed entirely, got %d rows", count)
	}
}

func TestDeleteJobPostWithApplicationsDeactivates(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	company := seedCompany(t, db, "company@acme.test")
	seeker := seedJobSeeker(t, db, "seeker@mail.test")
	post := seedJobPost(t, db, company.ID, time.Now().Add(48*time.Hour), false)

	if _, err := svc.Apply(ctx, ApplyInput{JobSeekerID: seeker.ID, JobPostID: post.ID}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	deactivated, err := svc.DeleteJobPost(ctx, company.ID, post.ID)
	if err != nil {
		t.Fatalf("delete job post: %v", err)
	}
	if !deactivated {
		t.Fatal("expected deactivation, got hard delete")
	}

	var reloaded database.JobPost
	if err := db.First(&reloaded, post.ID).Error; err != nil {
		t.Fatalf("reload job post: %v", err)
	}
	if reloaded.IsActive {
		t.Fatal("expected job post deactivated")
	}
	var appCount int64
	db.Model(&database.JobApplication{}).Where("job_post_id = ?", post.ID).Count(&appCount)
	if appCount != 1 {
		t.Fatalf("applications must survive deactivation, got %d", appCount)
	}
}
