package workflow

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"joblink/internal/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(database.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	notifier := NewNotifier(db, nil, nil)
	return NewService(db, notifier, nil), db
}

func seedCompany(t *testing.T, db *gorm.DB, email string) database.User {
	t.Helper()
	user := database.User{
		Email:       email,
		Phone:       email,
		Role:        database.RoleCompany,
		CompanyName: "Acme Ltd",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}
	return user
}

func seedJobSeeker(t *testing.T, db *gorm.DB, email string) database.User {
	t.Helper()
	user := database.User{
		Email:     email,
		Phone:     email,
		Role:      database.RoleJobSeeker,
		FirstName: "Jane",
		LastName:  "Doe",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed jobseeker: %v", err)
	}
	return user
}

func seedJobSeekerProfile(t *testing.T, db *gorm.DB, userID uint) database.JobSeekerProfile {
	t.Helper()
	profile := database.JobSeekerProfile{
		UserID:      userID,
		ProfileType: database.ProfileTypeEmployable,
	}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	return profile
}

func seedJobPost(t *testing.T, db *gorm.DB, companyID uint, deadline time.Time, hasChat bool) database.JobPost {
	t.Helper()
	post := database.JobPost{
		CompanyID:           companyID,
		Title:               "Backend Engineer",
		Description:         "Build things",
		Industry:            "Tech",
		JobType:             "FULL_TIME",
		ApplicationDeadline: deadline,
		HasChatArea:         hasChat,
		IsActive:            true,
	}
	if err := db.Create(&post).Error; err != nil {
		t.Fatalf("seed job post: %v", err)
	}
	if hasChat {
		area := database.ChatArea{JobPostID: post.ID, CompanyID: companyID}
		if err := db.Create(&area).Error; err != nil {
			t.Fatalf("seed chat area: %v", err)
		}
		participant := database.ChatParticipant{ChatAreaID: area.ID, UserID: companyID}
		if err := db.Create(&participant).Error; err != nil {
			t.Fatalf("seed chat participant: %v", err)
		}
	}
	return post
}

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("expected kind %v, got %v (%v)", kind, got, err)
	}
}
