package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"joblink/internal/database"
	"joblink/internal/session"
)

func requestAs(t *testing.T, db *gorm.DB, userID uint, handler gin.HandlerFunc, method, path string, params gin.Params) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, nil)
	c.Params = params
	c.Set("actor", session.Session{UserID: userID, Role: database.RoleJobSeeker})
	handler(c)
	return w
}

func TestMarkReadEnforcesOwnership(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewNotificationHandler(db, nil, true)

	notification := database.Notification{
		UserID:  1,
		Title:   "New Job Application",
		Message: "New application received for Backend Engineer",
		Kind:    database.NotificationApplication,
	}
	if err := db.Create(&notification).Error; err != nil {
		t.Fatalf("seed notification: %v", err)
	}

	params := gin.Params{{Key: "id", Value: "1"}}

	// 他人的通知按不存在处理。
	w := requestAs(t, db, 2, h.MarkRead, http.MethodPatch, "/api/notifications/1/read", params)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign notification, got %d", w.Code)
	}

	w = requestAs(t, db, 1, h.MarkRead, http.MethodPatch, "/api/notifications/1/read", params)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}

	var reloaded database.Notification
	if err := db.First(&reloaded, notification.ID).Error; err != nil {
		t.Fatalf("reload notification: %v", err)
	}
	if !reloaded.IsRead {
		t.Fatal("expected notification marked read")
	}
}

func TestMarkAllRead(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewNotificationHandler(db, nil, true)

	for i := 0; i < 3; i++ {
		n := database.Notification{UserID: 1, Kind: database.NotificationInvitation, Title: "New Company Invitation"}
		if err := db.Create(&n).Error; err != nil {
			t.Fatalf("seed notification: %v", err)
		}
	}
	other := database.Notification{UserID: 2, Kind: database.NotificationInvitation, Title: "New Company Invitation"}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("seed other notification: %v", err)
	}

	w := requestAs(t, db, 1, h.MarkAllRead, http.MethodPatch, "/api/notifications/read-all", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var unread int64
	db.Model(&database.Notification{}).Where("user_id = ? AND is_read = ?", 1, false).Count(&unread)
	if unread != 0 {
		t.Fatalf("expected all read for user 1, got %d unread", unread)
	}
	db.Model(&database.Notification{}).Where("user_id = ? AND is_read = ?", 2, false).Count(&unread)
	if unread != 1 {
		t.Fatalf("other user's notifications must be untouched, got %d unread", unread)
	}
}
