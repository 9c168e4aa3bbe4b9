package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserRole 区分求职者账号与企业账号。
type UserRole string

const (
	RoleJobSeeker UserRole = "JOB_SEEKER"
	RoleCompany   UserRole = "COMPANY"
)

// ProfileType 表示求职者的参与方式。
const (
	ProfileTypeEmployable    = "EMPLOYABLE"
	ProfileTypeVirtualIntern = "VIRTUAL_INTERN"
)

// ApplicationStatus 表示投递记录的处理状态，只向前推进。
type ApplicationStatus string

const (
	ApplicationNotViewed          ApplicationStatus = "NOT_VIEWED"
	ApplicationViewed             ApplicationStatus = "VIEWED"
	ApplicationShortlisted        ApplicationStatus = "SHORTLISTED"
	ApplicationInterviewScheduled ApplicationStatus = "INTERVIEW_SCHEDULED"
	ApplicationRejected           ApplicationStatus = "REJECTED"
	ApplicationAccepted           ApplicationStatus = "ACCEPTED"
)

// InvitationStatus 表示企业邀约的状态。
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
	InvitationDeclined InvitationStatus = "DECLINED"
)

// 通知类型。
const (
	NotificationApplication       = "APPLICATION"
	NotificationApplicationStatus = "APPLICATION_STATUS"
	NotificationSubscription      = "SUBSCRIPTION"
	NotificationInvitation        = "INVITATION"
	NotificationJobShared         = "JOB_SHARED"
)

// User 表示系统中的账号，邮箱与手机号全局唯一。
type User struct {
	gorm.Model
	Email              string         `gorm:"uniqueIndex;size:255"`
	Phone              string         `gorm:"uniqueIndex;size:32"`
	PasswordHash       string         `gorm:"size:255"`
	Role               UserRole       `gorm:"size:16;index"`
	FirstName          string         `gorm:"size:64"`
	LastName           string         `gorm:"size:64"`
	CompanyName        string         `gorm:"size:255"`
	Points             int            `gorm:"default:0"`
	SubscriptionStatus string         `gorm:"size:16;default:INACTIVE"`
	VerificationStatus string         `gorm:"size:16;default:PENDING"`
	PrivacySettings    datatypes.JSON `gorm:"type:jsonb"`
}

// FullName 返回用于展示的名称，企业账号优先使用企业名。
func (u User) FullName() string {
	if u.Role == RoleCompany {
		return u.CompanyName
	}
	return u.FirstName + " " + u.LastName
}

// JobSeekerProfile 表示求职者资料，每个求职者账号至多一份。
type JobSeekerProfile struct {
	gorm.Model
	UserID         uint           `gorm:"uniqueIndex"`
	ProfileType    string         `gorm:"size:32"`
	Bio            string         `gorm:"type:text"`
	Skills         datatypes.JSON `gorm:"type:jsonb"` // JSON 数组
	Education      string         `gorm:"type:text"`
	Experience     string         `gorm:"type:text"`
	Certifications string         `gorm:"type:text"`
	Portfolio      string         `gorm:"size:512"`
	Visibility     string         `gorm:"size:16;default:PRIVATE"`
}

// CompanyProfile 表示企业资料，每个企业账号至多一份。
type CompanyProfile struct {
	gorm.Model
	UserID                uint   `gorm:"uniqueIndex"`
	Industry              string `gorm:"size:128"`
	CompanySize           string `gorm:"size:32"`
	EstablishmentYear     int
	Description           string `gorm:"type:text"`
	Address               string `gorm:"size:255"`
	Website               string `gorm:"size:255"`
	Linkedin              string `gorm:"size:255"`
	ContactPersonName     string `gorm:"size:128"`
	ContactPersonPosition string `gorm:"size:128"`
	Logo                  string `gorm:"size:512"`
}

// JobPost 表示企业发布的职位。截止后或下线后不再接受投递；
// 存在投递记录时删除会降级为停用。
type JobPost struct {
	gorm.Model
	CompanyID           uint   `gorm:"index"`
	Title               string `gorm:"size:255"`
	Description         string `gorm:"type:text"`
	Industry            string `gorm:"size:128"`
	JobType             string `gorm:"size:64"`
	Location            string `gorm:"size:255"`
	ExperienceLevel     string `gorm:"size:64"`
	SalaryMin           *int
	SalaryMax           *int
	Requirements        datatypes.JSON `gorm:"type:jsonb"`
	SkillsRequired      datatypes.JSON `gorm:"type:jsonb"`
	Benefits            datatypes.JSON `gorm:"type:jsonb"`
	ApplicationDeadline time.Time      `gorm:"index"`
	HasChatArea         bool           `gorm:"default:false"`
	IsRemote            bool           `gorm:"default:false"`
	IsActive            bool           `gorm:"default:true;index"`
}

// Resume 表示求职者的简历，可以是结构化内容或上传的文件。
// Custom 标记为随投递创建的一次性简历。
type Resume struct {
	gorm.Model
	UserID     uint           `gorm:"index"`
	Title      string         `gorm:"size:255"`
	Summary    string         `gorm:"type:text"`
	Experience string         `gorm:"type:text"`
	Education  string         `gorm:"type:text"`
	Skills     datatypes.JSON `gorm:"type:jsonb"`
	ObjectKey  string         `gorm:"size:512"` // MinIO 对象键，上传文件时填写
	Custom     bool           `gorm:"default:false"`
}

// JobApplication 表示一次投递，(job_post_id, job_seeker_id) 唯一。
type JobApplication struct {
	gorm.Model
	JobPostID   uint              `gorm:"uniqueIndex:idx_application_post_seeker"`
	JobSeekerID uint              `gorm:"uniqueIndex:idx_application_post_seeker"`
	ResumeID    *uint             `gorm:"index"`
	CoverLetter string            `gorm:"type:text"`
	Status      ApplicationStatus `gorm:"size:32;default:NOT_VIEWED"`
}

// CompanySubscription 表示企业与求职者的订阅关系，
// (company_id, job_seeker_id, profile_type) 唯一。
type CompanySubscription struct {
	gorm.Model
	CompanyID   uint   `gorm:"uniqueIndex:idx_subscription_triple"`
	JobSeekerID uint   `gorm:"uniqueIndex:idx_subscription_triple"`
	ProfileType string `gorm:"size:32;uniqueIndex:idx_subscription_triple"`
}

// Invitation 表示企业向求职者发出的订阅邀约，30 天后过期。
// 同一 (company, job_seeker, profile_type) 至多一条 PENDING 记录，
// 由部分唯一索引保证（见 EnsurePendingInvitationIndex）。
type Invitation struct {
	gorm.Model
	CompanyID   uint             `gorm:"index"`
	JobSeekerID uint             `gorm:"index"`
	ProfileType string           `gorm:"size:32"`
	Message     string           `gorm:"type:text"`
	Status      InvitationStatus `gorm:"size:16;default:PENDING"`
	ExpiresAt   time.Time
}

// Notification 表示站内通知，创建后只允许翻转已读标记。
type Notification struct {
	gorm.Model
	UserID    uint   `gorm:"index"`
	Title     string `gorm:"size:255"`
	Message   string `gorm:"type:text"`
	Kind      string `gorm:"size:32"`
	RelatedID uint
	IsRead    bool `gorm:"default:false;index"`
}

// ChatArea 表示职位专属的沟通区，随启用聊天的职位创建。
type ChatArea struct {
	gorm.Model
	JobPostID uint `gorm:"uniqueIndex"`
	CompanyID uint `gorm:"index"`
}

// ChatParticipant 表示沟通区成员，(chat_area_id, user_id) 唯一。
// 成员资格是派生数据：企业始终在场，求职者在投递被接受后加入。
type ChatParticipant struct {
	gorm.Model
	ChatAreaID uint `gorm:"uniqueIndex:idx_chat_participant"`
	UserID     uint `gorm:"uniqueIndex:idx_chat_participant"`
}

// ChatMessage 表示沟通区内的一条消息。
type ChatMessage struct {
	gorm.Model
	ChatAreaID uint   `gorm:"index"`
	UserID     uint   `gorm:"index"`
	Content    string `gorm:"type:text"`
}

// LoginSession 记录一次登录，用于登录活动审计。
type LoginSession struct {
	gorm.Model
	UserID    uint   `gorm:"index"`
	IPAddress string `gorm:"size:64"`
	UserAgent string `gorm:"size:255"`
	IsActive  bool   `gorm:"default:true"`
}

// AllModels 返回需要迁移的全部实体。
func AllModels() []any {
	return []any{
		&User{},
		&JobSeekerProfile{},
		&CompanyProfile{},
		&JobPost{},
		&Resume{},
		&JobApplication{},
		&CompanySubscription{},
		&Invitation{},
		&Notification{},
		&ChatArea{},
		&ChatParticipant{},
		&ChatMessage{},
		&LoginSession{},
	}
}

// EnsurePendingInvitationIndex 创建 PENDING 邀约的部分唯一索引。
// 并发的重复邀约依赖该约束兜底，应用层的预检查只负责报错信息。
func EnsurePendingInvitationIndex(db *gorm.DB) error {
	return db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_invitation_pending
		 ON invitations (company_id, job_seeker_id, profile_type)
		 WHERE status = 'PENDING' AND deleted_at IS NULL`,
	).Error
}
