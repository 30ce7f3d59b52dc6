package project

import "time"

type Project struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Description string    `gorm:"column:description;not null"`
	Tier        string    `gorm:"column:tier;not null;index"`
	AccessLevel string    `gorm:"column:access_level;not null"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (Project) TableName() string {
	return "projects"
}
