package models

import "gorm.io/gorm"

func Init(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &MemoryLane{}, &Memory{})
}
