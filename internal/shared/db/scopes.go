package db

import (
	"time"

	"gorm.io/gorm"

	"github.com/OliSalles/StoryTeller/internal/shared/constants"
)

// Paginate applies LIMIT/OFFSET, clamping page and pageSize to sane bounds.
func Paginate(page, pageSize int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page < 1 {
			page = constants.DefaultPage
		}
		if pageSize < 1 {
			pageSize = constants.DefaultPageSize
		}
		if pageSize > constants.MaxPageSize {
			pageSize = constants.MaxPageSize
		}
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	}
}

// CreatedBetween filters on created_at; zero bounds are ignored.
func CreatedBetween(from, to time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if !from.IsZero() {
			db = db.Where("created_at >= ?", from)
		}
		if !to.IsZero() {
			db = db.Where("created_at <= ?", to)
		}
		return db
	}
}
