package repository

import (
	"context"

	"gorm.io/gorm"
)

// GormCalendarRepository holds the operator-managed holiday calendar used by
// the business-hours snapping. Like follow-up rules, holidays are relational
// configuration rather than event data.
type GormCalendarRepository struct {
	db *gorm.DB
}

// NewGormCalendarRepository creates a new GORM calendar repository
func NewGormCalendarRepository(db *gorm.DB) (*GormCalendarRepository, error) {
	if err := db.AutoMigrate(&BusinessHolidayRow{}); err != nil {
		return nil, err
	}
	return &GormCalendarRepository{
		db: db,
	}, nil
}

// BusinessHolidayRow GORM model for database mapping
type BusinessHolidayRow struct {
	ID   uint   `gorm:"primaryKey;column:id;autoIncrement"`
	Date string `gorm:"column:holiday_date;uniqueIndex"`
	Name string `gorm:"column:name"`
}

// TableName specifies the table name for BusinessHolidayRow
func (BusinessHolidayRow) TableName() string {
	return "m_business_holidays"
}

// Holidays returns every holiday date as YYYY-MM-DD strings
func (r *GormCalendarRepository) Holidays(ctx context.Context) ([]string, error) {
	var rows []BusinessHolidayRow
	if err := r.db.WithContext(ctx).Order("holiday_date asc").Find(&rows).Error; err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(rows))
	for _, row := range rows {
		dates = append(dates, row.Date)
	}
	return dates, nil
}

// AddHoliday inserts a holiday date, ignoring duplicates
func (r *GormCalendarRepository) AddHoliday(ctx context.Context, date, name string) error {
	row := BusinessHolidayRow{Date: date, Name: name}
	result := r.db.WithContext(ctx).
		Where(BusinessHolidayRow{Date: date}).
		FirstOrCreate(&row)
	return result.Error
}
