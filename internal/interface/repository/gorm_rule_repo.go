package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"donorcast-service/internal/domain/entity"
	"donorcast-service/internal/domain/repository"
)

// GormRuleRepository implements the RuleRepository interface on PostgreSQL.
// Follow-up rules are operator-managed configuration, so they live in the
// relational store rather than alongside the event stream.
type GormRuleRepository struct {
	db *gorm.DB
}

// NewGormRuleRepository creates a new GORM rule repository
func NewGormRuleRepository(db *gorm.DB) (repository.RuleRepository, error) {
	if err := db.AutoMigrate(&FollowUpRuleRow{}); err != nil {
		return nil, err
	}
	return &GormRuleRepository{
		db: db,
	}, nil
}

// FollowUpRuleRow GORM model for database mapping
type FollowUpRuleRow struct {
	ID               string `gorm:"primaryKey;column:id"`
	Name             string `gorm:"column:name"`
	NoReplyAfterDays int    `gorm:"column:no_reply_after_days"`
	MaxFollowUps     int    `gorm:"column:max_follow_ups"`
	SentimentFilter  string `gorm:"column:sentiment_filter"`
	TemplateID       string `gorm:"column:template_id"`
	Enabled          bool   `gorm:"column:enabled;index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName overrides the default table name
func (FollowUpRuleRow) TableName() string {
	return "m_followup_rules"
}

func (row *FollowUpRuleRow) toEntity() *entity.FollowUpRule {
	var filter []string
	if row.SentimentFilter != "" {
		filter = strings.Split(row.SentimentFilter, ",")
	}
	return &entity.FollowUpRule{
		ID:   row.ID,
		Name: row.Name,
		Conditions: entity.FollowUpConditions{
			NoReplyAfterDays: row.NoReplyAfterDays,
			MaxFollowUps:     row.MaxFollowUps,
			SentimentFilter:  filter,
		},
		TemplateID: row.TemplateID,
		Enabled:    row.Enabled,
	}
}

func toRow(rule *entity.FollowUpRule) *FollowUpRuleRow {
	return &FollowUpRuleRow{
		ID:               rule.ID,
		Name:             rule.Name,
		NoReplyAfterDays: rule.Conditions.NoReplyAfterDays,
		MaxFollowUps:     rule.Conditions.MaxFollowUps,
		SentimentFilter:  strings.Join(rule.Conditions.SentimentFilter, ","),
		TemplateID:       rule.TemplateID,
		Enabled:          rule.Enabled,
	}
}

// Save upserts a rule
func (r *GormRuleRepository) Save(ctx context.Context, rule *entity.FollowUpRule) error {
	result := r.db.WithContext(ctx).Save(toRow(rule))
	return result.Error
}

// FindByID finds a rule by ID
func (r *GormRuleRepository) FindByID(ctx context.Context, id string) (*entity.FollowUpRule, error) {
	var row FollowUpRuleRow
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&row)
	if result.Error != nil {
		return nil, result.Error
	}
	return row.toEntity(), nil
}

// FindEnabled returns every enabled rule
func (r *GormRuleRepository) FindEnabled(ctx context.Context) ([]*entity.FollowUpRule, error) {
	var rows []FollowUpRuleRow
	result := r.db.WithContext(ctx).Where("enabled = ?", true).Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	rules := make([]*entity.FollowUpRule, 0, len(rows))
	for i := range rows {
		rules = append(rules, rows[i].toEntity())
	}
	return rules, nil
}
