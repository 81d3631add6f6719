package storage

import (
	"time"

	"p4son/internal/domain"
)

// AliasModel is the GORM model for the aliases table
type AliasModel struct {
	Changelist int64  `gorm:"not null"`
	CreatedAt  time.Time
	Name       string `gorm:"primaryKey"`
	UpdatedAt  time.Time
}

// TableName specifies the table name for GORM
func (AliasModel) TableName() string { return "aliases" }

// aliasModelToDomain converts an AliasModel (GORM) to domain.Alias
func aliasModelToDomain(m AliasModel) domain.Alias {
	return domain.Alias{
		Name:       m.Name,
		Changelist: domain.ChangelistPosition(m.Changelist),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
