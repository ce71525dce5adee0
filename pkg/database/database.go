package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kestrel-labs/promptforge/pkg/models"
)

// Config holds the database connection settings.
type Config struct {
	Type       string `yaml:"type"` // "postgres" or "sqlite"
	Connection string `yaml:"connection"`
	MaxConns   int    `yaml:"max_conns"`
	LogLevel   string `yaml:"log_level"`
}

// DB wraps the GORM connection with the query surface the classification
// core needs: plain CRUD plus the exact-hash lookup (GetPromptByHash),
// centroid loads (AllCentroids) and member recounts (RecountFamilyMembers)
// that the ingest and assigner packages call. Near-duplicate search itself
// lives in pkg/dedup's in-memory index.
type DB struct {
	*gorm.DB
}

// New opens a database connection per cfg.
func New(cfg *Config) (*DB, error) {
	var dialector gorm.Dialector

	switch cfg.Type {
	case "postgres":
		dialector = postgres.Open(cfg.Connection)
	case "sqlite":
		dialector = sqlite.Open(cfg.Connection)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	logLevel := logger.Silent
	switch cfg.LogLevel {
	case "info":
		logLevel = logger.Info
	case "warn":
		logLevel = logger.Warn
	case "error":
		logLevel = logger.Error
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if cfg.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConns)
		sqlDB.SetMaxIdleConns(cfg.MaxConns / 2)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &DB{DB: db}, nil
}

// AutoMigrate brings the schema up to date with pkg/models.
func (db *DB) AutoMigrate() error {
	return db.DB.AutoMigrate(
		&models.Prompt{},
		&models.Family{},
		&models.Template{},
		&models.LineageEdge{},
	)
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetPromptByHash returns the prompt with the given exact dedup hash, or
// gorm.ErrRecordNotFound.
func (db *DB) GetPromptByHash(hash string) (*models.Prompt, error) {
	var p models.Prompt
	err := db.Where("dedup_hash = ?", hash).First(&p).Error
	return &p, err
}

// GetPromptByID returns a prompt by its primary key.
func (db *DB) GetPromptByID(id uuid.UUID) (*models.Prompt, error) {
	var p models.Prompt
	err := db.Where("id = ?", id).First(&p).Error
	return &p, err
}

// CreatePrompt persists a new prompt row.
func (db *DB) CreatePrompt(p *models.Prompt) error {
	return db.Create(p).Error
}

// AllFingerprints returns every (id, simhash) pair currently stored, used to
// rebuild the in-memory dedup index at process start.
func (db *DB) AllFingerprints() ([]models.Prompt, error) {
	var prompts []models.Prompt
	err := db.Select("id", "simhash", "dedup_hash", "normalized_text").Find(&prompts).Error
	return prompts, err
}

// PendingPrompts returns up to limit prompts lacking an embedding or a
// family, ordered by creation time (oldest first), per the assigner's
// within-tick ordering guarantee.
func (db *DB) PendingPrompts(limit int) ([]models.Prompt, error) {
	q := db.Where("embedding_vector IS NULL OR family_id IS NULL").Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var prompts []models.Prompt
	err := q.Find(&prompts).Error
	return prompts, err
}

// CountPending returns the number of prompts lacking an embedding or family.
func (db *DB) CountPending() (int64, error) {
	var count int64
	err := db.Model(&models.Prompt{}).
		Where("embedding_vector IS NULL OR family_id IS NULL").
		Count(&count).Error
	return count, err
}

// CountAssigned returns the number of prompts currently attached to a
// family, used for the assigner's bootstrap gate.
func (db *DB) CountAssigned() (int64, error) {
	var count int64
	err := db.Model(&models.Prompt{}).Where("family_id IS NOT NULL").Count(&count).Error
	return count, err
}

// UpdatePromptEmbeddingAndFamily persists a single prompt's embedding and
// (possibly nil) family assignment atomically, per the assigner's
// per-prompt-commit contract.
func (db *DB) UpdatePromptEmbeddingAndFamily(id uuid.UUID, embedding models.Vector, familyID *uuid.UUID) error {
	return db.Model(&models.Prompt{}).Where("id = ?", id).Updates(map[string]interface{}{
		"embedding_vector": embedding,
		"family_id":        familyID,
	}).Error
}

// AllCentroids returns every family's centroid, keyed by family ID, for the
// incremental assigner's in-memory similarity pass.
func (db *DB) AllCentroids() (map[uuid.UUID]models.Vector, error) {
	var families []models.Family
	if err := db.Where("centroid_vector IS NOT NULL").Find(&families).Error; err != nil {
		return nil, err
	}

	centroids := make(map[uuid.UUID]models.Vector, len(families))
	for _, f := range families {
		if f.HasCentroid() {
			centroids[f.ID] = f.Centroid
		}
	}
	return centroids, nil
}

// GetFamilyByID returns a family by primary key.
func (db *DB) GetFamilyByID(id uuid.UUID) (*models.Family, error) {
	var f models.Family
	err := db.Where("id = ?", id).First(&f).Error
	return &f, err
}

// AllFamilies returns every family ordered by name.
func (db *DB) AllFamilies() ([]models.Family, error) {
	var families []models.Family
	err := db.Order("family_name").Find(&families).Error
	return families, err
}

// RecountFamilyMembers refreshes member_count for every family from the
// prompt store. It runs outside of a full clustering pass by contract
// (§5 — recount must not race with a full pass), so callers serialize
// the two.
func (db *DB) RecountFamilyMembers() error {
	var families []models.Family
	if err := db.Find(&families).Error; err != nil {
		return err
	}

	for _, f := range families {
		var count int64
		if err := db.Model(&models.Prompt{}).Where("family_id = ?", f.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("recount family %s: %w", f.ID, err)
		}
		if err := db.Model(&models.Family{}).Where("id = ?", f.ID).Update("member_count", count).Error; err != nil {
			return fmt.Errorf("persist recount for family %s: %w", f.ID, err)
		}
	}
	return nil
}

// FamilyMembers returns the prompts currently assigned to a family, oldest
// first, capped at limit (0 = unlimited). Used by the template engine to
// sample up to 20 members.
func (db *DB) FamilyMembers(familyID uuid.UUID, limit int) ([]models.Prompt, error) {
	q := db.Where("family_id = ?", familyID).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var prompts []models.Prompt
	err := q.Find(&prompts).Error
	return prompts, err
}

// ActiveTemplate returns the active template for a family, or
// gorm.ErrRecordNotFound if none exists yet.
func (db *DB) ActiveTemplate(familyID uuid.UUID) (*models.Template, error) {
	var tpl models.Template
	err := db.Where("family_id = ? AND is_active = ?", familyID, true).First(&tpl).Error
	return &tpl, err
}

// ClearAllEmbeddings nulls every stored embedding, for the clear-embeddings
// CLI command (model change).
func (db *DB) ClearAllEmbeddings() (int64, error) {
	result := db.Model(&models.Prompt{}).Where("embedding_vector IS NOT NULL").Update("embedding_vector", nil)
	return result.RowsAffected, result.Error
}

// CreateTemplate persists a new template row.
func (db *DB) CreateTemplate(tpl *models.Template) error {
	return db.Create(tpl).Error
}

// DeactivateTemplate flips is_active off for a template, used when the
// template engine inserts the next version in a family's chain.
func (db *DB) DeactivateTemplate(id uuid.UUID) error {
	return db.Model(&models.Template{}).Where("id = ?", id).Update("is_active", false).Error
}

// UpdateFamilyTemplateCheckpoint records memberCount as the family's
// member_count_at_last_template, called once a new template version has
// been persisted (spec.md §4.E.4) so Family.NewMembersSinceTemplate
// resets its baseline to the count as of this extraction.
func (db *DB) UpdateFamilyTemplateCheckpoint(familyID uuid.UUID, memberCount int) error {
	return db.Model(&models.Family{}).Where("id = ?", familyID).Update("member_count_at_last_template", memberCount).Error
}

// CreateFamily persists a new family row, used by a full clustering pass
// when a cluster has no prior family to reuse.
func (db *DB) CreateFamily(f *models.Family) error {
	return db.Create(f).Error
}

// UpdateFamilyCentroid persists a full pass's recomputed centroid and
// member count for an existing family, and bumps its version per
// spec.md §4.C's "update the existing one (centroid, member count,
// incremented version)".
func (db *DB) UpdateFamilyCentroid(id uuid.UUID, centroid models.Vector, memberCount int) error {
	return db.Model(&models.Family{}).Where("id = ?", id).Updates(map[string]interface{}{
		"centroid_vector": centroid,
		"member_count":    memberCount,
		"version":         gorm.Expr("version + 1"),
	}).Error
}

// ApplyClusterPartition reconciles a full clustering pass's label->family
// mapping against the existing partition. creates are brand-new families
// (no prior cluster mapped to them); updates are existing families whose
// centroid/member count a cluster reused, via UpdateFamilyCentroid.
// Families are never deleted here — a family an updated cluster no longer
// maps to simply stops receiving members (spec.md §3: "never deleted;
// orphaned families may end up empty"), and existing Template rows keep
// pointing at a live FamilyID. Runs inside a single transaction so the
// prompt store never observes a partial reassignment.
func (db *DB) ApplyClusterPartition(creates []models.Family, updates []models.Family, assignments map[uuid.UUID]uuid.UUID) error {
	return db.Transaction(func(tx *gorm.DB) error {
		scoped := &DB{tx}
		for i := range creates {
			if err := scoped.CreateFamily(&creates[i]); err != nil {
				return fmt.Errorf("create family: %w", err)
			}
		}
		for _, f := range updates {
			if err := scoped.UpdateFamilyCentroid(f.ID, f.Centroid, f.MemberCount); err != nil {
				return fmt.Errorf("update family %s: %w", f.ID, err)
			}
		}
		for promptID, familyID := range assignments {
			fid := familyID
			if err := tx.Model(&models.Prompt{}).Where("id = ?", promptID).Update("family_id", fid).Error; err != nil {
				return fmt.Errorf("assign prompt %s: %w", promptID, err)
			}
		}
		return nil
	})
}

// AllPromptsWithEmbeddings returns every prompt that has a stored
// embedding, for a full clustering pass.
func (db *DB) AllPromptsWithEmbeddings() ([]models.Prompt, error) {
	var prompts []models.Prompt
	err := db.Where("embedding_vector IS NOT NULL").Order("created_at ASC").Find(&prompts).Error
	return prompts, err
}

// ListPrompts returns up to limit prompts (0 = unlimited), newest first,
// for the `prompts` read-only CLI report.
func (db *DB) ListPrompts(limit int) ([]models.Prompt, error) {
	q := db.Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var prompts []models.Prompt
	err := q.Find(&prompts).Error
	return prompts, err
}

// GetTemplateByID returns a template by its own primary key, for the
// `template <id>` CLI report (as opposed to ActiveTemplate, which looks
// up by family).
func (db *DB) GetTemplateByID(id uuid.UUID) (*models.Template, error) {
	var tpl models.Template
	err := db.Where("id = ?", id).First(&tpl).Error
	return &tpl, err
}

// TemplateHistory returns every template version ever created for a
// family, oldest first, for the `evolve <id>` CLI report.
func (db *DB) TemplateHistory(familyID uuid.UUID) ([]models.Template, error) {
	var templates []models.Template
	err := db.Where("family_id = ?", familyID).Order("major ASC, minor ASC, patch ASC").Find(&templates).Error
	return templates, err
}
