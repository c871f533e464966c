package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/errs"
	"claimflow/internal/infrastructure/persistence/sqlite/model"
	"claimflow/internal/ports"
)

const estimateStatusDraft = "draft"

type ArtifactRepository struct {
	db *gorm.DB
}

func NewArtifactRepository(db *gorm.DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

var _ ports.ArtifactRepository = (*ArtifactRepository)(nil)

func (r *ArtifactRepository) EnsureVehicleValues(ctx context.Context, assessmentID string, now string) (string, bool, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return "", false, err
	}
	return ensureOne(db, assessmentID, func() model.VehicleValues {
		return model.VehicleValues{
			VehicleValuesID: uuid.NewString(),
			AssessmentID:    assessmentID,
			TradeValue:      decimal.Zero,
			MarketValue:     decimal.Zero,
			RetailValue:     decimal.Zero,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
	})
}

func (r *ArtifactRepository) EnsureDamage(ctx context.Context, assessmentID string, now string) (string, bool, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return "", false, err
	}
	return ensureOne(db, assessmentID, func() model.Damage {
		return model.Damage{
			DamageID:     uuid.NewString(),
			AssessmentID: assessmentID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	})
}

func (r *ArtifactRepository) EnsureEstimate(ctx context.Context, assessmentID string, now string) (string, bool, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return "", false, err
	}
	return ensureOne(db, assessmentID, func() model.Estimate {
		return model.Estimate{
			EstimateID:   uuid.NewString(),
			AssessmentID: assessmentID,
			Status:       estimateStatusDraft,
			LabourRate:   decimal.Zero,
			PaintRate:    decimal.Zero,
			VATRate:      decimal.Zero,
			Subtotal:     decimal.Zero,
			Total:        decimal.Zero,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	})
}

func (r *ArtifactRepository) EnsurePreIncidentEstimate(ctx context.Context, assessmentID string, now string) (string, bool, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return "", false, err
	}
	return ensureOne(db, assessmentID, func() model.PreIncidentEstimate {
		return model.PreIncidentEstimate{
			PreIncidentEstimateID: uuid.NewString(),
			AssessmentID:          assessmentID,
			Status:                estimateStatusDraft,
			Total:                 decimal.Zero,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
	})
}

func (r *ArtifactRepository) UpsertTyres(ctx context.Context, assessmentID string, positions []domain.TyrePosition, now string) (map[domain.TyrePosition]string, []domain.TyrePosition, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return nil, nil, err
	}

	proposed := make(map[domain.TyrePosition]string, len(positions))
	if len(positions) > 0 {
		rows := make([]model.Tyre, 0, len(positions))
		for _, p := range positions {
			id := uuid.NewString()
			proposed[p] = id
			rows = append(rows, model.Tyre{
				TyreID:       id,
				AssessmentID: assessmentID,
				Position:     string(p),
				CreatedAt:    now,
				UpdatedAt:    now,
			})
		}
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "assessment_id"}, {Name: "position"}},
			DoNothing: true,
		}).Create(&rows).Error; err != nil {
			return nil, nil, errs.Wrap(err, "insert tyres")
		}
	}

	ids, err := listTyreIDs(db, assessmentID)
	if err != nil {
		return nil, nil, err
	}
	return ids, insertedKeys(positions, proposed, ids), nil
}

func (r *ArtifactRepository) UpsertPhotoAlbums(ctx context.Context, assessmentID string, categories []domain.PhotoCategory, now string) (map[domain.PhotoCategory]string, []domain.PhotoCategory, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return nil, nil, err
	}

	proposed := make(map[domain.PhotoCategory]string, len(categories))
	if len(categories) > 0 {
		rows := make([]model.PhotoAlbum, 0, len(categories))
		for _, c := range categories {
			id := uuid.NewString()
			proposed[c] = id
			rows = append(rows, model.PhotoAlbum{
				AlbumID:      id,
				AssessmentID: assessmentID,
				Category:     string(c),
				CreatedAt:    now,
				UpdatedAt:    now,
			})
		}
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "assessment_id"}, {Name: "category"}},
			DoNothing: true,
		}).Create(&rows).Error; err != nil {
			return nil, nil, errs.Wrap(err, "insert photo albums")
		}
	}

	ids, err := listPhotoAlbumIDs(db, assessmentID)
	if err != nil {
		return nil, nil, err
	}
	return ids, insertedKeys(categories, proposed, ids), nil
}

// insertedKeys reports which keys now carry the id this call proposed; the
// others already existed and kept their row.
func insertedKeys[K comparable](keys []K, proposed map[K]string, stored map[K]string) []K {
	var out []K
	for _, k := range keys {
		if id, ok := stored[k]; ok && id == proposed[k] {
			out = append(out, k)
		}
	}
	return out
}

// GetArtifacts returns whatever subset exists; missing one-to-one artifacts
// leave their id empty.
func (r *ArtifactRepository) GetArtifacts(ctx context.Context, assessmentID string) (domain.ArtifactSet, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return domain.ArtifactSet{}, err
	}

	set := domain.ArtifactSet{AssessmentID: assessmentID}
	if set.VehicleValuesID, err = findOneID[model.VehicleValues](db, assessmentID); err != nil {
		return domain.ArtifactSet{}, err
	}
	if set.DamageID, err = findOneID[model.Damage](db, assessmentID); err != nil {
		return domain.ArtifactSet{}, err
	}
	if set.EstimateID, err = findOneID[model.Estimate](db, assessmentID); err != nil {
		return domain.ArtifactSet{}, err
	}
	if set.PreIncidentEstimateID, err = findOneID[model.PreIncidentEstimate](db, assessmentID); err != nil {
		return domain.ArtifactSet{}, err
	}
	if set.TyreIDs, err = listTyreIDs(db, assessmentID); err != nil {
		return domain.ArtifactSet{}, err
	}
	if set.PhotoAlbumIDs, err = listPhotoAlbumIDs(db, assessmentID); err != nil {
		return domain.ArtifactSet{}, err
	}
	return set, nil
}

func (r *ArtifactRepository) GetEstimate(ctx context.Context, estimateID string) (ports.Estimate, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return ports.Estimate{}, err
	}

	var row model.Estimate
	if err := db.Where("estimate_id = ?", estimateID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Estimate{}, ports.ErrEstimateNotFound
		}
		return ports.Estimate{}, errs.Wrap(err, "query estimate")
	}
	return ports.Estimate{
		EstimateID:   row.EstimateID,
		AssessmentID: row.AssessmentID,
		Status:       row.Status,
		Total:        row.Total,
	}, nil
}

type ownedArtifact interface {
	PrimaryID() string
}

// ensureOne is check-then-create backed by the unique assessment_id index.
// Losing an insert race re-reads the winner's row instead of failing.
func ensureOne[T ownedArtifact](db *gorm.DB, assessmentID string, build func() T) (string, bool, error) {
	id, err := findOneID[T](db, assessmentID)
	if err != nil {
		return "", false, err
	}
	if id != "" {
		return id, false, nil
	}

	row := build()
	if err := db.Create(&row).Error; err != nil {
		if !isDuplicate(err) {
			return "", false, errs.Wrapf(err, "insert %T", row)
		}
		id, err := findOneID[T](db, assessmentID)
		if err != nil {
			return "", false, err
		}
		if id == "" {
			return "", false, fmt.Errorf("%T missing after unique conflict", row)
		}
		return id, false, nil
	}
	return row.PrimaryID(), true, nil
}

func findOneID[T ownedArtifact](db *gorm.DB, assessmentID string) (string, error) {
	var row T
	if err := db.Where("assessment_id = ?", assessmentID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", errs.Wrapf(err, "query %T", row)
	}
	return row.PrimaryID(), nil
}

func listTyreIDs(db *gorm.DB, assessmentID string) (map[domain.TyrePosition]string, error) {
	var rows []model.Tyre
	if err := db.Where("assessment_id = ?", assessmentID).Order("position asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query tyres")
	}
	ids := make(map[domain.TyrePosition]string, len(rows))
	for _, row := range rows {
		ids[domain.TyrePosition(row.Position)] = row.TyreID
	}
	return ids, nil
}

func listPhotoAlbumIDs(db *gorm.DB, assessmentID string) (map[domain.PhotoCategory]string, error) {
	var rows []model.PhotoAlbum
	if err := db.Where("assessment_id = ?", assessmentID).Order("category asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query photo albums")
	}
	ids := make(map[domain.PhotoCategory]string, len(rows))
	for _, row := range rows {
		ids[domain.PhotoCategory(row.Category)] = row.AlbumID
	}
	return ids, nil
}
