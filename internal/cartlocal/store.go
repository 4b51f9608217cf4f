package cartlocal

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kiranakart/cart-engine/internal/cart"
	"github.com/kiranakart/cart-engine/pkg/db"
	"github.com/kiranakart/cart-engine/pkg/db/models"
	"github.com/kiranakart/cart-engine/pkg/errors"
	"github.com/kiranakart/cart-engine/pkg/logger"
)

// namespace separates cart snapshots from other per-device blobs sharing the
// table.
const namespace = "cart"

// Store persists a guest cart as one serialized snapshot per device. Every
// mutation rewrites the whole payload; the snapshot carries a schema version
// and an unreadable or mismatched snapshot is discarded, never migrated in
// place.
type Store struct {
	client        *db.Client
	deviceID      string
	schemaVersion int
	logg          *logger.Logger
}

// New builds the device-local strategy for one device.
func New(client *db.Client, deviceID string, schemaVersion int, logg *logger.Logger) (*Store, error) {
	if client == nil {
		return nil, errors.New(errors.CodeInternal, "local cart store requires a db client")
	}
	if deviceID == "" {
		return nil, errors.New(errors.CodeValidation, "local cart store requires a device id")
	}
	if schemaVersion < 1 {
		schemaVersion = 1
	}
	return &Store{
		client:        client,
		deviceID:      deviceID,
		schemaVersion: schemaVersion,
		logg:          logg,
	}, nil
}

func (s *Store) Kind() string { return "local" }

// Load reads the device snapshot. A missing row, a stale schema version or a
// corrupt payload all yield an empty cart; the guest cart is a convenience,
// not a ledger.
func (s *Store) Load(ctx context.Context) ([]cart.LineItem, error) {
	var snap models.DeviceCartSnapshot
	err := s.client.DB().WithContext(ctx).
		Where("device_id = ? AND namespace = ?", s.deviceID, namespace).
		First(&snap).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "reading device cart snapshot")
	}

	if snap.SchemaVersion != s.schemaVersion {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithDeviceID(ctx, s.deviceID), "discarding device cart snapshot with stale schema version")
		}
		return nil, nil
	}

	var items []cart.LineItem
	if err := json.Unmarshal([]byte(snap.Payload), &items); err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithDeviceID(ctx, s.deviceID), "discarding unreadable device cart snapshot")
		}
		return nil, nil
	}
	return items, nil
}

// Persist rewrites the whole snapshot with the post-mutation collection. A
// clear deletes the row instead of writing an empty payload.
func (s *Store) Persist(ctx context.Context, mut cart.Mutation, items []cart.LineItem) error {
	if mut.Op == cart.OpClear || len(items) == 0 {
		err := s.client.DB().WithContext(ctx).
			Where("device_id = ? AND namespace = ?", s.deviceID, namespace).
			Delete(&models.DeviceCartSnapshot{}).Error
		if err != nil {
			return errors.Wrap(errors.CodeDependency, err, "clearing device cart snapshot")
		}
		return nil
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "encoding device cart snapshot")
	}

	snap := models.DeviceCartSnapshot{
		DeviceID:      s.deviceID,
		Namespace:     namespace,
		SchemaVersion: s.schemaVersion,
		Payload:       string(payload),
	}
	err = s.client.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device_id"}, {Name: "namespace"}},
			DoUpdates: clause.AssignmentColumns([]string{"schema_version", "payload", "updated_at"}),
		}).
		Create(&snap).Error
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "writing device cart snapshot")
	}
	return nil
}
