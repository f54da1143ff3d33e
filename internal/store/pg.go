package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/domain"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/store/schema"
)

const configRowID = 1

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool sets the connection pool settings on the
// underlying sql.DB. Zero values fall back to defaults.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
	return nil
}

// Migrate creates or updates the database schema
func (s *pgStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&schema.Gauge{},
		&schema.User{},
		&schema.WeightEntry{},
		&schema.LossEvent{},
		&schema.LossAck{},
		&schema.CycleSnapshot{},
		&schema.LedgerEvent{},
		&schema.Config{},
	)
}

// ApplyDelta upserts the state rows touched by one committed operation
// inside a single transaction
func (s *pgStore) ApplyDelta(ctx context.Context, delta domain.StateDelta) error {
	if delta.Empty() {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		if delta.MaxGauges != nil {
			row := schema.Config{ID: configRowID, MaxGauges: *delta.MaxGauges, UpdatedAt: now}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"max_gauges", "updated_at"}),
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("upsert config: %w", err)
			}
		}

		for _, g := range delta.Gauges {
			row := schema.Gauge{
				Address:   g.Address.Hex(),
				GaugeType: string(g.Type),
				Status:    string(g.Status),
				AddedAt:   g.AddedAt,
				UpdatedAt: now,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "address"}},
				DoUpdates: clause.AssignmentColumns([]string{"gauge_type", "status", "updated_at"}),
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("upsert gauge %s: %w", g.Address.Hex(), err)
			}
		}

		for _, u := range delta.Users {
			row := schema.User{
				Address:   u.Address.Hex(),
				Balance:   u.Balance,
				Exempt:    u.Exempt,
				UpdatedAt: now,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "address"}},
				DoUpdates: clause.AssignmentColumns([]string{"balance", "exempt", "updated_at"}),
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("upsert user %s: %w", u.Address.Hex(), err)
			}
		}

		for _, e := range delta.Entries {
			row := schema.WeightEntry{
				UserAddress:  e.User.Hex(),
				GaugeAddress: e.Gauge.Hex(),
				Weight:       e.Weight,
				UpdatedAt:    now,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_address"}, {Name: "gauge_address"}},
				DoUpdates: clause.AssignmentColumns([]string{"weight", "updated_at"}),
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("upsert weight entry %s/%s: %w", e.User.Hex(), e.Gauge.Hex(), err)
			}
		}

		for _, l := range delta.Losses {
			row := schema.LossEvent{
				GaugeAddress: l.Gauge.Hex(),
				ReportedAt:   l.ReportedAt,
				UpdatedAt:    now,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "gauge_address"}},
				DoUpdates: clause.AssignmentColumns([]string{"reported_at", "updated_at"}),
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("upsert loss event %s: %w", l.Gauge.Hex(), err)
			}
		}

		for _, a := range delta.Acks {
			row := schema.LossAck{
				UserAddress:  a.User.Hex(),
				GaugeAddress: a.Gauge.Hex(),
				AppliedAt:    a.AppliedAt,
				UpdatedAt:    now,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_address"}, {Name: "gauge_address"}},
				DoUpdates: clause.AssignmentColumns([]string{"applied_at", "updated_at"}),
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("upsert loss ack %s/%s: %w", a.User.Hex(), a.Gauge.Hex(), err)
			}
		}

		if len(delta.Snapshots) > 0 {
			if err := appendSnapshots(tx, delta.Snapshots); err != nil {
				return err
			}
		}
		return nil
	})
}

// AppendEvent appends one committed mutation to the journal
func (s *pgStore) AppendEvent(ctx context.Context, event domain.LedgerEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}
	row := schema.LedgerEvent{
		ID:        event.ID,
		EventType: string(event.Type),
		Payload:   payload,
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("append event %s: %w", event.ID, err)
	}
	return nil
}

// AppendSnapshots appends stored-weight checkpoints, ignoring duplicates
func (s *pgStore) AppendSnapshots(ctx context.Context, snapshots []domain.CycleSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return appendSnapshots(s.db.WithContext(ctx), snapshots)
}

func appendSnapshots(tx *gorm.DB, snapshots []domain.CycleSnapshot) error {
	rows := make([]schema.CycleSnapshot, 0, len(snapshots))
	for _, snap := range snapshots {
		rows = append(rows, schema.CycleSnapshot{
			Scope:        string(snap.Scope),
			Key:          snap.Key,
			StoredWeight: snap.StoredWeight,
			CycleEnd:     snap.CycleEnd,
		})
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return fmt.Errorf("append snapshots: %w", err)
	}
	return nil
}

// LoadLedgerState loads the full persisted state for rehydration
func (s *pgStore) LoadLedgerState(ctx context.Context) (*domain.LedgerState, error) {
	db := s.db.WithContext(ctx)
	state := &domain.LedgerState{}

	var cfg schema.Config
	err := db.First(&cfg, configRowID).Error
	switch {
	case err == nil:
		state.MaxGauges = cfg.MaxGauges
	case errors.Is(err, gorm.ErrRecordNotFound):
		// fresh database
	default:
		return nil, fmt.Errorf("load config: %w", err)
	}

	var gauges []schema.Gauge
	if err := db.Order("added_at asc, address asc").Find(&gauges).Error; err != nil {
		return nil, fmt.Errorf("load gauges: %w", err)
	}
	for _, g := range gauges {
		state.Gauges = append(state.Gauges, domain.Gauge{
			Address: common.HexToAddress(g.Address),
			Type:    domain.GaugeType(g.GaugeType),
			Status:  domain.GaugeStatus(g.Status),
			AddedAt: g.AddedAt,
		})
	}

	var users []schema.User
	if err := db.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for _, u := range users {
		state.Users = append(state.Users, domain.UserAccount{
			Address: common.HexToAddress(u.Address),
			Balance: u.Balance,
			Exempt:  u.Exempt,
		})
	}

	var entries []schema.WeightEntry
	if err := db.Where("weight > 0").Order("id asc").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("load weight entries: %w", err)
	}
	for _, e := range entries {
		state.Entries = append(state.Entries, domain.WeightEntry{
			User:   common.HexToAddress(e.UserAddress),
			Gauge:  common.HexToAddress(e.GaugeAddress),
			Weight: e.Weight,
		})
	}

	var losses []schema.LossEvent
	if err := db.Find(&losses).Error; err != nil {
		return nil, fmt.Errorf("load loss events: %w", err)
	}
	for _, l := range losses {
		state.Losses = append(state.Losses, domain.LossRecord{
			Gauge:      common.HexToAddress(l.GaugeAddress),
			ReportedAt: l.ReportedAt,
		})
	}

	var acks []schema.LossAck
	if err := db.Find(&acks).Error; err != nil {
		return nil, fmt.Errorf("load loss acks: %w", err)
	}
	for _, a := range acks {
		state.Acks = append(state.Acks, domain.LossAck{
			User:      common.HexToAddress(a.UserAddress),
			Gauge:     common.HexToAddress(a.GaugeAddress),
			AppliedAt: a.AppliedAt,
		})
	}

	return state, nil
}

// LatestSnapshots returns the newest checkpoint per (scope, key)
func (s *pgStore) LatestSnapshots(ctx context.Context) ([]domain.CycleSnapshot, error) {
	var rows []schema.CycleSnapshot
	err := s.db.WithContext(ctx).
		Raw(`SELECT DISTINCT ON (scope, key) * FROM cycle_snapshots ORDER BY scope, key, cycle_end DESC`).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load latest snapshots: %w", err)
	}

	out := make([]domain.CycleSnapshot, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.CycleSnapshot{
			Scope:        domain.SnapshotScope(r.Scope),
			Key:          r.Key,
			StoredWeight: r.StoredWeight,
			CycleEnd:     r.CycleEnd,
		})
	}
	return out, nil
}

// ListEvents pages through the journal in commit order
func (s *pgStore) ListEvents(ctx context.Context, afterID string, limit int) ([]domain.LedgerEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	q := s.db.WithContext(ctx).Order("id asc").Limit(limit)
	if afterID != "" {
		q = q.Where("id > ?", afterID)
	}

	var rows []schema.LedgerEvent
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	out := make([]domain.LedgerEvent, 0, len(rows))
	for _, r := range rows {
		var event domain.LedgerEvent
		if err := json.Unmarshal(r.Payload, &event); err != nil {
			return nil, fmt.Errorf("unmarshal event %s: %w", r.ID, err)
		}
		out = append(out, event)
	}
	return out, nil
}
