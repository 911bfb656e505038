package repository

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/GoPolymarket/namegate/internal/ledger"
	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Amounts are stored as base-10 text: they can exceed 64 bits.

type feedRow struct {
	Currency  string `gorm:"primaryKey;size:42"`
	Oracle    string `gorm:"size:42;not null"`
	Decimals  uint8  `gorm:"not null"`
	Collected string `gorm:"type:numeric(78,0);not null"`
	UpdatedAt time.Time
}

func (feedRow) TableName() string { return "ledger_feeds" }

type agentRow struct {
	Agent     string `gorm:"primaryKey;size:42"`
	Rate      uint64 `gorm:"not null"`
	UpdatedAt time.Time
}

func (agentRow) TableName() string { return "ledger_agents" }

type commissionRow struct {
	Agent     string `gorm:"primaryKey;size:42"`
	Currency  string `gorm:"primaryKey;size:42"`
	Amount    string `gorm:"type:numeric(78,0);not null"`
	UpdatedAt time.Time
}

func (commissionRow) TableName() string { return "ledger_commissions" }

type settingsRow struct {
	ID               int    `gorm:"primaryKey"`
	Deposited        string `gorm:"type:numeric(78,0);not null"`
	Approved         string `gorm:"type:numeric(78,0);not null"`
	ReservePrice     string `gorm:"type:numeric(78,0);not null"`
	CollectedReserve string `gorm:"type:numeric(78,0);not null"`
	Registry         string `gorm:"size:42"`
	Paused           bool   `gorm:"not null"`
	UpdatedAt        time.Time
}

func (settingsRow) TableName() string { return "ledger_settings" }

const settingsID = 1

// PostgresLedgerRepo stores the committed ledger as plain tables, replaced as a
// whole inside one database transaction per save.
type PostgresLedgerRepo struct {
	db *gorm.DB
}

func NewPostgresLedgerRepo(db *gorm.DB) (*PostgresLedgerRepo, error) {
	if err := db.AutoMigrate(&feedRow{}, &agentRow{}, &commissionRow{}, &settingsRow{}); err != nil {
		return nil, fmt.Errorf("ledger schema migration failed: %w", err)
	}
	return &PostgresLedgerRepo{db: db}, nil
}

func (r *PostgresLedgerRepo) Save(ctx context.Context, snap *ledger.Snapshot) error {
	if snap == nil {
		return nil
	}
	rows := snapshotRows(snap)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Delete(&feedRow{}).Error; err != nil {
			return err
		}
		if err := all.Delete(&agentRow{}).Error; err != nil {
			return err
		}
		if err := all.Delete(&commissionRow{}).Error; err != nil {
			return err
		}
		if len(rows.feeds) > 0 {
			if err := tx.Create(&rows.feeds).Error; err != nil {
				return err
			}
		}
		if len(rows.agents) > 0 {
			if err := tx.Create(&rows.agents).Error; err != nil {
				return err
			}
		}
		if len(rows.commissions) > 0 {
			if err := tx.Create(&rows.commissions).Error; err != nil {
				return err
			}
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&rows.settings).Error
	})
}

// Load returns nil when nothing was saved yet.
func (r *PostgresLedgerRepo) Load(ctx context.Context) (*ledger.Snapshot, error) {
	db := r.db.WithContext(ctx)

	var rows ledgerRows
	err := db.First(&rows.settings, settingsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := db.Order("currency").Find(&rows.feeds).Error; err != nil {
		return nil, err
	}
	if err := db.Order("agent").Find(&rows.agents).Error; err != nil {
		return nil, err
	}
	if err := db.Order("agent, currency").Find(&rows.commissions).Error; err != nil {
		return nil, err
	}
	return rows.snapshot()
}

type ledgerRows struct {
	feeds       []feedRow
	agents      []agentRow
	commissions []commissionRow
	settings    settingsRow
}

func snapshotRows(snap *ledger.Snapshot) ledgerRows {
	now := time.Now().UTC()
	rows := ledgerRows{
		feeds:       make([]feedRow, 0, len(snap.Feeds)),
		agents:      make([]agentRow, 0, len(snap.Agents)),
		commissions: make([]commissionRow, 0, len(snap.Earnings)),
		settings: settingsRow{
			ID:               settingsID,
			Deposited:        bigText(snap.Deposited),
			Approved:         bigText(snap.Approved),
			ReservePrice:     bigText(snap.ReservePrice),
			CollectedReserve: bigText(snap.CollectedReserve),
			Registry:         snap.Registry.Hex(),
			Paused:           snap.Paused,
			UpdatedAt:        now,
		},
	}
	for _, f := range snap.Feeds {
		rows.feeds = append(rows.feeds, feedRow{
			Currency:  f.Currency.Hex(),
			Oracle:    f.Oracle.Hex(),
			Decimals:  f.Decimals,
			Collected: bigText(f.Collected),
			UpdatedAt: now,
		})
	}
	for _, a := range snap.Agents {
		rows.agents = append(rows.agents, agentRow{Agent: a.Agent.Hex(), Rate: a.Rate, UpdatedAt: now})
	}
	for _, e := range snap.Earnings {
		rows.commissions = append(rows.commissions, commissionRow{
			Agent:     e.Agent.Hex(),
			Currency:  e.Currency.Hex(),
			Amount:    bigText(e.Amount),
			UpdatedAt: now,
		})
	}
	return rows
}

func (rows ledgerRows) snapshot() (*ledger.Snapshot, error) {
	var err error
	snap := &ledger.Snapshot{
		Registry: common.HexToAddress(rows.settings.Registry),
		Paused:   rows.settings.Paused,
	}
	if snap.Deposited, err = parseBig(rows.settings.Deposited); err != nil {
		return nil, err
	}
	if snap.Approved, err = parseBig(rows.settings.Approved); err != nil {
		return nil, err
	}
	if snap.ReservePrice, err = parseBig(rows.settings.ReservePrice); err != nil {
		return nil, err
	}
	if snap.CollectedReserve, err = parseBig(rows.settings.CollectedReserve); err != nil {
		return nil, err
	}
	for _, f := range rows.feeds {
		collected, err := parseBig(f.Collected)
		if err != nil {
			return nil, err
		}
		snap.Feeds = append(snap.Feeds, ledger.Feed{
			Currency:  common.HexToAddress(f.Currency),
			Oracle:    common.HexToAddress(f.Oracle),
			Decimals:  f.Decimals,
			Collected: collected,
		})
	}
	for _, a := range rows.agents {
		snap.Agents = append(snap.Agents, ledger.AgentRate{Agent: common.HexToAddress(a.Agent), Rate: a.Rate})
	}
	for _, c := range rows.commissions {
		amount, err := parseBig(c.Amount)
		if err != nil {
			return nil, err
		}
		snap.Earnings = append(snap.Earnings, ledger.Earning{
			Agent:    common.HexToAddress(c.Agent),
			Currency: common.HexToAddress(c.Currency),
			Amount:   amount,
		})
	}
	return snap, nil
}

func bigText(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseBig(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid stored amount %q", s)
	}
	return v, nil
}
