// Package points keeps per-user point balances in SQLite.
package points

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// User is one balance row. Users appear with zero points the first time
// they are looked at.
type User struct {
	ID     string `gorm:"primaryKey"`
	Points float64
}

// Store reads and writes balances.
type Store struct {
	db *gorm.DB
}

// Open opens (creating when missing) the SQLite database at path.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open points database: %w", err)
	}
	return New(db)
}

// New wraps an open connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&User{}); err != nil {
		return nil, fmt.Errorf("failed to migrate points schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func ensure(tx *gorm.DB, id string) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&User{ID: id}).Error
}

// Get returns the balance of id.
func (s *Store) Get(ctx context.Context, id string) (float64, error) {
	db := s.db.WithContext(ctx)
	if err := ensure(db, id); err != nil {
		return 0, fmt.Errorf("get points for %s: %w", id, err)
	}
	var u User
	if err := db.First(&u, "id = ?", id).Error; err != nil {
		return 0, fmt.Errorf("get points for %s: %w", id, err)
	}
	return u.Points, nil
}

// Set gives every user in ids exactly points. With no ids it resets every
// known user.
func (s *Store) Set(ctx context.Context, ids []string, points float64) error {
	db := s.db.WithContext(ctx)
	if len(ids) == 0 {
		err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Model(&User{}).Update("points", points).Error
		if err != nil {
			return fmt.Errorf("set points for everyone: %w", err)
		}
		return nil
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			if err := ensure(tx, id); err != nil {
				return fmt.Errorf("set points for %s: %w", id, err)
			}
			if err := tx.Model(&User{ID: id}).Update("points", points).Error; err != nil {
				return fmt.Errorf("set points for %s: %w", id, err)
			}
		}
		return nil
	})
}

// Add adds delta to the balance of every user in ids. A user named twice
// gets delta twice.
func (s *Store) Add(ctx context.Context, ids []string, delta float64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			if err := ensure(tx, id); err != nil {
				return fmt.Errorf("add points for %s: %w", id, err)
			}
			err := tx.Model(&User{ID: id}).Update("points", gorm.Expr("points + ?", delta)).Error
			if err != nil {
				return fmt.Errorf("add points for %s: %w", id, err)
			}
		}
		return nil
	})
}

// Top returns up to n users with the highest balances.
func (s *Store) Top(ctx context.Context, n int) ([]User, error) {
	var users []User
	err := s.db.WithContext(ctx).Order("points desc").Order("id").Limit(n).Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("top points: %w", err)
	}
	return users, nil
}
