package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type lockProbe struct {
	ID   int64 `gorm:"primaryKey"`
	Name string
}

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: users.email")))
	assert.False(t, IsDuplicateKeyErr(errors.New("connection refused")))
}

func TestNewTestIsolated(t *testing.T) {
	a, err := NewTest()
	require.NoError(t, err)
	b, err := NewTest()
	require.NoError(t, err)

	require.NoError(t, a.AutoMigrate(&lockProbe{}))
	assert.True(t, a.Migrator().HasTable(&lockProbe{}))
	assert.False(t, b.Migrator().HasTable(&lockProbe{}))
}

func TestLockHelpersAreNoopOnSQLite(t *testing.T) {
	conn, err := NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&lockProbe{}))
	require.NoError(t, conn.Create(&lockProbe{ID: 1, Name: "a"}).Error)

	err = conn.Transaction(func(tx *gorm.DB) error {
		var rows []lockProbe
		if err := ForUpdate(tx).Where("id = ?", 1).Find(&rows).Error; err != nil {
			return err
		}
		assert.Len(t, rows, 1)
		return ForShare(tx).Where("id = ?", 1).Find(&rows).Error
	})
	assert.NoError(t, err)
}

func TestDialectRejectsUnknownType(t *testing.T) {
	_, err := Dialect(Config{Type: "oracle"})
	assert.Error(t, err)
}
