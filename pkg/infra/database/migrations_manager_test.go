package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestRegisterMigration_OrdersByID(t *testing.T) {
	noop := func(*gorm.DB) error { return nil }
	RegisterMigration(Migration{ID: "test_0002_b", Name: "b", Up: noop})
	RegisterMigration(Migration{ID: "test_0001_a", Name: "a", Up: noop})

	var ids []string
	for _, m := range Registered() {
		ids = append(ids, m.ID)
	}
	assert.Subset(t, ids, []string{"test_0001_a", "test_0002_b"})

	var first, second int
	for i, id := range ids {
		switch id {
		case "test_0001_a":
			first = i
		case "test_0002_b":
			second = i
		}
	}
	assert.Less(t, first, second)
}

func TestRegisterMigration_PanicsOnDuplicate(t *testing.T) {
	noop := func(*gorm.DB) error { return nil }
	RegisterMigration(Migration{ID: "test_dup", Name: "dup", Up: noop})
	assert.Panics(t, func() {
		RegisterMigration(Migration{ID: "test_dup", Name: "dup", Up: noop})
	})
}

func TestRegisterMigration_PanicsWithoutUp(t *testing.T) {
	assert.Panics(t, func() {
		RegisterMigration(Migration{ID: "test_no_up"})
	})
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "inspector", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=inspector sslmode=disable", cfg.DSN())
}
