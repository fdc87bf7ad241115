package database

import (
	"testing"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/stretchr/testify/assert"
)

func TestCacheConstants(t *testing.T) {
	assert.Equal(t, 0, GENERAL_CACHE_INDEX)
}

func TestDB_StructCreation(t *testing.T) {
	log := logger.New("test")

	db := &DB{
		log: log,
	}

	assert.NotNil(t, db)
	assert.Equal(t, log, db.log)
	assert.Nil(t, db.SQL)
}

func TestCacheBuilder_KeyForms(t *testing.T) {
	cb := NewCacheBuilder(nil, 42).WithHash("technicians")
	assert.Equal(t, "technicians:42", cb.key)

	cb = NewCacheBuilder(nil, "active")
	assert.Equal(t, "active", cb.key)
}

// Cache builder round trips are skipped because they require real valkey.Client interface
// These are tested in integration tests with real cache server
func TestCacheBuilder_SkippedTests(t *testing.T) {
	t.Skip("Cache builder tests require real valkey client - tested in integration tests")
}
