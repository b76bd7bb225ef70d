package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeSQL(t *testing.T) {
	p := NewOTELPlugin(PluginConfig{MaxSQLLength: 80})

	got := p.sanitizeSQL(`UPDATE admins SET password = 'hunter2', token='abc' WHERE id = 1`)
	assert.Equal(t, `UPDATE admins SET password = '***', token='***' WHERE id = 1`, got)

	long := p.sanitizeSQL(`SELECT * FROM "attendance_sessions" WHERE employee_id = $1 AND work_date = $2 ORDER BY id`)
	assert.Len(t, long, 83)
	assert.Contains(t, long, "...")
}

func TestNewOTELPluginDefaults(t *testing.T) {
	p := NewOTELPlugin(PluginConfig{})
	assert.Equal(t, "fieldforce", p.config.ServiceName)
	assert.Equal(t, 500, p.config.MaxSQLLength)
	assert.Equal(t, "otel_plugin", p.Name())
}
