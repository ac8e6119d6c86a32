package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "SELECT", operationFromSQL("select * from tiles"))
	assert.Equal(t, "INSERT", operationFromSQL(" INSERT INTO grids (id) VALUES (1)"))
	assert.Equal(t, "DELETE", operationFromSQL("DELETE FROM tiles WHERE id IN (1,2)"))
	assert.Equal(t, "UPDATE", operationFromSQL("update tiles set hidden = true"))
	assert.Equal(t, "UNKNOWN", operationFromSQL("PRAGMA busy_timeout = 5000"))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
}
