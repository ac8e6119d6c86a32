package tracing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributes(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/v1/grids/:id"),
		attribute.String("user.email", "a@example.com"),
		attribute.String("grid.id", "42"),
	)
	assert.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
	assert.Equal(t, attribute.Key("grid.id"), attrs[1].Key)
}

func TestSafeError(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	assert.EqualError(t, SafeError(errors.New("SQL logic error near users")), "internal error")
	assert.EqualError(t, SafeError(errors.New("no user bob@example.com")), "internal error")
	assert.EqualError(t, SafeError(errors.New("timeout")), "timeout")
}
