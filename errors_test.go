package todokit

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	notFound := NewError(NotFound, "Task not found")

	assert.Equal(t, NotFound, KindOf(notFound))
	assert.Equal(t, NotFound, KindOf(fmt.Errorf("lookup: %w", notFound)))
	assert.Equal(t, Internal, KindOf(errors.New("boom")))
	assert.Equal(t, Internal, KindOf(nil))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "validation", Validation.String())
	assert.Equal(t, "auth", Auth.String())
	assert.Equal(t, "internal", Kind(42).String())
}

func TestStatusRoundTrip(t *testing.T) {
	for _, k := range []Kind{Internal, Validation, Auth, NotFound} {
		assert.Equal(t, k, KindFromStatus(k.StatusCode()), k.String())
	}
	assert.Equal(t, Internal, KindFromStatus(502))
}
