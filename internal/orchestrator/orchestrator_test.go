package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/siteharvest/internal/ipc"
)

func TestIsFatalClassifiesByKind(t *testing.T) {
	assert.False(t, IsFatal(nil))
	assert.False(t, IsFatal(ipc.NewError(ipc.KindDepthLimit, "too deep", nil)))
	assert.True(t, IsFatal(ipc.NewError(ipc.KindAllocationTimeout, "no worker available", nil)))
	assert.True(t, IsFatal(ipc.NewError(ipc.KindInvariantViolation, "impossible state", nil)))
}

func TestIsFatalDefaultsTrueForUnclassifiedError(t *testing.T) {
	assert.True(t, IsFatal(assertError{}))
}

type assertError struct{}

func (assertError) Error() string { return "boom" }
