package workerpool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/siteharvest/internal/config"
)

func TestPlanCapacityClampsToMin(t *testing.T) {
	n := PlanCapacity(4, 8, 2, 512) // byCPU=1, byMem=0 -> clamp up to min
	assert.Equal(t, 4, n)
}

func TestPlanCapacityClampsToMax(t *testing.T) {
	n := PlanCapacity(1, 4, 64, 1024*1024) // byCPU=63, byMem huge -> clamp down to max
	assert.Equal(t, 4, n)
}

func TestPlanCapacityPicksSmallerOfCPUAndMemoryBound(t *testing.T) {
	n := PlanCapacity(1, 8, 8, 2048) // byCPU=7, byMem=floor(0.7*2048/1024)=1
	assert.Equal(t, 1, n)
}

func TestPoolAcquireTimesOutWhenNoWorkersIdle(t *testing.T) {
	p := New(config.WorkerPoolConfig{}, nil, nil)
	_, err := p.Acquire(10 * time.Millisecond)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrAllocationTimeout)
}

func TestPoolSizeZeroBeforeAnySpawn(t *testing.T) {
	p := New(config.WorkerPoolConfig{}, nil, nil)
	assert.Equal(t, 0, p.Size())
}
