package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/siteharvest/internal/eventbus"
)

func TestDashboardTracksCurrentPhaseAcrossEvents(t *testing.T) {
	bus := eventbus.New(nil)
	d := NewDashboard(bus, nil)

	bus.Emit(eventbus.TopicPhaseChanged, eventbus.PhaseChangedPayload{Phase: "discovery"})
	assert.Equal(t, "discovery", d.currentPhase())

	bus.Emit(eventbus.TopicPhaseChanged, eventbus.PhaseChangedPayload{Phase: "download"})
	assert.Equal(t, "download", d.currentPhase())
}

func TestDashboardIgnoresMismatchedPayloadTypes(t *testing.T) {
	bus := eventbus.New(nil)
	d := NewDashboard(bus, nil)

	assert.NotPanics(t, func() {
		bus.Emit(eventbus.TopicPhaseChanged, "not a payload")
		bus.Emit(eventbus.TopicDiscoveryProgress, nil)
		bus.Emit(eventbus.TopicTaskFailed, nil)
	})
}
