package eventbus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitDispatchesInRegistrationOrderSynchronously(t *testing.T) {
	bus := New(nil)

	var order []int
	bus.Subscribe(TopicPhaseChanged, func(payload interface{}) error {
		order = append(order, 1)
		return nil
	})
	bus.Subscribe(TopicPhaseChanged, func(payload interface{}) error {
		order = append(order, 2)
		return nil
	})

	bus.Emit(TopicPhaseChanged, PhaseChangedPayload{Phase: "discovery"})

	assert.Equal(t, []int{1, 2}, order)
}

func TestEmitWithNoSubscribersIsANoop(t *testing.T) {
	bus := New(nil)
	assert.NotPanics(t, func() {
		bus.Emit(TopicWorkerReady, nil)
	})
}

func TestUnsubscribeRemovesOnlyThatHandler(t *testing.T) {
	bus := New(nil)

	var calledA, calledB bool
	tokA := bus.Subscribe(TopicWorkerReady, func(payload interface{}) error {
		calledA = true
		return nil
	})
	bus.Subscribe(TopicWorkerReady, func(payload interface{}) error {
		calledB = true
		return nil
	})

	bus.Unsubscribe(tokA)
	bus.Emit(TopicWorkerReady, nil)

	assert.False(t, calledA)
	assert.True(t, calledB)
}

func TestHandlerErrorDoesNotStopRemainingHandlers(t *testing.T) {
	bus := New(nil)

	var secondCalled bool
	bus.Subscribe(TopicTaskFailed, func(payload interface{}) error {
		return errors.New("boom")
	})
	bus.Subscribe(TopicTaskFailed, func(payload interface{}) error {
		secondCalled = true
		return nil
	})

	bus.Emit(TopicTaskFailed, nil)

	assert.True(t, secondCalled)
}

func TestCloseRemovesAllSubscribers(t *testing.T) {
	bus := New(nil)

	called := false
	bus.Subscribe(TopicWorkerIdle, func(payload interface{}) error {
		called = true
		return nil
	})

	bus.Close()
	bus.Emit(TopicWorkerIdle, nil)

	assert.False(t, called)
}
