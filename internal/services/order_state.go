package services

import (
	"restaurant_order_backend/pkg/utils"
)

// creationState is the step an order creation attempt has reached.
type creationState string

const (
	statePending    creationState = "pending"
	stateValidating creationState = "validating"
	stateReserving  creationState = "reserving"
	statePersisting creationState = "persisting"
	stateCommitted  creationState = "committed"
	stateAborted    creationState = "aborted"
)

// creationAttempt tracks one CreateOrder call. Committed and Aborted are terminal.
type creationAttempt struct {
	orderSlug string
	state     creationState
}

func newCreationAttempt(orderSlug string) *creationAttempt {
	return &creationAttempt{orderSlug: orderSlug, state: statePending}
}

func (a *creationAttempt) terminal() bool {
	return a.state == stateCommitted || a.state == stateAborted
}

func (a *creationAttempt) advance(next creationState) {
	if a.terminal() {
		return
	}
	utils.LogDebug("Order creation state changed", map[string]interface{}{
		"order_slug": a.orderSlug,
		"from":       string(a.state),
		"to":         string(next),
	})
	a.state = next
}

// abort moves the attempt to Aborted from any non-terminal state.
func (a *creationAttempt) abort(err error) {
	if a.terminal() {
		return
	}
	utils.LogDebug("Order creation aborted", map[string]interface{}{
		"order_slug": a.orderSlug,
		"from":       string(a.state),
		"error":      err.Error(),
	})
	a.state = stateAborted
}
