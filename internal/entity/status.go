package entity

import (
	"slices"
	"strings"
)

// OrderStatus is a state of the order lifecycle.
type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusAccepted   OrderStatus = "ACCEPTED"
	StatusInDelivery OrderStatus = "IN_DELIVERY"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCanceled   OrderStatus = "CANCELED"
)

// transitions lists the permitted outgoing edges of every status.
// DELIVERED is terminal.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusAccepted, StatusCanceled},
	StatusAccepted:   {StatusInDelivery, StatusCanceled},
	StatusInDelivery: {StatusDelivered, StatusCanceled},
	StatusCanceled:   {StatusPending},
	StatusDelivered:  {},
}

// ParseOrderStatus normalises s and rejects unknown statuses.
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := transitions[st]; !ok {
		return "", ErrInvalidStatus
	}
	return st, nil
}

// Next returns the statuses reachable from s in one step.
func (s OrderStatus) Next() []OrderStatus {
	return slices.Clone(transitions[s])
}

// CanTransitionTo reports whether (s, next) is an edge of the lifecycle.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return slices.Contains(transitions[s], next)
}

// Terminal reports whether no transition leaves s.
func (s OrderStatus) Terminal() bool {
	return len(transitions[s]) == 0
}
