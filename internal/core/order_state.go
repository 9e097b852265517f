package core

import (
	"fmt"
	"strings"
)

// orderTransitions is the complete transition table. Anything absent is rejected.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderCreated:   {OrderSent, OrderCancelled},
	OrderSent:      {OrderInTransit, OrderCancelled},
	OrderInTransit: {OrderReceived, OrderCancelled},
	OrderReceived:  nil,
	OrderCancelled: nil,
}

// ParseOrderStatus validates a status name.
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if _, ok := orderTransitions[st]; !ok {
		return "", &ValidationError{Field: "status", Message: fmt.Sprintf("unknown order status %q", s)}
	}
	return st, nil
}

// Terminal reports whether no transition leaves the status.
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// CanTransition reports whether from → to is in the table.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses lists the legal targets from s.
func NextStatuses(s OrderStatus) []OrderStatus {
	return append([]OrderStatus(nil), orderTransitions[s]...)
}

// checkTransition returns a ConflictError for transitions outside the table.
func checkTransition(orderID int, from, to OrderStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	allowed := "none"
	if next := NextStatuses(from); len(next) > 0 {
		names := make([]string, len(next))
		for i, st := range next {
			names[i] = string(st)
		}
		allowed = strings.Join(names, ", ")
	}
	return &ConflictError{
		Entity: "order",
		ID:     orderID,
		Reason: fmt.Sprintf("cannot transition from %s to %s (allowed: %s)", from, to, allowed),
	}
}
