package model

import "github.com/looplab/fsm"

// Each lifecycle is an fsm whose event names are the destination states, so
// a move from one status to another is allowed when the machine started at
// the source status can fire the event named after the target.

var orderEvents = fsm.Events{
	{Name: string(OrderConfirmed), Src: []string{string(OrderPending)}, Dst: string(OrderConfirmed)},
	{Name: string(OrderCancelled), Src: []string{string(OrderPending), string(OrderConfirmed)}, Dst: string(OrderCancelled)},
	{Name: string(OrderDispatched), Src: []string{string(OrderConfirmed)}, Dst: string(OrderDispatched)},
	{Name: string(OrderDelivered), Src: []string{string(OrderDispatched)}, Dst: string(OrderDelivered)},
	{Name: string(OrderCompleted), Src: []string{string(OrderDelivered)}, Dst: string(OrderCompleted)},
}

var paymentEvents = fsm.Events{
	{Name: string(PaymentSubmitted), Src: []string{string(PaymentPending), string(PaymentRejected)}, Dst: string(PaymentSubmitted)},
	{Name: string(PaymentApproved), Src: []string{string(PaymentPending), string(PaymentSubmitted), string(PaymentRejected)}, Dst: string(PaymentApproved)},
	{Name: string(PaymentRejected), Src: []string{string(PaymentSubmitted)}, Dst: string(PaymentRejected)},
}

var deliveryEvents = fsm.Events{
	{Name: string(DeliveryPickedUp), Src: []string{string(DeliveryAssigned)}, Dst: string(DeliveryPickedUp)},
	{Name: string(DeliveryInTransit), Src: []string{string(DeliveryPickedUp)}, Dst: string(DeliveryInTransit)},
	{Name: string(DeliveryDelivered), Src: []string{string(DeliveryInTransit)}, Dst: string(DeliveryDelivered)},
	{Name: string(DeliveryFailed), Src: []string{string(DeliveryAssigned), string(DeliveryPickedUp), string(DeliveryInTransit)}, Dst: string(DeliveryFailed)},
}

// OrderMachine returns the order lifecycle positioned at s.
func OrderMachine(s OrderStatus) *fsm.FSM {
	return fsm.NewFSM(string(s), orderEvents, fsm.Callbacks{})
}

// PaymentMachine returns the order payment lifecycle positioned at s.
func PaymentMachine(s PaymentStatus) *fsm.FSM {
	return fsm.NewFSM(string(s), paymentEvents, fsm.Callbacks{})
}

// DeliveryMachine returns the delivery lifecycle positioned at s.
func DeliveryMachine(s DeliveryStatus) *fsm.FSM {
	return fsm.NewFSM(string(s), deliveryEvents, fsm.Callbacks{})
}

// CanTransition reports whether an order may move from one status to another.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	return OrderMachine(s).Can(string(to))
}

// CanTransition reports whether an order's payment status may move to another.
func (s PaymentStatus) CanTransition(to PaymentStatus) bool {
	return PaymentMachine(s).Can(string(to))
}

// CanTransition reports whether a delivery may move to the given status.
func (s DeliveryStatus) CanTransition(to DeliveryStatus) bool {
	return DeliveryMachine(s).Can(string(to))
}
