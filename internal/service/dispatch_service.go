package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/hosting-checkout/internal/model"
	"github.com/fairyhunter13/hosting-checkout/internal/remote"
	"github.com/fairyhunter13/hosting-checkout/pkg/kvstore"
)

// DispatchOrderStore is the order lookup the dispatcher needs.
type DispatchOrderStore interface {
	GetByID(ctx context.Context, id string) (*model.FinalizedOrder, error)
}

// OrderNotifier is the order-notification sink collaborator.
type OrderNotifier interface {
	Notify(ctx context.Context, n *remote.OrderNotification) (*remote.NotifyResult, error)
}

// DispatchService sends the order notification at most once per idempotency
// key. The durable marker is written only after a confirmed send, so a failed
// attempt stays retryable and a repeated mount after success is a no-op.
type DispatchService struct {
	orders   DispatchOrderStore
	markers  kvstore.Store
	notifier OrderNotifier
}

// NewDispatchService creates a DispatchService with the given store, marker
// store and notifier.
func NewDispatchService(orders DispatchOrderStore, markers kvstore.Store, notifier OrderNotifier) *DispatchService {
	return &DispatchService{orders: orders, markers: markers, notifier: notifier}
}

// Dispatch ensures the notification for orderID has been sent. Calling it
// again after success reports delivered without a second send; calling it
// after a failure retries the send with the same key.
func (s *DispatchService) Dispatch(ctx context.Context, orderID string) (*model.DispatchResponse, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	if _, found, err := s.markers.Get(order.IdempotencyKey); err != nil {
		return nil, fmt.Errorf("check marker: %w", err)
	} else if found {
		return &model.DispatchResponse{
			Status:          model.DispatchDelivered,
			AlreadyNotified: true,
		}, nil
	}

	result, err := s.notifier.Notify(ctx, &remote.OrderNotification{
		ServerName:   order.ServerName,
		CustomerName: order.CustomerName,
		Email:        order.Email,
		Phone:        order.Phone,
		Discord:      order.Discord,
		PlanID:       order.PlanID,
		PlanName:     order.PlanName,
		Total:        order.Total,
		Discount:     order.Discount,
		BillingCycle: order.BillingCycle,
		Timestamp:    order.CreatedAt,
	})
	// Transport errors and non-success acks are the same retryable failure;
	// the order itself is already complete either way.
	if err != nil || !result.Success {
		log.Warn().
			Err(err).
			Str("order_id", order.ID).
			Str("idempotency_key", order.IdempotencyKey).
			Msg("order notification delivery failed")
		return &model.DispatchResponse{
			Status:    model.DispatchFailed,
			Retryable: true,
			Message:   "order notification could not be delivered",
		}, nil
	}

	if err := s.markers.Set(order.IdempotencyKey, order.ID); err != nil {
		// The send already happened; surfacing an error here would invite a
		// duplicate. Report delivered and leave a loud trace.
		log.Error().Err(err).Str("order_id", order.ID).Msg("notification sent but marker write failed")
	}

	log.Info().
		Str("order_id", order.ID).
		Str("sink_order_id", result.OrderID).
		Msg("order notification delivered")

	return &model.DispatchResponse{Status: model.DispatchDelivered}, nil
}

// GetOrder retrieves a finalized order for the confirmation view.
// Returns ErrOrderNotFound if it doesn't exist.
func (s *DispatchService) GetOrder(ctx context.Context, id string) (*model.FinalizedOrder, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// Notified reports whether the order's notification marker is present.
func (s *DispatchService) Notified(ctx context.Context, order *model.FinalizedOrder) (bool, error) {
	_, found, err := s.markers.Get(order.IdempotencyKey)
	if err != nil {
		return false, fmt.Errorf("check marker: %w", err)
	}
	return found, nil
}
