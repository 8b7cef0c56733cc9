package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/pricing"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

const (
	tracerName   = "github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
	defaultActor = "system"
)

// OrderService orchestrates order placement and the order lifecycle. The
// event store is the source of truth; the order repository is a read model
// refreshed after every committed event.
type OrderService struct {
	orderRepo   repository.OrderRepository // read model
	productRepo repository.ProductRepository
	eventStore  repository.EventStore
	inventory   *InventoryService
	publisher   messaging.Publisher
	policy      TotalPolicy
	tracer      trace.Tracer
	now         func() time.Time
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	eventStore repository.EventStore,
	inventory *InventoryService,
	publisher messaging.Publisher,
	policy TotalPolicy,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		eventStore:  eventStore,
		inventory:   inventory,
		publisher:   publisher,
		policy:      policy,
		tracer:      otel.Tracer(tracerName),
		now:         time.Now,
	}
}

type reservation struct {
	productID string
	amount    float64 // as requested
	taken     float64 // in stock units
}

// PlaceOrder reserves stock for every line and records the order. Either
// every line is reserved or none is: a failure part way gives back what was
// already taken. Placing an order ID that already exists returns the stored
// order and leaves stock alone.
func (s *OrderService) PlaceOrder(ctx context.Context, cmd entity.PlaceOrder) (order entity.Order, err error) {
	if cmd.OrderID == "" {
		cmd.OrderID = uuid.NewString()
	}
	ctx, span := s.tracer.Start(ctx, "OrderService.PlaceOrder",
		trace.WithAttributes(attribute.String("order.id", cmd.OrderID), attribute.Int("order.items", len(cmd.Items))))
	defer func() { endSpan(span, err) }()

	slog.Info("Service: Placing order", "order_id", cmd.OrderID, "items", len(cmd.Items))

	if len(cmd.Items) == 0 {
		return entity.Order{}, entity.ErrEmptyOrder
	}
	if messaging.OrderStatusTopic(cmd.OrderID) == messaging.TopicOrderStatusGlobal {
		return entity.Order{}, fmt.Errorf("%w: %q", entity.ErrInvalidOrderID, cmd.OrderID)
	}

	existing, err := s.loadAggregate(ctx, cmd.OrderID)
	if err != nil {
		return entity.Order{}, err
	}
	if existing.Exists() {
		slog.Info("Order already exists (idempotency)", "order_id", cmd.OrderID)
		return existing.Order, nil
	}

	status := entity.StatusPending
	if strings.TrimSpace(cmd.Status) != "" {
		if status, err = entity.ParseOrderStatus(cmd.Status); err != nil {
			return entity.Order{}, err
		}
	}

	wanted, err := s.resolveItems(ctx, cmd.Items)
	if err != nil {
		return entity.Order{}, err
	}

	lines := make([]entity.OrderLine, 0, len(wanted))
	reserved := make([]reservation, 0, len(wanted))
	for _, r := range wanted {
		p, taken, err := s.inventory.Reserve(ctx, r.productID, r.amount)
		if err != nil {
			return entity.Order{}, s.abort(ctx, cmd.OrderID, reserved, err)
		}
		r.taken = taken
		reserved = append(reserved, r)
		lines = append(lines, entity.OrderLine{Product: p.Snapshot(), Amount: r.amount})
	}

	computed := pricing.OrderTotal(lines)
	total, err := s.policy.Resolve(computed, cmd.ClientTotal)
	if err != nil {
		return entity.Order{}, s.abort(ctx, cmd.OrderID, reserved, err)
	}
	if !total.Equal(computed) {
		slog.Warn("Storing client supplied total", "order_id", cmd.OrderID, "client", total.String(), "computed", computed.String())
	}

	placed := entity.OrderPlaced{
		OrderID:  cmd.OrderID,
		Lines:    lines,
		Total:    total,
		Status:   status,
		Buyer:    cmd.Buyer,
		PlacedAt: s.now().UTC(),
	}
	agg := entity.NewOrderAggregate(cmd.OrderID)
	if err := agg.ApplyEvent(placed); err != nil {
		return entity.Order{}, s.abort(ctx, cmd.OrderID, reserved, err)
	}

	err = s.eventStore.SaveEvents(ctx, cmd.OrderID, entity.OrderStreamType, 0, []entity.Event{placed})
	if errors.Is(err, entity.ErrVersionConflict) {
		// A concurrent placement of the same order ID won.
		if rbErr := s.rollback(ctx, cmd.OrderID, reserved); rbErr != nil {
			return entity.Order{}, multierror.Append(err, rbErr)
		}
		winner, loadErr := s.loadAggregate(ctx, cmd.OrderID)
		if loadErr != nil {
			return entity.Order{}, loadErr
		}
		return winner.Order, nil
	}
	if err != nil {
		return entity.Order{}, s.abort(ctx, cmd.OrderID, reserved, fmt.Errorf("failed to save OrderPlaced event: %w", err))
	}

	s.project(ctx, agg.Order)

	if err := s.publisher.PublishEvent(ctx, messaging.TopicOrderPlaced, cmd.OrderID, placed); err != nil {
		slog.Error("Failed to publish OrderPlaced", "order_id", cmd.OrderID, "err", err)
	}

	slog.Info("Order placed", "order_id", cmd.OrderID, "total", total.String(), "status", status)
	return agg.Order, nil
}

// resolveItems checks every line before any stock is touched.
func (s *OrderService) resolveItems(ctx context.Context, items []entity.LineItemRequest) ([]reservation, error) {
	wanted := make([]reservation, 0, len(items))
	for i, item := range items {
		if strings.TrimSpace(item.ProductID) == "" {
			return nil, fmt.Errorf("%w: item %d", entity.ErrMissingLineItemID, i)
		}
		amount := 1.0
		if item.Amount != nil {
			amount = *item.Amount
		}
		if amount <= 0 {
			return nil, fmt.Errorf("%w: item %d", entity.ErrInvalidAmount, i)
		}
		if _, err := s.productRepo.FindByID(ctx, item.ProductID); err != nil {
			return nil, err
		}
		wanted = append(wanted, reservation{productID: item.ProductID, amount: amount})
	}
	return wanted, nil
}

// abort gives back reserved stock and returns cause, joined with any
// failure to give it back.
func (s *OrderService) abort(ctx context.Context, orderID string, reserved []reservation, cause error) error {
	if err := s.rollback(ctx, orderID, reserved); err != nil {
		return multierror.Append(cause, err)
	}
	return cause
}

func (s *OrderService) rollback(ctx context.Context, orderID string, reserved []reservation) error {
	if len(reserved) == 0 {
		return nil
	}
	// Stock must come back even if the request was canceled.
	ctx = context.WithoutCancel(ctx)

	var result *multierror.Error
	failed := 0
	for i := len(reserved) - 1; i >= 0; i-- {
		r := reserved[i]
		if r.taken == 0 {
			continue
		}
		if _, err := s.inventory.Restore(ctx, r.productID, r.taken); err != nil {
			result = multierror.Append(result, err)
			failed++
		}
	}
	slog.Warn("Rolled back stock reservations", "order_id", orderID, "lines", len(reserved), "failed", failed)
	return result.ErrorOrNil()
}

// UpdateStatus moves an order along the lifecycle. Of two concurrent updates
// of one order, the loser fails with ErrVersionConflict.
func (s *OrderService) UpdateStatus(ctx context.Context, cmd entity.ChangeOrderStatus) (order entity.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.UpdateStatus",
		trace.WithAttributes(attribute.String("order.id", cmd.OrderID), attribute.String("order.status", string(cmd.Status))))
	defer func() { endSpan(span, err) }()

	if cmd.Status, err = entity.ParseOrderStatus(string(cmd.Status)); err != nil {
		return entity.Order{}, err
	}
	if strings.TrimSpace(cmd.Actor) == "" {
		cmd.Actor = defaultActor
	}

	agg, err := s.loadAggregate(ctx, cmd.OrderID)
	if err != nil {
		return entity.Order{}, err
	}
	changed, err := agg.ChangeStatus(cmd, s.now().UTC())
	if err != nil {
		return entity.Order{}, fmt.Errorf("order %s: %w", cmd.OrderID, err)
	}

	expected := agg.GetVersion()
	if err := agg.ApplyEvent(changed); err != nil {
		return entity.Order{}, err
	}
	if err := s.eventStore.SaveEvents(ctx, cmd.OrderID, entity.OrderStreamType, expected, []entity.Event{changed}); err != nil {
		return entity.Order{}, fmt.Errorf("failed to save OrderStatusChanged event: %w", err)
	}

	slog.Info("Order status changed", "order_id", cmd.OrderID, "from", changed.PreviousStatus, "to", changed.NewStatus, "actor", cmd.Actor)
	s.project(ctx, agg.Order)

	for _, topic := range []string{messaging.TopicOrderStatusGlobal, messaging.OrderStatusTopic(cmd.OrderID)} {
		if err := s.publisher.PublishEvent(ctx, topic, cmd.OrderID, changed); err != nil {
			slog.Error("Failed to publish OrderStatusChanged", "order_id", cmd.OrderID, "topic", topic, "err", err)
		}
	}
	return agg.Order, nil
}

// GetOrder reads the order from its event stream.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (entity.Order, error) {
	agg, err := s.loadAggregate(ctx, orderID)
	if err != nil {
		return entity.Order{}, err
	}
	if !agg.Exists() {
		return entity.Order{}, fmt.Errorf("%w: %s", entity.ErrOrderNotFound, orderID)
	}
	return agg.Order, nil
}

// History returns the status transitions of an order, oldest first.
func (s *OrderService) History(ctx context.Context, orderID string) ([]entity.OrderStatusChanged, error) {
	agg, err := s.loadAggregate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !agg.Exists() {
		return nil, fmt.Errorf("%w: %s", entity.ErrOrderNotFound, orderID)
	}
	if agg.History == nil {
		return []entity.OrderStatusChanged{}, nil
	}
	return agg.History, nil
}

// ListAll returns every order, most recent first.
func (s *OrderService) ListAll(ctx context.Context) ([]entity.Order, error) {
	return s.orderRepo.FindAll(ctx)
}

// ListForBuyer returns the orders placed under a buyer name.
func (s *OrderService) ListForBuyer(ctx context.Context, buyerName string) ([]entity.Order, error) {
	return s.orderRepo.FindByBuyerName(ctx, buyerName)
}

// RebuildProjection rewrites the read model of an order from its stream.
func (s *OrderService) RebuildProjection(ctx context.Context, orderID string) (entity.Order, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return entity.Order{}, err
	}
	if err := s.orderRepo.Upsert(ctx, o); err != nil {
		return entity.Order{}, fmt.Errorf("failed to update projection: %w", err)
	}
	return o, nil
}

func (s *OrderService) loadAggregate(ctx context.Context, orderID string) (*entity.OrderAggregate, error) {
	records, err := s.eventStore.LoadEvents(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order history: %w", err)
	}
	agg := entity.NewOrderAggregate(orderID)
	if err := agg.Rehydrate(records); err != nil {
		return nil, fmt.Errorf("failed to rehydrate order aggregate: %w", err)
	}
	return agg, nil
}

// project refreshes the read model. The event is already committed, so a
// failure here is only logged; RebuildProjection repairs it.
func (s *OrderService) project(ctx context.Context, o entity.Order) {
	if err := s.orderRepo.Upsert(ctx, o); err != nil {
		slog.Error("Failed to update order projection", "order_id", o.ID, "err", err)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
