// Package events publishes scheduling events to NATS once a unit of work has
// committed. Consumers (notifications, analytics) live outside this service.
package events

import (
	"context"
	"encoding/json"
	"alcyxob/gym-scheduler/internal/domain"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event types, also used as the subject suffix.
const (
	RequestSubmitted     = "request.submitted"
	RequestStatusChanged = "request.status_changed"
	PlanCreated          = "plan.created"
	PlanStatusChanged    = "plan.status_changed"
	SlotBooked           = "slot.booked"
	SlotReleased         = "slot.released"
)

type EventPublisher interface {
	PublishRequestSubmitted(ctx context.Context, req *domain.ScheduleRequest) error
	PublishRequestStatusChanged(ctx context.Context, requestID primitive.ObjectID, from, to domain.RequestStatus) error
	PublishPlanCreated(ctx context.Context, plan *domain.WorkoutPlan, workoutCount int) error
	PublishPlanStatusChanged(ctx context.Context, plan *domain.WorkoutPlan, from domain.PlanStatus) error
	PublishSlotBooked(ctx context.Context, slot *domain.TrainerAvailabilitySlot, planID primitive.ObjectID) error
	PublishSlotReleased(ctx context.Context, slotID primitive.ObjectID) error
}

type RequestEvent struct {
	EventType  string               `json:"event_type"`
	RequestID  primitive.ObjectID   `json:"request_id"`
	MemberID   primitive.ObjectID   `json:"member_id,omitempty"`
	TrainerID  primitive.ObjectID   `json:"trainer_id,omitempty"`
	FromStatus domain.RequestStatus `json:"from_status,omitempty"`
	Status     domain.RequestStatus `json:"status"`
	OccurredAt time.Time            `json:"occurred_at"`
}

type PlanEvent struct {
	EventType    string             `json:"event_type"`
	PlanID       primitive.ObjectID `json:"plan_id"`
	Kind         domain.PlanKind    `json:"kind"`
	MemberID     primitive.ObjectID `json:"member_id"`
	TrainerID    primitive.ObjectID `json:"trainer_id"`
	FromStatus   domain.PlanStatus  `json:"from_status,omitempty"`
	Status       domain.PlanStatus  `json:"status"`
	StartTime    time.Time          `json:"start_time"`
	EndTime      time.Time          `json:"end_time"`
	WorkoutCount int                `json:"workout_count,omitempty"`
	OccurredAt   time.Time          `json:"occurred_at"`
}

type SlotEvent struct {
	EventType  string              `json:"event_type"`
	SlotID     primitive.ObjectID  `json:"slot_id"`
	TrainerID  primitive.ObjectID  `json:"trainer_id,omitempty"`
	BookedBy   *primitive.ObjectID `json:"booked_by,omitempty"`
	PlanID     *primitive.ObjectID `json:"plan_id,omitempty"`
	StartTime  *time.Time          `json:"start_time,omitempty"`
	EndTime    *time.Time          `json:"end_time,omitempty"`
	OccurredAt time.Time           `json:"occurred_at"`
}

// conn is the part of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
}

type NatsPublisher struct {
	conn   conn
	prefix string
	now    func() time.Time
}

// NewNatsPublisher connects to NATS. Subjects are "<prefix>.<event type>".
func NewNatsPublisher(natsURL, prefix string) (*NatsPublisher, *nats.Conn, error) {
	nc, err := nats.Connect(natsURL, nats.Name("gym-scheduler"))
	if err != nil {
		return nil, nil, err
	}
	return newPublisher(nc, prefix), nc, nil
}

func newPublisher(c conn, prefix string) *NatsPublisher {
	return &NatsPublisher{conn: c, prefix: prefix, now: func() time.Time { return time.Now().UTC() }}
}

func (p *NatsPublisher) PublishRequestSubmitted(ctx context.Context, req *domain.ScheduleRequest) error {
	return p.publish(ctx, RequestSubmitted, RequestEvent{
		EventType:  RequestSubmitted,
		RequestID:  req.ID,
		MemberID:   req.MemberID,
		TrainerID:  req.TrainerID,
		Status:     req.Status,
		OccurredAt: p.now(),
	})
}

func (p *NatsPublisher) PublishRequestStatusChanged(ctx context.Context, requestID primitive.ObjectID, from, to domain.RequestStatus) error {
	return p.publish(ctx, RequestStatusChanged, RequestEvent{
		EventType:  RequestStatusChanged,
		RequestID:  requestID,
		FromStatus: from,
		Status:     to,
		OccurredAt: p.now(),
	})
}

func (p *NatsPublisher) PublishPlanCreated(ctx context.Context, plan *domain.WorkoutPlan, workoutCount int) error {
	event := planEvent(PlanCreated, plan, p.now())
	event.WorkoutCount = workoutCount
	return p.publish(ctx, PlanCreated, event)
}

func (p *NatsPublisher) PublishPlanStatusChanged(ctx context.Context, plan *domain.WorkoutPlan, from domain.PlanStatus) error {
	event := planEvent(PlanStatusChanged, plan, p.now())
	event.FromStatus = from
	return p.publish(ctx, PlanStatusChanged, event)
}

func (p *NatsPublisher) PublishSlotBooked(ctx context.Context, slot *domain.TrainerAvailabilitySlot, planID primitive.ObjectID) error {
	return p.publish(ctx, SlotBooked, SlotEvent{
		EventType:  SlotBooked,
		SlotID:     slot.ID,
		TrainerID:  slot.TrainerID,
		BookedBy:   slot.BookedBy,
		PlanID:     &planID,
		StartTime:  &slot.StartTime,
		EndTime:    &slot.EndTime,
		OccurredAt: p.now(),
	})
}

func (p *NatsPublisher) PublishSlotReleased(ctx context.Context, slotID primitive.ObjectID) error {
	return p.publish(ctx, SlotReleased, SlotEvent{
		EventType:  SlotReleased,
		SlotID:     slotID,
		OccurredAt: p.now(),
	})
}

func planEvent(eventType string, plan *domain.WorkoutPlan, at time.Time) PlanEvent {
	return PlanEvent{
		EventType:  eventType,
		PlanID:     plan.ID,
		Kind:       plan.Kind,
		MemberID:   plan.MemberID,
		TrainerID:  plan.TrainerID,
		Status:     plan.Status,
		StartTime:  plan.StartTime,
		EndTime:    plan.EndTime,
		OccurredAt: at,
	}
}

func (p *NatsPublisher) publish(ctx context.Context, eventType string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	subject := eventType
	if p.prefix != "" {
		subject = p.prefix + "." + eventType
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		slog.ErrorContext(ctx, "failed to publish event", "subject", subject, "error", err)
		return err
	}

	slog.DebugContext(ctx, "published event", "subject", subject)
	return nil
}

// NoopPublisher drops every event; used when NATS is not configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishRequestSubmitted(context.Context, *domain.ScheduleRequest) error {
	return nil
}

func (NoopPublisher) PublishRequestStatusChanged(context.Context, primitive.ObjectID, domain.RequestStatus, domain.RequestStatus) error {
	return nil
}

func (NoopPublisher) PublishPlanCreated(context.Context, *domain.WorkoutPlan, int) error {
	return nil
}

func (NoopPublisher) PublishPlanStatusChanged(context.Context, *domain.WorkoutPlan, domain.PlanStatus) error {
	return nil
}

func (NoopPublisher) PublishSlotBooked(context.Context, *domain.TrainerAvailabilitySlot, primitive.ObjectID) error {
	return nil
}

func (NoopPublisher) PublishSlotReleased(context.Context, primitive.ObjectID) error {
	return nil
}
