package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	otelx "github.com/md-rashed-zaman/salonbook/libs/otel"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/lock"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type AppointmentStore interface {
	ListForDates(ctx context.Context, masterID string, from, to clock.Date) ([]model.Appointment, error)
	Get(ctx context.Context, id string) (model.Appointment, error)
	ListByClient(ctx context.Context, clientID string, limit int) ([]model.Appointment, error)
	ListByMaster(ctx context.Context, masterID string, limit int) ([]model.Appointment, error)
	FindIdempotent(ctx context.Context, clientID, key string) ([]model.Appointment, bool, error)
	CreateBatch(ctx context.Context, clientID, key string, appts []model.Appointment) ([]model.Appointment, bool, error)
	Update(ctx context.Context, id, eventType string, mutate func(*model.Appointment) error) (model.Appointment, error)
	Delete(ctx context.Context, id string) (model.Appointment, error)
}

type CatalogStore interface {
	ListServices(ctx context.Context) ([]model.Service, error)
}

type ScheduleStore interface {
	WorkingHours(ctx context.Context, masterID string) (*availability.WorkingHours, error)
	ReplaceWorkingHours(ctx context.Context, masterID string, wh availability.WorkingHours) error
}

type Locker interface {
	Acquire(ctx context.Context, key string) (lock.Unlock, error)
}

type Config struct {
	// Location is the salon's timezone; it decides what "today" is.
	Location *time.Location
	Now      func() time.Time
}

type Service struct {
	appts   AppointmentStore
	catalog CatalogStore
	hours   ScheduleStore
	locker  Locker
	logger  *slog.Logger
	loc     *time.Location
	now     func() time.Time
}

func NewService(appts AppointmentStore, catalog CatalogStore, hours ScheduleStore, locker Locker, logger *slog.Logger, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		appts:   appts,
		catalog: catalog,
		hours:   hours,
		locker:  locker,
		logger:  logger,
		loc:     cfg.Location,
		now:     cfg.Now,
	}
}

// Now is the current instant in the salon's location.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

func (s *Service) Today() clock.Date {
	return clock.DateOf(s.Now())
}

func (s *Service) Services(ctx context.Context) ([]model.Service, error) {
	return s.catalog.ListServices(ctx)
}

func (s *Service) loadCatalog(ctx context.Context) (model.Catalog, error) {
	services, err := s.catalog.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return model.NewCatalog(services), nil
}

// resolveCart turns requested service ids into cart items in request order.
func resolveCart(catalog model.Catalog, masterID string, serviceIDs []string) ([]model.CartItem, error) {
	if len(serviceIDs) == 0 {
		return nil, ErrEmptyCart
	}
	items := make([]model.CartItem, 0, len(serviceIDs))
	for _, id := range serviceIDs {
		svc, ok := catalog[id]
		if !ok || svc.DurationMinutes <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownService, id)
		}
		items = append(items, model.CartItem{Service: svc, MasterID: masterID})
	}
	return items, nil
}

func serviceDuration(catalog model.Catalog, serviceID string) int {
	if d, ok := catalog.Duration(serviceID); ok {
		return d
	}
	return availability.FallbackDuration
}

// dayState gathers everything the engine needs for one master and date range.
type dayState struct {
	catalog  model.Catalog
	schedule *availability.WorkingHours
	snapshot []model.Appointment
}

func (s *Service) load(ctx context.Context, masterID string, from, to clock.Date) (dayState, error) {
	var st dayState
	var err error
	if st.catalog, err = s.loadCatalog(ctx); err != nil {
		return st, err
	}
	if st.schedule, err = s.hours.WorkingHours(ctx, masterID); err != nil {
		return st, fmt.Errorf("load working hours: %w", err)
	}
	if st.snapshot, err = s.appts.ListForDates(ctx, masterID, from, to); err != nil {
		return st, fmt.Errorf("load appointments: %w", err)
	}
	return st, nil
}

func (s *Service) acquire(ctx context.Context, masterID string, date clock.Date) (func(), error) {
	unlock, err := s.locker.Acquire(ctx, masterID+":"+date.String())
	if err != nil {
		return nil, translate(err)
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := unlock(releaseCtx); err != nil {
			s.logger.Warn("booking lock release failed", "master_id", masterID, "date", date.String(), "err", err)
		}
	}, nil
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otelx.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
