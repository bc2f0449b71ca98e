package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"artisan-marketplace/internal/data/entity"
	"artisan-marketplace/internal/data/repository"
	"artisan-marketplace/internal/dto/request"
	"artisan-marketplace/internal/dto/response"
	"artisan-marketplace/pkg/apperr"
	"artisan-marketplace/pkg/clock"
	"artisan-marketplace/pkg/metrics"
	"artisan-marketplace/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const deliveryTimeout = 10 * time.Second

type NotificationInput struct {
	UserID   uuid.UUID
	Type     entity.NotificationType
	Title    string
	Message  string
	Link     *string
	Metadata map[string]string
}

type notificationJob struct {
	input    NotificationInput
	toAdmins bool
}

// Dispatcher delivers notifications off the request path. Notify never
// blocks the caller and never returns an error; failed or dropped
// deliveries are logged and counted.
type Dispatcher struct {
	users         repository.UserRepository
	notifications repository.NotificationRepository
	publisher     EventPublisher
	mailer        EmailSender
	metrics       *metrics.Metrics
	clock         clock.Clock
	log           *zap.Logger

	workers int
	queue   chan notificationJob
	wg      sync.WaitGroup

	mu      sync.RWMutex
	started bool
	closed  bool
}

func NewDispatcher(repo *repository.Repository, config utils.NotificationConfig, deps Deps, log *zap.Logger) *Dispatcher {
	size := config.QueueSize
	if size < 1 {
		size = 1
	}
	workers := config.Workers
	if workers < 1 {
		workers = 1
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	return &Dispatcher{
		users:         repo.User,
		notifications: repo.Notification,
		publisher:     deps.Publisher,
		mailer:        deps.Mailer,
		metrics:       deps.Metrics,
		clock:         clk,
		log:           log.With(zap.String("service", "notification_dispatcher")),
		workers:       workers,
		queue:         make(chan notificationJob, size),
	}
}

func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	d.log.Info("Notification dispatcher started", zap.Int("workers", d.workers))
}

// Stop closes the queue and waits for queued jobs to drain.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.log.Info("Notification dispatcher stopped")
}

func (d *Dispatcher) Notify(in NotificationInput) {
	d.enqueue(notificationJob{input: in})
}

// NotifyAdmins fans in out to every admin user. UserID is ignored.
func (d *Dispatcher) NotifyAdmins(in NotificationInput) {
	d.enqueue(notificationJob{input: in, toAdmins: true})
}

func (d *Dispatcher) enqueue(job notificationJob) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(job, "dispatcher stopped")
		return
	}

	select {
	case d.queue <- job:
	default:
		d.drop(job, "queue full")
	}
}

func (d *Dispatcher) drop(job notificationJob, reason string) {
	d.metrics.NotificationDropped()
	d.log.Warn("Notification dropped",
		zap.String("reason", reason),
		zap.String("type", string(job.input.Type)),
		zap.String("user_id", job.input.UserID.String()),
	)
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for job := range d.queue {
		d.process(job)
	}
}

func (d *Dispatcher) process(job notificationJob) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Notification worker panic", zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if !job.toAdmins {
		d.deliver(ctx, job.input)
		return
	}

	admins, err := d.users.FindByRole(ctx, entity.RoleAdmin)
	if err != nil {
		d.log.Error("Failed to resolve admin recipients", zap.Error(err))
		return
	}
	for _, admin := range admins {
		in := job.input
		in.UserID = admin.ID
		d.deliver(ctx, in)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, in NotificationInput) {
	n := &entity.Notification{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: d.clock.Now(),
		},
		UserID:   in.UserID,
		Type:     in.Type,
		Title:    in.Title,
		Message:  in.Message,
		Link:     in.Link,
		Metadata: in.Metadata,
	}

	if err := d.notifications.Create(ctx, n); err != nil {
		d.metrics.NotificationSent("in_app", "failed")
		d.log.Error("Failed to persist notification",
			zap.Error(err),
			zap.String("user_id", in.UserID.String()),
			zap.String("type", string(in.Type)),
		)
		return
	}
	d.metrics.NotificationSent("in_app", "sent")

	if d.publisher != nil {
		if err := d.publisher.PublishJSON(ctx, "notification."+string(in.Type), response.NotificationToResponse(n)); err != nil {
			d.metrics.NotificationSent("event", "failed")
			d.log.Warn("Failed to publish notification event", zap.Error(err), zap.String("type", string(in.Type)))
		} else {
			d.metrics.NotificationSent("event", "sent")
		}
	}

	if d.mailer != nil {
		d.email(ctx, in)
	}
}

func (d *Dispatcher) email(ctx context.Context, in NotificationInput) {
	user, err := d.users.FindByID(ctx, in.UserID)
	if err != nil || user == nil || user.Email == "" {
		if err != nil {
			d.log.Warn("Failed to load notification recipient", zap.Error(err), zap.String("user_id", in.UserID.String()))
		}
		return
	}

	if err := d.mailer.Send(user.Email, in.Title, in.Message); err != nil {
		d.metrics.NotificationSent("email", "failed")
		d.log.Warn("Failed to send notification email",
			zap.Error(err),
			zap.String("user_id", in.UserID.String()),
			zap.String("type", string(in.Type)),
		)
		return
	}
	d.metrics.NotificationSent("email", "sent")
}

type NotificationService interface {
	List(ctx context.Context, actor Actor, unreadOnly bool, req *request.PaginatedRequest) (*response.PaginatedResponse[response.NotificationResponse], error)
	MarkRead(ctx context.Context, actor Actor, notificationID string) error
	MarkAllRead(ctx context.Context, actor Actor) (*response.MarkAllReadResponse, error)
}

type notificationService struct {
	repo repository.NotificationRepository
	log  *zap.Logger
}

func NewNotificationService(repo repository.NotificationRepository, log *zap.Logger) NotificationService {
	return &notificationService{
		repo: repo,
		log:  log.With(zap.String("service", "notification")),
	}
}

func (s *notificationService) List(ctx context.Context, actor Actor, unreadOnly bool, req *request.PaginatedRequest) (*response.PaginatedResponse[response.NotificationResponse], error) {
	limit := req.Limit()
	offset := req.Offset()

	items, err := s.repo.ListByUser(ctx, actor.UserID, unreadOnly, limit, offset)
	if err != nil {
		s.log.Error("Failed to list notifications", zap.Error(err), zap.String("user_id", actor.UserID.String()))
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	total, err := s.repo.CountByUser(ctx, actor.UserID, unreadOnly)
	if err != nil {
		s.log.Error("Failed to count notifications", zap.Error(err))
		return nil, fmt.Errorf("count notifications: %w", err)
	}

	result := make([]response.NotificationResponse, len(items))
	for i, n := range items {
		result[i] = response.NotificationToResponse(n)
	}

	return response.NewPaginatedResponse(result, req.Page, limit, total), nil
}

func (s *notificationService) MarkRead(ctx context.Context, actor Actor, notificationID string) error {
	id, err := uuid.Parse(notificationID)
	if err != nil {
		return apperr.Validation(map[string]string{"id": "invalid notification ID"})
	}

	if err := s.repo.MarkRead(ctx, id, actor.UserID); err != nil {
		if apperr.Is(err, apperr.ErrNotFound) {
			return err
		}
		s.log.Error("Failed to mark notification read", zap.Error(err), zap.String("notification_id", notificationID))
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, actor Actor) (*response.MarkAllReadResponse, error) {
	updated, err := s.repo.MarkAllRead(ctx, actor.UserID)
	if err != nil {
		s.log.Error("Failed to mark all notifications read", zap.Error(err))
		return nil, fmt.Errorf("mark all notifications read: %w", err)
	}

	s.log.Info("Notifications marked read",
		zap.String("user_id", actor.UserID.String()),
		zap.Int64("updated", updated),
	)
	return &response.MarkAllReadResponse{Updated: updated}, nil
}
