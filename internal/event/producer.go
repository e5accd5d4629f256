package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Ronak-Malkan/teachyourselfmath/internal/domain"
	"github.com/Ronak-Malkan/teachyourselfmath/pkg/kafka"
	"github.com/Ronak-Malkan/teachyourselfmath/pkg/logger"
)

// Kafka topics this service publishes to.
const (
	TopicUserRegistered         = "user.registered"
	TopicPasswordResetRequested = "user.password_reset_requested"
	TopicProblemCreated         = "problem.created"
)

const source = "teachyourselfmath"

// Publisher is the narrow slice of the Kafka producer the service layer needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *kafka.Event) error
}

// Producer publishes domain events. The notification worker consumes
// user.password_reset_requested to deliver the reset email.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

func NewProducer(publisher Publisher, log *slog.Logger) *Producer {
	return &Producer{publisher: publisher, logger: log}
}

// UserRegisteredPayload is the data for user.registered events.
type UserRegisteredPayload struct {
	UserID   int64  `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// PasswordResetRequestedPayload carries the plaintext reset token to the
// mailer. The token never appears in an API response.
type PasswordResetRequestedPayload struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ProblemCreatedPayload is the data for problem.created events.
type ProblemCreatedPayload struct {
	ProblemID  int64    `json:"problem_id"`
	Title      string   `json:"title"`
	Difficulty string   `json:"difficulty"`
	Tags       []string `json:"tags"`
}

// UserRegistered publishes a user.registered event.
func (p *Producer) UserRegistered(ctx context.Context, u *domain.User) error {
	payload := UserRegisteredPayload{
		UserID:   u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Username: u.Username,
	}
	return p.publish(ctx, TopicUserRegistered, strconv.FormatInt(u.ID, 10), "user", payload)
}

// PasswordResetRequested publishes a user.password_reset_requested event.
func (p *Producer) PasswordResetRequested(ctx context.Context, u *domain.User, token string, expiresAt time.Time) error {
	payload := PasswordResetRequestedPayload{
		UserID:    u.ID,
		Email:     u.Email,
		Token:     token,
		ExpiresAt: expiresAt,
	}
	return p.publish(ctx, TopicPasswordResetRequested, strconv.FormatInt(u.ID, 10), "user", payload)
}

// ProblemCreated publishes a problem.created event.
func (p *Producer) ProblemCreated(ctx context.Context, pr *domain.Problem) error {
	payload := ProblemCreatedPayload{
		ProblemID:  pr.ID,
		Title:      pr.Title,
		Difficulty: pr.Difficulty,
		Tags:       pr.Tags,
	}
	return p.publish(ctx, TopicProblemCreated, strconv.FormatInt(pr.ID, 10), "problem", payload)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, payload any) error {
	evt, err := kafka.NewEvent(topic, aggregateID, aggregateType, source, payload)
	if err != nil {
		return fmt.Errorf("build %s event: %w", topic, err)
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		evt.WithCorrelationID(cid)
	}
	if err := p.publisher.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}
