package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/playtube/user-service/internal/domain"
	pkgkafka "github.com/playtube/user-service/pkg/kafka"
)

// Kafka topic constants for user domain events.
const (
	TopicUserRegistered      = "playtube.user.registered"
	TopicUserLoggedIn        = "playtube.user.logged_in"
	TopicUserPasswordChanged = "playtube.user.password_changed"
)

// Aggregate type constant.
const AggregateTypeUser = "user"

// Source identifier for events originating from this service.
const SourceUserService = "user-service"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// UserLoggedInData is the payload for a user.logged_in event.
type UserLoggedInData struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// PasswordChangedData is the payload for a user.password_changed event.
type PasswordChangedData struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Producer publishes user domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the user service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, user.ID, AggregateTypeUser, SourceUserService, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return nil
}

// PublishUserLoggedIn publishes a user.logged_in event.
func (p *Producer) PublishUserLoggedIn(ctx context.Context, user *domain.User) error {
	data := UserLoggedInData{
		ID:       user.ID,
		Username: user.Username,
	}

	event, err := pkgkafka.NewEvent(TopicUserLoggedIn, user.ID, AggregateTypeUser, SourceUserService, data)
	if err != nil {
		return fmt.Errorf("create user.logged_in event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserLoggedIn, event); err != nil {
		return fmt.Errorf("publish user.logged_in event: %w", err)
	}

	return nil
}

// PublishPasswordChanged publishes a user.password_changed event.
func (p *Producer) PublishPasswordChanged(ctx context.Context, userID, email string) error {
	data := PasswordChangedData{
		UserID: userID,
		Email:  email,
	}

	event, err := pkgkafka.NewEvent(TopicUserPasswordChanged, userID, AggregateTypeUser, SourceUserService, data)
	if err != nil {
		return fmt.Errorf("create user.password_changed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserPasswordChanged, event); err != nil {
		return fmt.Errorf("publish user.password_changed event: %w", err)
	}

	return nil
}
