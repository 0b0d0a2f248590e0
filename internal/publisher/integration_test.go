//go:build integration

package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"car_resale/internal/domain"
)

type RabbitMQIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
}

func (s *RabbitMQIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	amqpURL, err := container.AmqpURL(s.ctx)
	s.Require().NoError(err)
	s.amqpURL = amqpURL
}

func (s *RabbitMQIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestRabbitMQIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQIntegrationSuite))
}

func (s *RabbitMQIntegrationSuite) TestPublisher_Connection() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange",
		RoutingKey: "test-routing-key",
		QueueName:  "test-queue",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.NoError(err)
	s.NotNil(pub)

	err = pub.Close()
	s.NoError(err)
}

func sampleListing() domain.Listing {
	return domain.Listing{
		ID:         "1003",
		URL:        "https://www.motorist.sg/used-car/1003",
		PostedDate: domain.NewDate(2025, time.June, 3),
		Status:     domain.StatusAvailable,
		ScrapeDate: domain.NewDate(2025, time.June, 4),
		Attributes: map[string]string{"title": "Toyota Corolla Altis 1.6A", "price": "$58,800"},
	}
}

func (s *RabbitMQIntegrationSuite) TestPublisher_PublishAdded() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-added",
		RoutingKey: "test-routing-key-added",
		QueueName:  "test-queue-added",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	err = pub.Publish(s.ctx, domain.ListingEvent{
		Action:  domain.EventAdded,
		Site:    domain.SiteMotorist,
		Listing: sampleListing(),
	})
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.NotNil(msg)

	var received ListingMessage
	err = json.Unmarshal(msg.Body, &received)
	s.NoError(err)
	s.Equal(domain.EventAdded, received.Action)
	s.Equal(domain.SiteMotorist, received.Site)
	s.Equal("1003", received.Listing.ID)
	s.True(received.Listing.PostedDate.Equal(domain.NewDate(2025, time.June, 3)))
}

func (s *RabbitMQIntegrationSuite) TestPublisher_PublishSold() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-sold",
		RoutingKey: "test-routing-key-sold",
		QueueName:  "test-queue-sold",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	listing := sampleListing()
	listing.Status = domain.StatusSold
	err = pub.Publish(s.ctx, domain.ListingEvent{Action: domain.EventSold, Site: domain.SiteCarro, Listing: listing})
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.NotNil(msg)

	var received ListingMessage
	err = json.Unmarshal(msg.Body, &received)
	s.NoError(err)
	s.Equal(domain.EventSold, received.Action)
	s.Equal(domain.StatusSold, received.Listing.Status)
}

func (s *RabbitMQIntegrationSuite) TestPublisher_MessageFormat() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-format",
		RoutingKey: "test-routing-key-format",
		QueueName:  "test-queue-format",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	err = pub.Publish(s.ctx, domain.ListingEvent{
		Action:  domain.EventAdded,
		Site:    domain.SiteSGCarMart,
		Listing: sampleListing(),
	})
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.NotNil(msg)

	s.Equal("application/json", msg.ContentType)
	s.Equal(string(domain.EventAdded), msg.Type)
	s.NotEmpty(msg.MessageId)

	var received ListingMessage
	err = json.Unmarshal(msg.Body, &received)
	s.NoError(err)

	s.Equal(msg.MessageId, received.ID)
	s.Equal("$58,800", received.Listing.Attributes["price"])
	s.Equal("Toyota Corolla Altis 1.6A", received.Listing.Attributes["title"])
	s.False(received.Timestamp.IsZero())
}

func (s *RabbitMQIntegrationSuite) TestPublisher_MessagePersistence() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-persist",
		RoutingKey: "test-routing-key-persist",
		QueueName:  "test-queue-persist",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	err = pub.Publish(s.ctx, domain.ListingEvent{Action: domain.EventAdded, Site: domain.SiteCarro, Listing: sampleListing()})
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.NotNil(msg)

	s.Equal(uint8(amqp.Persistent), msg.DeliveryMode)
}

func (s *RabbitMQIntegrationSuite) consumeMessage(cfg Config) *amqp.Delivery {
	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	msgs, err := ch.Consume(cfg.QueueName, "", true, false, false, false, nil)
	s.Require().NoError(err)

	select {
	case msg := <-msgs:
		return &msg
	case <-time.After(5 * time.Second):
		s.Fail("Timeout waiting for message")
		return nil
	}
}