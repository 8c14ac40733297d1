package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/lucasmontegu/outly/internal/event"
)

// Job types accepted on the worker subscription.
const (
	jobTypeRefresh     = "refresh"
	jobTypeHealthCheck = "health_check"
)

// PubSubHandler consumes refresh jobs from a Pub/Sub subscription and
// dispatches them to the refresh pipeline.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	refreshJob       *RefreshJob
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	RefreshJob       *RefreshJob
	Logger           zerolog.Logger
}

// RefreshMessage is the payload published by the scheduler.
type RefreshMessage struct {
	JobType    string `json:"job_type"`
	RefreshAll bool   `json:"refresh_all,omitempty"`
	CheckOnly  bool   `json:"check_only,omitempty"`
}

// NewPubSubHandler connects to Pub/Sub and prepares the subscriber.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// A refresh sweep can run for minutes, so keep the lease extension
	// generous and the outstanding count low.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		refreshJob:       cfg.RefreshJob,
		logger:           cfg.Logger,
	}, nil
}

// Start blocks receiving messages until ctx is cancelled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close releases the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	start := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	var refreshMsg RefreshMessage
	if err := json.Unmarshal(msg.Data, &refreshMsg); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		msg.Nack()
		return
	}

	var err error
	switch refreshMsg.JobType {
	case jobTypeRefresh:
		err = h.handleRefresh(ctx)
	case jobTypeHealthCheck:
		err = h.handleHealthCheck(ctx)
	default:
		// Ack so an unrecognized job type is not redelivered forever.
		logger.Warn().Str("job_type", refreshMsg.JobType).Msg("unknown job type")
		msg.Ack()
		return
	}

	if err != nil {
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
		return
	}

	logger.Info().
		Str("job_type", refreshMsg.JobType).
		Dur("duration", time.Since(start)).
		Msg("job completed successfully")

	msg.Ack()
}

func (h *PubSubHandler) handleRefresh(ctx context.Context) error {
	result := h.refreshJob.Run(ctx)

	h.logger.Info().
		Dur("duration", result.Duration).
		Int("events_created", result.EventsCreated).
		Int("snapshots", result.Snapshots).
		Int("provider_errors", result.ProviderErrors).
		Int("routes_recomputed", result.RoutesRecomputed).
		Msg("refresh completed")

	// A Nack here gets the sweep redelivered, so only fail when the
	// majority of points produced no snapshot.
	if result.TotalPoints > 0 && result.Snapshots < result.TotalPoints/2 {
		return fmt.Errorf("too few snapshots stored: %d/%d", result.Snapshots, result.TotalPoints)
	}

	return nil
}

func (h *PubSubHandler) handleHealthCheck(ctx context.Context) error {
	h.logger.Debug().Msg("running health check")

	// Refresh a single point to verify provider connectivity. The sweep and
	// route recompute stay off so the check touches nothing but providers.
	probe := RefreshConfig{
		Targets: []RefreshTarget{
			{
				Name:     "health-check",
				Priority: 1,
				Points:   []event.Point{{Lat: 52.3676, Lng: 4.9041}}, // Amsterdam
			},
		},
		Concurrency: 1,
		Timeout:     10 * time.Second,
	}

	probeJob := NewRefreshJob(RefreshJobConfig{
		Config:   probe,
		Logger:   h.logger,
		Ingestor: h.refreshJob.ingestor,
	})

	result := probeJob.Run(ctx)

	if result.ProviderErrors > 0 {
		return fmt.Errorf("health check failed: %d provider errors", result.ProviderErrors)
	}

	h.logger.Debug().Msg("health check passed")
	return nil
}
