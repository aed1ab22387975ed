package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/repositories"
	"github.com/Ramsey-B/fern/pkg/sink"
)

// Snapshot is what a run hands to its publishers.
type Snapshot struct {
	RunID   uuid.UUID
	Summary *Summary
	Wells   []models.WellRecord
	Files   []string
}

// Publisher sends a finished run somewhere outside the output directory.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, snap *Snapshot) error
}

// RepositoryPublisher stores the snapshot in Postgres.
type RepositoryPublisher struct {
	repo *repositories.RunRepository
}

func NewRepositoryPublisher(repo *repositories.RunRepository) *RepositoryPublisher {
	return &RepositoryPublisher{repo: repo}
}

func (p *RepositoryPublisher) Name() string { return "postgres" }

func (p *RepositoryPublisher) Publish(ctx context.Context, snap *Snapshot) error {
	summary, err := snap.Summary.Map()
	if err != nil {
		return err
	}
	finished := time.Now().UTC()
	run := &models.Run{
		ID:         snap.RunID,
		Status:     models.RunStatusSucceeded,
		StartedAt:  snap.Summary.StartedAt,
		FinishedAt: &finished,
		RowCount:   len(snap.Wells),
		Summary:    database.NewJSONB(summary),
	}
	if snap.Summary.LatestMonth != "" {
		month := snap.Summary.LatestMonth
		run.LatestMonth = &month
	}
	return p.repo.SaveSnapshot(ctx, run, snap.Wells)
}

// EventPublisher emits one Kafka event per well.
type EventPublisher struct {
	producer *kafka.Producer
}

func NewEventPublisher(producer *kafka.Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func (p *EventPublisher) Name() string { return "kafka" }

func (p *EventPublisher) Publish(ctx context.Context, snap *Snapshot) error {
	_, err := p.producer.PublishWells(ctx, snap.RunID.String(), snap.Wells)
	return err
}

// GraphPublisher writes wells, licences and companies to the graph.
type GraphPublisher struct {
	wells *graph.WellService
}

func NewGraphPublisher(wells *graph.WellService) *GraphPublisher {
	return &GraphPublisher{wells: wells}
}

func (p *GraphPublisher) Name() string { return "graph" }

func (p *GraphPublisher) Publish(ctx context.Context, snap *Snapshot) error {
	_, err := p.wells.Upsert(ctx, snap.RunID.String(), snap.Wells)
	return err
}

// UploadPublisher copies the output files to object storage.
type UploadPublisher struct {
	uploader *sink.GCSUploader
}

func NewUploadPublisher(uploader *sink.GCSUploader) *UploadPublisher {
	return &UploadPublisher{uploader: uploader}
}

func (p *UploadPublisher) Name() string { return "gcs" }

func (p *UploadPublisher) Publish(ctx context.Context, snap *Snapshot) error {
	uris, err := p.uploader.Upload(ctx, snap.RunID.String(), snap.Files)
	snap.Summary.Uploads = append(snap.Summary.Uploads, uris...)
	return err
}
