package worker

import (
	"context"
	"encoding/json"
	"time"

	"partsync/internal/config"
	"partsync/internal/database"
	"partsync/internal/logger"
	"partsync/internal/services/premier"
	"partsync/internal/services/sema"
	"partsync/internal/sync"

	"github.com/robfig/cron/v3"
	"github.com/segmentio/kafka-go"
)

// Job is one queued sync request. An empty or "full" entity runs the whole
// pipeline.
type Job struct {
	Entity    string    `json:"entity"`
	Mode      string    `json:"mode"`
	Timestamp time.Time `json:"timestamp"`
}

// Worker consumes queued sync jobs and runs the scheduled nightly full
// sync.
type Worker struct {
	config *config.Config
	logger *logger.Logger
	reader *kafka.Reader
	runner *sync.Runner
	cron   *cron.Cron
}

func New(cfg *config.Config, log *logger.Logger, db *database.Database) *Worker {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{cfg.KafkaBrokers},
		GroupID:        "partsync-worker",
		Topic:          "sync-jobs",
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})

	semaClient := sema.NewClient(cfg.SemaBaseURL, cfg.SemaUsername, cfg.SemaPassword, log)
	premierClient := premier.NewClient(cfg.PremierBaseURL, cfg.PremierAPIKey, log)
	runner := sync.NewRunner(db.DB, semaClient, premierClient, cfg.PremierChunkSize, log)

	return &Worker{
		config: cfg,
		logger: log,
		reader: reader,
		runner: runner,
		cron:   cron.New(),
	}
}

func (w *Worker) Start() {
	w.logger.Info("Worker started, listening for sync jobs...")

	if w.config.SyncCron != "" {
		_, err := w.cron.AddFunc(w.config.SyncCron, w.runFull)
		if err != nil {
			w.logger.Error("Bad sync schedule %q: %v", w.config.SyncCron, err)
		} else {
			w.cron.Start()
			w.logger.Info("Scheduled full sync: %s", w.config.SyncCron)
		}
	}

	for {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		message, err := w.reader.ReadMessage(ctx)
		cancel()

		if err != nil {
			w.logger.Error("Failed to read message: %v", err)
			continue
		}

		w.logger.Debug("Received job: %s", string(message.Value))

		var job Job
		if err := json.Unmarshal(message.Value, &job); err != nil {
			w.logger.Error("Failed to parse job: %v", err)
			continue
		}

		w.process(job)
	}
}

func (w *Worker) process(job Job) {
	ctx := context.Background()

	if job.Entity == "" || job.Entity == "full" {
		w.runFull()
		return
	}

	msgs, err := w.runner.RunEntity(ctx, job.Entity, job.Mode)
	if err != nil {
		w.logger.Error("Sync job %s failed: %v", job.Entity, err)
		return
	}
	w.report(job.Entity, msgs)
}

func (w *Worker) runFull() {
	w.logger.Info("Starting full sync run")
	msgs, err := w.runner.RunFull(context.Background())
	if err != nil {
		w.logger.Error("Full sync failed: %v", err)
		return
	}
	w.report("full", msgs)
}

func (w *Worker) report(name string, msgs []string) {
	errs := 0
	for _, msg := range msgs {
		if sync.IsErrorMsg(msg) {
			errs++
			w.logger.Warn("%s", msg)
		} else {
			w.logger.Debug("%s", msg)
		}
	}
	w.logger.Info("Sync %s finished: %d messages, %d errors", name, len(msgs), errs)
}

func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.cron.Stop()
	w.reader.Close()
}
