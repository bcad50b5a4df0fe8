package match

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/codauto/engine/engine/domain"
	"github.com/codauto/engine/pkg/natsutil"
)

const (
	// MatchSubject carries incoming batch requests.
	MatchSubject = "codauto.match"
	// ResultsSubject carries batch responses.
	ResultsSubject = "codauto.match.results"
	// DLQSubject receives batches that kept failing.
	DLQSubject = "codauto.match.dlq"
	// MaxRetries before a batch goes to the DLQ. Only batch-fatal errors
	// (catalog state) are retried; row failures are final in the response.
	MaxRetries = 3
)

// BatchRequest is one incoming batch of query rows.
type BatchRequest struct {
	RunID string                `json:"run_id"`
	Rows  []domain.VehicleQuery `json:"rows"`
}

// BatchResponse is published to ResultsSubject when a batch completes.
type BatchResponse struct {
	Summary domain.BatchSummary  `json:"summary"`
	Results []domain.MatchResult `json:"results"`
}

// dlqMessage is published to the DLQ on repeated batch failure.
type dlqMessage struct {
	Batch   BatchRequest `json:"batch"`
	Error   string       `json:"error"`
	Retries int          `json:"retries"`
}

// StartConsumer subscribes to MatchSubject and runs batches through the
// orchestrator. Batch-fatal errors are retried with an X-Retry-Count header
// and eventually dead-lettered; completed batches publish a BatchResponse.
func StartConsumer(nc *nats.Conn, o *Orchestrator, logger *slog.Logger) (*nats.Subscription, error) {
	if logger == nil {
		logger = slog.Default()
	}

	return nc.Subscribe(MatchSubject, func(msg *nats.Msg) {
		var batch BatchRequest
		if err := json.Unmarshal(msg.Data, &batch); err != nil {
			logger.Error("match: unmarshal batch failed", "error", err)
			return
		}
		if batch.RunID == "" {
			logger.Error("match: batch without run_id dropped")
			return
		}

		retries := 0
		if msg.Header != nil {
			if v := msg.Header.Get("X-Retry-Count"); v != "" {
				fmt.Sscanf(v, "%d", &retries)
			}
		}

		ctx := context.Background()
		results, summary, err := o.Run(ctx, batch.RunID, batch.Rows)
		if err != nil {
			retries++
			logger.Error("match: batch failed",
				"run_id", batch.RunID,
				"error", err,
				"retry", retries,
			)

			if retries >= MaxRetries {
				dlq := dlqMessage{Batch: batch, Error: err.Error(), Retries: retries}
				if pubErr := natsutil.Publish(ctx, nc, DLQSubject, dlq); pubErr != nil {
					logger.Error("match: DLQ publish failed", "run_id", batch.RunID, "error", pubErr)
				}
				return
			}

			retryMsg := nats.NewMsg(MatchSubject)
			retryMsg.Data = msg.Data
			retryMsg.Header = nats.Header{}
			retryMsg.Header.Set("X-Retry-Count", fmt.Sprintf("%d", retries))
			if pubErr := nc.PublishMsg(retryMsg); pubErr != nil {
				logger.Error("match: retry publish failed", "run_id", batch.RunID, "error", pubErr)
			}
			return
		}

		resp := BatchResponse{Summary: summary, Results: results}
		if err := natsutil.Publish(ctx, nc, ResultsSubject, resp); err != nil {
			logger.Error("match: results publish failed", "run_id", batch.RunID, "error", err)
		}
		if msg.Reply != "" {
			data, _ := json.Marshal(summary)
			_ = msg.Respond(data)
		}
	})
}
