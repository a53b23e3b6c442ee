package workflows

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/circlerun/internal/core/domain"
	"github.com/samirrijal/circlerun/internal/gpx"
)

// Activity names, as registered from LoopActivities.
const (
	ActivityGenerateLoop   = "GenerateLoop"
	ActivitySaveFavorite   = "SaveFavorite"
	ActivityPublishSaved   = "PublishSaved"
	ActivityDeleteFavorite = "DeleteFavorite"

	// Error types that are never retried.
	ErrTypeInvalidRequest = "InvalidRequest"
	ErrTypeNoCandidate    = "NoCandidate"
	ErrTypeFavoriteExists = "FavoriteExists"
)

// SavedLoopInput is the input for SavedLoopWorkflow.
type SavedLoopInput struct {
	// Name of the favourite; empty means the default track name.
	Name        string            `json:"name"`
	Start       domain.Coordinate `json:"start"`
	TargetMiles float64           `json:"target_miles"`
	Smooth      bool              `json:"smooth"`
}

// SavedLoopResult is what SavedLoopWorkflow returns.
type SavedLoopResult struct {
	GenerationID string         `json:"generation_id"`
	FavoriteID   string         `json:"favorite_id"`
	Name         string         `json:"name"`
	Outcome      domain.Outcome `json:"outcome"`
	ActualMiles  float64        `json:"actual_miles"`
	Validated    bool           `json:"validated"`
}

// SavedLoopWorkflow generates a loop, saves it as a favourite and announces
// both. If the announcement fails the favourite is deleted again (saga
// compensation).
func SavedLoopWorkflow(ctx workflow.Context, input SavedLoopInput) (*SavedLoopResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting saved loop workflow", "target_miles", input.TargetMiles)

	nonRetryable := []string{ErrTypeInvalidRequest, ErrTypeNoCandidate, ErrTypeFavoriteExists}
	searchCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		// One search makes at most a handful of provider calls with delays.
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:        2,
			NonRetryableErrorTypes: nonRetryable,
		},
	})
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        100 * time.Millisecond,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: nonRetryable,
		},
	})

	// Step 1: Search
	var res domain.GenerationResult
	if err := workflow.ExecuteActivity(searchCtx, ActivityGenerateLoop, input).Get(ctx, &res); err != nil {
		return nil, err
	}

	name := input.Name
	if name == "" {
		name = gpx.TrackName(res.ActualMiles())
	}

	// Step 2: Save
	var favoriteID string
	if err := workflow.ExecuteActivity(ctx, ActivitySaveFavorite, name, &res).Get(ctx, &favoriteID); err != nil {
		return nil, err
	}

	// Step 3: Announce
	if err := workflow.ExecuteActivity(ctx, ActivityPublishSaved, name, &res).Get(ctx, nil); err != nil {
		logger.Warn("publish failed, compensating", "error", err)
		_ = workflow.ExecuteActivity(ctx, ActivityDeleteFavorite, name).Get(ctx, nil)
		return nil, err
	}

	logger.Info("Saved loop", "name", name, "favorite_id", favoriteID)
	return &SavedLoopResult{
		GenerationID: res.ID,
		FavoriteID:   favoriteID,
		Name:         name,
		Outcome:      res.Outcome,
		ActualMiles:  res.ActualMiles(),
		Validated:    res.Validated,
	}, nil
}

// StartSavedLoop starts SavedLoopWorkflow on taskQueue.
func StartSavedLoop(ctx context.Context, c client.Client, taskQueue string, input SavedLoopInput) (client.WorkflowRun, error) {
	opts := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("saved-loop-%.4f-%.4f-%.2f-%d", input.Start.Lat, input.Start.Lon, input.TargetMiles, time.Now().UnixNano()),
		TaskQueue: taskQueue,
	}
	run, err := c.ExecuteWorkflow(ctx, opts, SavedLoopWorkflow, input)
	if err != nil {
		return nil, fmt.Errorf("start saved loop workflow: %w", err)
	}
	return run, nil
}
