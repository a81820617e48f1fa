package copy

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cdpops/segment-copier/internal/cdp"
	"github.com/cdpops/segment-copier/internal/metrics"
	"github.com/cdpops/segment-copier/internal/models"
	"github.com/cdpops/segment-copier/internal/workflow"
)

// Params carries one copy run's inputs.
type Params struct {
	SrcParent string
	SrcKey    string
	DstParent string
	DstName   string
	DstKey    string
	Instance  string

	CopyAssets     bool // folders, journeys, segments
	CopyDataAssets bool // underlying databases via workflows
}

// Runner wires the phases of a copy run: optional data-asset replication,
// parent segment upsert, then the hierarchy copy. A failure in any phase
// aborts the remaining phases; progress already applied is kept.
type Runner struct {
	Logger  *zap.Logger
	Poll    workflow.PollConfig
	Options []cdp.Option

	// Test seams.
	newManager func(region cdp.Region, apiKey string, logger *zap.Logger) *workflow.Manager
	resolve    func(instance string) cdp.Region
}

// NewRunner builds a runner with production polling defaults.
func NewRunner(logger *zap.Logger, opts ...cdp.Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		Logger:     logger,
		Poll:       workflow.DefaultPollConfig(),
		Options:    opts,
		newManager: workflow.NewManager,
		resolve:    cdp.ResolveRegion,
	}
}

// Run executes one copy. The returned error marks the run failed; partial
// progress already applied to the destination is kept.
func (r *Runner) Run(ctx context.Context, p Params, emit Emit) error {
	started := time.Now()
	region := r.resolve(p.Instance)
	r.Logger.Info("starting copy run",
		zap.String("region", region.Name),
		zap.String("source", p.SrcParent),
		zap.String("destination", p.DstParent))

	src := cdp.NewClient(region.CDPBase, p.SrcKey, r.Logger, r.Options...)
	dst := cdp.NewClient(region.CDPBase, p.DstKey, r.Logger, r.Options...)
	copier := NewCopier(src, dst, r.Logger)

	if p.CopyDataAssets {
		emit(models.Progress("Initializing data assets copy..."))
		if err := r.copyDataAssets(ctx, region, src, p, emit); err != nil {
			if ctx.Err() != nil {
				metrics.RunsTotal.WithLabelValues("cancelled").Inc()
				return err
			}
			emit(models.ErrorEvent("Data assets copy failed: %v", err))
			metrics.RunsTotal.WithLabelValues("failed").Inc()
			return fmt.Errorf("copying data assets: %w", err)
		}
	}

	emit(models.Progress("Syncing parent segment definition..."))
	if err := copier.UpsertParentSegment(ctx, p.SrcParent, p.DstParent, p.DstName, emit); err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("parent segment: %w", err)
	}

	if p.CopyAssets {
		ledger, err := copier.CopyFoldersSegments(ctx, p.SrcParent, p.DstParent, emit)
		for _, line := range ledger.SummaryLines() {
			emit(models.Progress("%s", line))
		}
		if err != nil {
			metrics.RunsTotal.WithLabelValues("failed").Inc()
			return fmt.Errorf("copying hierarchy: %w", err)
		}
	}

	metrics.RunsTotal.WithLabelValues("completed").Inc()
	emit(models.Success("Copy run completed in %s", time.Since(started).Round(time.Second)))
	return nil
}

// copyDataAssets extracts database references from the source parent segment
// and replicates each database through the workflow pipeline.
func (r *Runner) copyDataAssets(ctx context.Context, region cdp.Region, src *cdp.Client, p Params, emit Emit) error {
	var doc interface{}
	if err := src.GetJSON(ctx, "audiences/"+p.SrcParent, &doc); err != nil {
		return fmt.Errorf("fetching source parent segment: %w", err)
	}
	refs := ExtractDataRefs(doc, r.Logger)
	databases := GroupByDatabase(refs)

	mgr := r.newManager(region, p.SrcKey, r.Logger)
	return mgr.CopyDataAssets(ctx, databases, p.DstKey, region.APIHost, r.Poll, emit)
}
