package workflow

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/cdpops/segment-copier/internal/models"
)

// CopyDataAssets replicates every referenced database from source to
// destination: one td2td connection for the run, then one deployed and
// started workflow per database, all monitored to completion. Databases map
// name to the referenced table names (informational; the workflow copies the
// whole database).
func (m *Manager) CopyDataAssets(ctx context.Context, databases map[string][]string, destKey, destHost string, cfg PollConfig, emit func(models.Event)) error {
	if len(databases) == 0 {
		emit(models.Progress("No data references found, skipping data copy"))
		return nil
	}

	ts := m.clock().Unix()
	connectionName := fmt.Sprintf("mscopy_td2td_%d", ts)
	if err := m.CreateConnection(ctx, connectionName, "Auto generated connector for segment copy", destKey, destHost); err != nil {
		return err
	}

	names := make([]string, 0, len(databases))
	for db := range databases {
		names = append(names, db)
	}
	sort.Strings(names)
	emit(models.Progress("Found %d databases to copy", len(names)))

	var attempts []*Attempt
	for i, db := range names {
		emit(models.Progress("Database %s (%d tables referenced)", db, len(databases[db])))

		archive, err := BuildProject(connectionName, db, db)
		if err != nil {
			return fmt.Errorf("building project for %s: %w", db, err)
		}
		projectID, err := m.DeployProject(ctx, fmt.Sprintf("ms_segment_copy_%d_%d", ts, i), archive)
		if err != nil {
			return fmt.Errorf("deploying project for %s: %w", db, err)
		}
		workflowID, err := m.WorkflowID(ctx, projectID)
		if err != nil {
			return err
		}
		attemptID, err := m.Start(ctx, workflowID)
		if err != nil {
			return err
		}
		emit(models.Progress("Started workflow %s for database %s", attemptID, db))
		attempts = append(attempts, &Attempt{ID: attemptID, Database: db})
	}

	completed, failed, err := m.WaitAll(ctx, attempts, cfg, emit)
	if err != nil {
		return err
	}
	m.Logger.Info("data copy finished",
		zap.Int("completed", completed),
		zap.Int("failed", failed))
	emit(models.Progress("Data copy finished: %d completed, %d failed", completed, failed))
	if failed > 0 {
		return fmt.Errorf("%d of %d database copies failed", failed, len(attempts))
	}
	return nil
}
