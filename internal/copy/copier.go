package copy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/cdpops/segment-copier/internal/cdp"
	"github.com/cdpops/segment-copier/internal/metrics"
	"github.com/cdpops/segment-copier/internal/models"
)

// Emit receives structured status events from the copy pipeline.
type Emit func(models.Event)

// createOutcome classifies one create attempt against the destination.
// Expected rejections are values, not errors; only systemic failures
// (network, exhausted retries, non-400 statuses) surface as Go errors.
type createOutcome int

const (
	outcomeCreated createOutcome = iota
	outcomeRenamed
	outcomeSkippedPredictive
	outcomeFailed
)

type createResult struct {
	outcome createOutcome
	id      string // destination id when created
	name    string // final name (may carry the uniqueness suffix)
	reason  string // rejection reason when failed
}

// Copier replays a source folder/segment hierarchy onto a destination
// instance, creating entities bottom-up and remapping every cross-reference
// through translation tables built as it goes.
type Copier struct {
	Src    *cdp.Client
	Dst    *cdp.Client
	Logger *zap.Logger

	// suffix disambiguates names on collision; derived from wall clock once
	// per run so every rename in a run shares the same token.
	suffix string
}

// NewCopier builds a copier over a source/destination client pair.
func NewCopier(src, dst *cdp.Client, logger *zap.Logger) *Copier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Copier{Src: src, Dst: dst, Logger: logger}
}

// CopyFoldersSegments copies the whole hierarchy under the source parent
// segment's root folder: folders first, then journeys, then segments in
// reference order. Per-entity rejections are tallied in the ledger; any
// systemic failure aborts and returns the partial ledger alongside the error.
func (c *Copier) CopyFoldersSegments(ctx context.Context, srcParent, dstParent string, emit Emit) (*Ledger, error) {
	ledger := &Ledger{}
	if c.suffix == "" {
		c.suffix = fmt.Sprintf("_copy_%d", time.Now().Unix())
	}

	srcRoot, err := c.rootFolderID(ctx, c.Src, srcParent)
	if err != nil {
		return ledger, fmt.Errorf("source root folder: %w", err)
	}
	dstRoot, err := c.rootFolderID(ctx, c.Dst, dstParent)
	if err != nil {
		return ledger, fmt.Errorf("destination root folder: %w", err)
	}

	var list cdp.EntityList
	if err := c.Src.GetJSON(ctx, fmt.Sprintf("entities/by-folder/%s?depth=32", srcRoot), &list); err != nil {
		return ledger, fmt.Errorf("fetching entities: %w", err)
	}

	var folders, segments, journeys []cdp.Entity
	for _, e := range list.Data {
		switch {
		case e.IsFolder():
			folders = append(folders, e)
		case e.IsSegment():
			segments = append(segments, e)
		case e.IsJourney():
			journeys = append(journeys, e)
		}
	}

	// Translation tables, seeded with the pre-existing root mapping. The
	// root folder itself is never re-created.
	foldersMap := map[string]string{srcRoot: dstRoot}
	segmentsMap := map[string]string{}

	if err := c.copyFolders(ctx, folders, srcRoot, foldersMap, ledger, emit); err != nil {
		return ledger, err
	}
	if err := c.copyJourneys(ctx, journeys, foldersMap, ledger, emit); err != nil {
		return ledger, err
	}
	if err := c.copySegments(ctx, segments, dstParent, foldersMap, segmentsMap, ledger, emit); err != nil {
		return ledger, err
	}
	return ledger, nil
}

// rootFolderID resolves a parent segment to its root folder.
func (c *Copier) rootFolderID(ctx context.Context, client *cdp.Client, parentID string) (string, error) {
	var doc cdp.Document
	if err := client.GetJSON(ctx, "entities/parent_segments/"+parentID, &doc); err != nil {
		return "", err
	}
	id := parentSegmentFolderID(doc.Data)
	if id == "" {
		return "", fmt.Errorf("parent segment %s has no root folder", parentID)
	}
	return id, nil
}

func parentSegmentFolderID(e cdp.Entity) string {
	rels, _ := e["relationships"].(map[string]interface{})
	psf, _ := rels["parentSegmentFolder"].(map[string]interface{})
	data, _ := psf["data"].(map[string]interface{})
	return cast.ToString(data["id"])
}

// copyFolders creates folders parent-first. The root is skipped; a folder
// whose parent never made it is recorded, not fatal.
func (c *Copier) copyFolders(ctx context.Context, folders []cdp.Entity, srcRoot string, foldersMap map[string]string, ledger *Ledger, emit Emit) error {
	if len(folders) == 0 {
		return nil
	}
	emit(models.Progress("Copying folders..."))

	g := newGraph()
	byID := make(map[string]cdp.Entity, len(folders))
	for _, f := range folders {
		byID[f.ID()] = f
		if parent := f.ParentFolderID(); parent != "" {
			g.addEdge(f.ID(), parent)
		} else {
			g.addNode(f.ID())
		}
	}
	order, err := g.creationOrder()
	if err != nil {
		return fmt.Errorf("folder graph: %w", err)
	}

	i := 0
	for _, fid := range order {
		if fid == srcRoot {
			continue
		}
		ent, ok := byID[fid]
		if !ok {
			// Parent id referenced from outside the fetched set; nothing to create.
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		i++

		parentSrc := ent.ParentFolderID()
		destParent, ok := foldersMap[parentSrc]
		if !ok {
			ledger.FoldersFailed = append(ledger.FoldersFailed, SkipRecord{ent.Name(), "missing parent folder"})
			metrics.EntitiesCopiedTotal.WithLabelValues("folder", "failed").Inc()
			emit(models.ErrorEvent("Failed to copy folder %s: parent folder was not copied", ent.Name()))
			continue
		}
		ent.SetParentFolderID(destParent)

		res, err := c.create(ctx, "entities/folders", ent)
		if err != nil {
			return fmt.Errorf("creating folder %s: %w", ent.Name(), err)
		}
		switch res.outcome {
		case outcomeCreated, outcomeRenamed:
			foldersMap[fid] = res.id
			ledger.FoldersCopied++
			metrics.EntitiesCopiedTotal.WithLabelValues("folder", "created").Inc()
			if res.outcome == outcomeRenamed {
				emit(models.Progress("Renamed folder to %s due to name conflict", res.name))
			}
			emit(models.Progress("[%d/%d] folder %s -> %s", i, len(folders), res.name, res.id))
		default:
			ledger.FoldersFailed = append(ledger.FoldersFailed, SkipRecord{ent.Name(), res.reason})
			metrics.EntitiesCopiedTotal.WithLabelValues("folder", "failed").Inc()
			emit(models.ErrorEvent("Failed to copy folder %s: %s", ent.Name(), res.reason))
		}
	}
	return nil
}

// copyJourneys replays journey entities into their mapped folders. Journeys
// have no dependency graph; only the folder reference is remapped.
func (c *Copier) copyJourneys(ctx context.Context, journeys []cdp.Entity, foldersMap map[string]string, ledger *Ledger, emit Emit) error {
	if len(journeys) == 0 {
		return nil
	}
	emit(models.Progress("Copying journeys..."))

	for i, ent := range journeys {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := ent.Name()
		if name == "" {
			name = ent.ID()
		}

		parentSrc := ent.ParentFolderID()
		if parentSrc == "" {
			ledger.JourneysSkipped = append(ledger.JourneysSkipped, SkipRecord{name, "missing parent folder"})
			emit(models.ErrorEvent("Skipping journey %s: missing parent folder", name))
			continue
		}
		destParent, ok := foldersMap[parentSrc]
		if !ok {
			ledger.JourneysSkipped = append(ledger.JourneysSkipped, SkipRecord{name, "parent folder not copied"})
			emit(models.ErrorEvent("Skipping journey %s: parent folder not copied", name))
			continue
		}
		ent.SetParentFolderID(destParent)

		_, err := c.Dst.Post(ctx, "entities/journeys", map[string]interface{}{"data": []cdp.Entity{ent}})
		if err != nil {
			var apiErr *cdp.APIError
			if errors.As(err, &apiErr) && apiErr.IsRejection() {
				ledger.JourneysFailed = append(ledger.JourneysFailed, SkipRecord{name, truncateReason(apiErr.Body)})
				metrics.EntitiesCopiedTotal.WithLabelValues("journey", "failed").Inc()
				emit(models.ErrorEvent("Failed to copy journey %s: %s", name, truncateReason(apiErr.Body)))
				continue
			}
			return fmt.Errorf("creating journey %s: %w", name, err)
		}
		ledger.JourneysCopied++
		metrics.EntitiesCopiedTotal.WithLabelValues("journey", "created").Inc()
		emit(models.Progress("[%d/%d] journey %s -> folder %s", i+1, len(journeys), name, destParent))
	}
	return nil
}

// copySegments creates segments referenced-first. Predictive segments are
// skipped up front; references to entities that never made it to the
// destination are left in place and the segment is flagged, never dropped.
func (c *Copier) copySegments(ctx context.Context, segments []cdp.Entity, dstParent string, foldersMap, segmentsMap map[string]string, ledger *Ledger, emit Emit) error {
	if len(segments) == 0 {
		return nil
	}
	emit(models.Progress("Copying segments..."))

	byID := make(map[string]cdp.Entity, len(segments))
	g := newGraph()
	for _, s := range segments {
		byID[s.ID()] = s
		g.addNode(s.ID())
	}
	for _, s := range segments {
		for _, ref := range segmentReferences(s.Rule()) {
			// References to segments outside the fetched set do not order
			// anything; the rule keeps them for the rewrite pass.
			if _, known := byID[ref]; known {
				g.addEdge(s.ID(), ref)
			}
		}
	}
	order, err := g.creationOrder()
	if err != nil {
		return fmt.Errorf("segment graph: %w", err)
	}

	for i, sid := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		ent := byID[sid]
		name := ent.Name()

		if ent.IsPredictiveSegment() {
			ledger.SegmentsSkipped = append(ledger.SegmentsSkipped, SkipRecord{name, "predictive segment"})
			metrics.EntitiesCopiedTotal.WithLabelValues("segment", "skipped").Inc()
			emit(models.Progress("Skipping segment %s: predictive segment", name))
			continue
		}

		parentSrc := ent.ParentFolderID()
		destFolder, ok := foldersMap[parentSrc]
		if !ok {
			ledger.SegmentsSkipped = append(ledger.SegmentsSkipped, SkipRecord{name, "missing parent folder"})
			metrics.EntitiesCopiedTotal.WithLabelValues("segment", "skipped").Inc()
			emit(models.ErrorEvent("Skipping segment %s: missing parent folder", name))
			continue
		}
		ent.SetParentFolderID(destFolder)
		ent.SetAudienceID(dstParent)

		missingRefs := false
		forEachReference(ent.Rule(), func(cond map[string]interface{}) {
			ref := referenceTarget(cond)
			if ref == "" {
				return
			}
			if destID, ok := segmentsMap[ref]; ok {
				setReferenceTarget(cond, destID)
			} else {
				missingRefs = true
			}
		})

		res, err := c.create(ctx, "entities/segments", ent)
		if err != nil {
			return fmt.Errorf("creating segment %s: %w", name, err)
		}
		switch res.outcome {
		case outcomeCreated, outcomeRenamed:
			segmentsMap[sid] = res.id
			ledger.SegmentsCopied++
			metrics.EntitiesCopiedTotal.WithLabelValues("segment", "created").Inc()
			if res.outcome == outcomeRenamed {
				emit(models.Progress("Renamed segment to %s due to name conflict", res.name))
			}
			if missingRefs {
				ledger.MissingRefs = append(ledger.MissingRefs, res.name)
				emit(models.Progress("[%d/%d] segment %s -> %s (missing refs)", i+1, len(order), res.name, res.id))
			} else {
				emit(models.Progress("[%d/%d] segment %s -> %s", i+1, len(order), res.name, res.id))
			}
		case outcomeSkippedPredictive:
			ledger.SegmentsSkipped = append(ledger.SegmentsSkipped, SkipRecord{name, "predictive segment"})
			metrics.EntitiesCopiedTotal.WithLabelValues("segment", "skipped").Inc()
			emit(models.Progress("Skipping segment %s: references a predictive segment", name))
		default:
			ledger.SegmentsFailed = append(ledger.SegmentsFailed, SkipRecord{name, res.reason})
			metrics.EntitiesCopiedTotal.WithLabelValues("segment", "failed").Inc()
			emit(models.ErrorEvent("Failed to copy segment %s: %s", name, res.reason))
		}
	}
	return nil
}

// create POSTs an entity to the destination, classifying expected 400
// rejections: a name collision gets one retry under a suffixed name, a
// predictive-segment reference becomes a skip, anything else a failure.
// Non-400 errors are returned as-is for the caller to abort on.
func (c *Copier) create(ctx context.Context, path string, ent cdp.Entity) (createResult, error) {
	body, err := c.Dst.Post(ctx, path, ent)
	if err == nil {
		return createResult{outcome: outcomeCreated, id: createdID(body), name: ent.Name()}, nil
	}

	var apiErr *cdp.APIError
	if !errors.As(err, &apiErr) || !apiErr.IsRejection() {
		return createResult{}, err
	}

	switch {
	case apiErr.IsNameConflict():
		renamed := ent.Name() + c.suffix
		ent.SetName(renamed)
		body, err := c.Dst.Post(ctx, path, ent)
		if err == nil {
			return createResult{outcome: outcomeRenamed, id: createdID(body), name: renamed}, nil
		}
		var again *cdp.APIError
		if errors.As(err, &again) && again.IsRejection() {
			return createResult{outcome: outcomeFailed, reason: truncateReason(again.Body)}, nil
		}
		return createResult{}, err
	case apiErr.IsPredictiveReference():
		return createResult{outcome: outcomeSkippedPredictive}, nil
	default:
		return createResult{outcome: outcomeFailed, reason: truncateReason(apiErr.Body)}, nil
	}
}

// createdID pulls data.id out of a create response.
func createdID(body []byte) string {
	doc, err := cdp.ParseDocument(body)
	if err != nil {
		return ""
	}
	return doc.Data.ID()
}

func truncateReason(s string) string {
	if len(s) <= 200 {
		return s
	}
	return s[:200] + "..."
}
