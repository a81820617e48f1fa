package copy

import (
	"context"
	"fmt"

	"github.com/cdpops/segment-copier/internal/cdp"
	"github.com/cdpops/segment-copier/internal/models"
)

// UpsertParentSegment brings the destination parent segment's definition in
// line with the source's. The source document is fetched whole, re-keyed to
// the destination id and display name, and applied as an update when a
// matching audience already exists or as a create otherwise. When the update
// is rejected the parent is recreated from scratch.
func (c *Copier) UpsertParentSegment(ctx context.Context, srcParent, dstParent, dstName string, emit Emit) error {
	var src cdp.Entity
	if err := c.Src.GetJSON(ctx, "audiences/"+srcParent, &src); err != nil {
		return fmt.Errorf("fetching source parent segment: %w", err)
	}

	src["id"] = dstParent
	if dstName != "" {
		src["name"] = dstName
	}

	existing, err := c.findAudience(ctx, dstParent, dstName)
	if err != nil {
		return fmt.Errorf("listing destination audiences: %w", err)
	}

	if existing == "" {
		emit(models.Progress("Creating parent segment %s on destination", dstName))
		delete(src, "id")
		if _, err := c.Dst.Post(ctx, "audiences", src); err != nil {
			return fmt.Errorf("creating parent segment: %w", err)
		}
		return nil
	}

	emit(models.Progress("Updating parent segment %s on destination", existing))
	src["id"] = existing
	if _, err := c.Dst.Put(ctx, "audiences/"+existing, src); err != nil {
		// Some definition changes cannot be applied in place; fall back to
		// recreating the audience under the same name.
		emit(models.Progress("Update rejected, recreating parent segment %s", existing))
		if _, derr := c.Dst.Delete(ctx, "audiences/"+existing); derr != nil {
			return fmt.Errorf("updating parent segment: %w (delete fallback: %v)", err, derr)
		}
		delete(src, "id")
		if _, cerr := c.Dst.Post(ctx, "audiences", src); cerr != nil {
			return fmt.Errorf("recreating parent segment: %w", cerr)
		}
	}
	return nil
}

// findAudience locates the destination audience by id first, then by name.
// Returns "" when no match exists.
func (c *Copier) findAudience(ctx context.Context, id, name string) (string, error) {
	var audiences []cdp.Entity
	if err := c.Dst.GetJSON(ctx, "audiences", &audiences); err != nil {
		return "", err
	}
	for _, a := range audiences {
		if a.ID() == id {
			return id, nil
		}
	}
	if name != "" {
		for _, a := range audiences {
			if audienceName(a) == name {
				return a.ID(), nil
			}
		}
	}
	return "", nil
}

// audienceName reads the flat name field the audiences endpoint uses; entity
// responses nest it under attributes instead.
func audienceName(a cdp.Entity) string {
	if v, ok := a["name"].(string); ok {
		return v
	}
	return a.Name()
}
