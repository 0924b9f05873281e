package intent

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/openintent-ai/openintent/internal/storage"
)

// Graph is the result of GetGraph: every transitive descendant of root plus
// the rolled-up aggregate (spec §4.1, §4.4).
type Graph struct {
	Root      Intent          `json:"root"`
	Children  []Intent        `json:"children"`
	Aggregate AggregateStatus `json:"aggregate_status"`
}

// GetGraph returns root plus every transitive descendant (via parent_id),
// along with the aggregate completion summary.
func (s *Store) GetGraph(ctx context.Context, rootID uuid.UUID) (Graph, error) {
	root, err := s.Get(ctx, rootID)
	if err != nil {
		return Graph{}, err
	}

	children, err := s.descendants(ctx, rootID)
	if err != nil {
		return Graph{}, err
	}

	statuses := make([]string, 0, len(children)+1)
	statuses = append(statuses, root.Status)
	for _, c := range children {
		statuses = append(statuses, c.Status)
	}

	return Graph{
		Root:      root,
		Children:  children,
		Aggregate: ComputeAggregate(statuses),
	}, nil
}

// descendants performs a recursive CTE walk of parent_id from rootID.
func (s *Store) descendants(ctx context.Context, rootID uuid.UUID) ([]Intent, error) {
	rows, err := s.db.Query(ctx, `
		WITH RECURSIVE subtree AS (
			SELECT `+intentColumns+` FROM intents WHERE parent_id = $1
			UNION ALL
			SELECT i.* FROM intents i
			JOIN subtree s ON i.parent_id = s.id
		)
		SELECT * FROM subtree
	`, rootID)
	if err != nil {
		return nil, fmt.Errorf("walking descendants: %w", err)
	}
	defer rows.Close()

	var out []Intent
	for rows.Next() {
		iv, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

// dependenciesSatisfied reports whether every depends_on target of iv has
// status COMPLETED, given the status lookup map (which must include iv's
// siblings and any cross-subtree dependencies).
func dependenciesSatisfied(iv Intent, statusByID map[uuid.UUID]string) bool {
	for _, dep := range iv.DependsOn {
		if statusByID[dep] != StatusCompleted {
			return false
		}
	}
	return true
}

// ReadyChildren returns descendants of root that are PENDING with every
// dependency COMPLETED (spec §4.1, §4.4).
func (s *Store) ReadyChildren(ctx context.Context, rootID uuid.UUID) ([]Intent, error) {
	children, err := s.descendants(ctx, rootID)
	if err != nil {
		return nil, err
	}

	statusByID := statusIndex(children)

	var ready []Intent
	for _, c := range children {
		if c.Status == StatusPending && dependenciesSatisfied(c, statusByID) {
			ready = append(ready, c)
		}
	}
	return ready, nil
}

// BlockedChildren returns descendants of root that have at least one
// non-completed dependency (spec §4.1).
func (s *Store) BlockedChildren(ctx context.Context, rootID uuid.UUID) ([]Intent, error) {
	children, err := s.descendants(ctx, rootID)
	if err != nil {
		return nil, err
	}

	statusByID := statusIndex(children)

	var blocked []Intent
	for _, c := range children {
		if len(c.DependsOn) == 0 {
			continue
		}
		if !dependenciesSatisfied(c, statusByID) {
			blocked = append(blocked, c)
		}
	}
	return blocked, nil
}

func statusIndex(intents []Intent) map[uuid.UUID]string {
	idx := make(map[uuid.UUID]string, len(intents))
	for _, iv := range intents {
		idx[iv.ID] = iv.Status
	}
	return idx
}

// wouldCycle reports whether setting child's parent to parentID, or adding a
// depends_on edge from fromID to toID, would create a cycle. It walks
// parent_id/depends_on ancestors of parentID (or toID) looking for fromID.
func wouldCycle(ctx context.Context, db storage.DBTX, fromID, toID uuid.UUID) (bool, error) {
	if fromID == toID {
		return true, nil
	}

	visited := map[uuid.UUID]bool{}
	frontier := []uuid.UUID{toID}

	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		if cur == fromID {
			return true, nil
		}

		var parentID *uuid.UUID
		var dependsOn []uuid.UUID
		err := db.QueryRow(ctx, `SELECT parent_id, depends_on FROM intents WHERE id = $1`, cur).Scan(&parentID, &dependsOn)
		if err != nil {
			continue
		}
		if parentID != nil {
			frontier = append(frontier, *parentID)
		}
		frontier = append(frontier, dependsOn...)
	}

	return false, nil
}
