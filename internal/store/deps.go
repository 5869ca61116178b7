package store

import "context"

// Dependency is a single child-depends-on-parent edge.
type Dependency struct {
	ChildID  string
	ParentID string
}

// AddDependency inserts a child->parent edge. The caller (internal/engine)
// is responsible for cycle detection before calling this — the store
// layer only enforces referential integrity via foreign keys.
func (s *Store) AddDependency(ctx context.Context, childID, parentID string) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT OR IGNORE INTO dependencies (child_id, parent_id) VALUES (?, ?)`,
		childID, parentID)
	return err
}

// RemoveDependency deletes a child->parent edge if present.
func (s *Store) RemoveDependency(ctx context.Context, childID, parentID string) error {
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM dependencies WHERE child_id = ? AND parent_id = ?`,
		childID, parentID)
	return err
}

// ParentsOf returns the ids of tasks that childID depends on.
func (s *Store) ParentsOf(ctx context.Context, childID string) ([]string, error) {
	return s.queryIDs(ctx, `SELECT parent_id FROM dependencies WHERE child_id = ?`, childID)
}

// ChildrenOf returns the ids of tasks that depend on parentID.
func (s *Store) ChildrenOf(ctx context.Context, parentID string) ([]string, error) {
	return s.queryIDs(ctx, `SELECT child_id FROM dependencies WHERE parent_id = ?`, parentID)
}

// AllDependencies returns every dependency edge in the store, used by
// internal/graph to build an in-memory adjacency structure in one pass
// rather than querying per-node.
func (s *Store) AllDependencies(ctx context.Context) ([]Dependency, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT child_id, parent_id FROM dependencies`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deps []Dependency
	for rows.Next() {
		var d Dependency
		if err := rows.Scan(&d.ChildID, &d.ParentID); err != nil {
			return nil, err
		}
		deps = append(deps, d)
	}
	return deps, rows.Err()
}

func (s *Store) queryIDs(ctx context.Context, query string, arg string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
