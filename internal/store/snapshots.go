package store

import (
	"context"
	"encoding/json"

	"github.com/pathlight-learning/pathlight-lms/internal/snapshot"
)

func (s *SQL) GetSnapshot(ctx context.Context, id string) (snapshot.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload_json FROM question_snapshots WHERE id=$1`, id)
	return scanSnapshot(row)
}

func (s *SQL) GetSnapshotByModule(ctx context.Context, moduleID string) (snapshot.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload_json FROM question_snapshots WHERE module_id=$1`, moduleID)
	return scanSnapshot(row)
}

// PutSnapshot upserts by module id; a rebuild keeps the id and overwrites
// the payload in place.
func (s *SQL) PutSnapshot(ctx context.Context, snap snapshot.Snapshot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO question_snapshots (id, module_id, payload_json, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (module_id) DO UPDATE SET payload_json=EXCLUDED.payload_json, updated_at=EXCLUDED.updated_at`,
		snap.ID, snap.ModuleID, mustJSON(snap), snap.CreatedAt, snap.UpdatedAt)
	return err
}

func scanSnapshot(row rowScanner) (snapshot.Snapshot, error) {
	var payload string
	if err := row.Scan(&payload); err != nil {
		return snapshot.Snapshot{}, notFound(err, "snapshot not found")
	}
	var snap snapshot.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return snapshot.Snapshot{}, err
	}
	return snap, nil
}
