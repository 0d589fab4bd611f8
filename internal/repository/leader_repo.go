package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/leadertalk/leadertalk/internal/domain"
)

// LeaderRepository handles leader record persistence
type LeaderRepository struct {
	db *DB
}

// NewLeaderRepository creates a new leader repository
func NewLeaderRepository(db *DB) *LeaderRepository {
	return &LeaderRepository{db: db}
}

// Create creates a new leader record
func (r *LeaderRepository) Create(leader *domain.Leader) error {
	if leader.ID == "" {
		leader.ID = uuid.New().String()
	}
	now := time.Now()
	leader.CreatedAt = now
	leader.UpdatedAt = now

	_, err := r.db.Exec(`
		INSERT INTO leaders (id, name, source_document_ref, index_blob_ref, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, leader.ID, leader.Name, nullable(leader.SourceDocumentRef),
		nullable(leader.IndexBlobRef), leader.CreatedAt, leader.UpdatedAt)

	return err
}

// Get retrieves a leader by ID
func (r *LeaderRepository) Get(id string) (*domain.Leader, error) {
	leader := &domain.Leader{}
	var sourceRef, blobRef sql.NullString

	err := r.db.QueryRow(`
		SELECT id, name, source_document_ref, index_blob_ref, created_at, updated_at
		FROM leaders WHERE id = ?
	`, id).Scan(&leader.ID, &leader.Name, &sourceRef, &blobRef,
		&leader.CreatedAt, &leader.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	leader.SourceDocumentRef = sourceRef.String
	leader.IndexBlobRef = blobRef.String

	return leader, nil
}

// List retrieves all leaders
func (r *LeaderRepository) List() ([]*domain.Leader, error) {
	rows, err := r.db.Query(`
		SELECT id, name, source_document_ref, index_blob_ref, created_at, updated_at
		FROM leaders ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leaders []*domain.Leader
	for rows.Next() {
		leader := &domain.Leader{}
		var sourceRef, blobRef sql.NullString

		if err := rows.Scan(&leader.ID, &leader.Name, &sourceRef, &blobRef,
			&leader.CreatedAt, &leader.UpdatedAt); err != nil {
			return nil, err
		}

		leader.SourceDocumentRef = sourceRef.String
		leader.IndexBlobRef = blobRef.String
		leaders = append(leaders, leader)
	}

	return leaders, rows.Err()
}

// MarkIndexed sets the index blob reference and clears the source document
// reference in one statement. The IS NULL guard makes the at-most-once check
// authoritative under racing ingestions: the second runner sees false and
// no-ops. Returns whether this call won the transition.
func (r *LeaderRepository) MarkIndexed(id, blobRef string) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE leaders
		SET index_blob_ref = ?, source_document_ref = NULL, updated_at = ?
		WHERE id = ? AND index_blob_ref IS NULL
	`, blobRef, time.Now(), id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
