package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Nanikworkforce/TET-Bloom/core/group"
	"github.com/Nanikworkforce/TET-Bloom/core/teacher"
)

const groupColumns = "id, name, note, created_by, status, created_at, updated_at"

// unknown teachers are dropped instead of failing the foreign key
const insertMembers = `INSERT INTO group_teachers (group_id, teacher_id)
SELECT $1, id FROM teachers WHERE id::text = ANY($2)
ON CONFLICT DO NOTHING`

type groupRow struct {
	ID        string      `db:"id"`
	Name      string      `db:"name"`
	Note      null.String `db:"note"`
	CreatedBy null.String `db:"created_by"`
	Status    string      `db:"status"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (r groupRow) group(teacherIDs []string) group.ObservationGroup {
	return group.ObservationGroup{
		ID:         r.ID,
		Name:       r.Name,
		Note:       r.Note.String,
		CreatedBy:  r.CreatedBy.String,
		TeacherIDs: teacherIDs,
		Status:     r.Status,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

type groupRepository struct {
	db *sqlx.DB
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *sqlx.DB) group.Repository {
	return &groupRepository{db: db}
}

// inTx runs fn in a transaction, committed only when fn succeeds.
func (repo *groupRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func memberIDs(ctx context.Context, q sqlx.QueryerContext, groupID string) ([]string, error) {
	ids := make([]string, 0)
	if err := sqlx.SelectContext(ctx, q, &ids, "SELECT teacher_id FROM group_teachers WHERE group_id = $1 ORDER BY teacher_id", groupID); err != nil {
		return nil, errors.Wrap(err, "selecting group members")
	}
	return ids, nil
}

func (repo *groupRepository) CreateGroup(ctx context.Context, g group.ObservationGroup) (group.ObservationGroup, error) {
	g.ID = uuid.NewString()
	err := repo.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(
			ctx,
			"INSERT INTO observation_groups ("+groupColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
			g.ID, g.Name,
			null.NewString(g.Note, g.Note != ""), null.NewString(g.CreatedBy, g.CreatedBy != ""),
			g.Status, g.CreatedAt.UTC(), g.UpdatedAt.UTC(),
		)
		if err != nil {
			return errors.Wrap(err, "inserting group")
		}
		if _, err = tx.ExecContext(ctx, insertMembers, g.ID, pq.Array(g.TeacherIDs)); err != nil {
			return errors.Wrap(err, "inserting group members")
		}
		g.TeacherIDs, err = memberIDs(ctx, tx, g.ID)
		return err
	})
	if err != nil {
		return group.ObservationGroup{}, err
	}
	return g, nil
}

func (repo *groupRepository) GetGroupByID(ctx context.Context, id string) (group.ObservationGroup, error) {
	if _, err := uuid.Parse(id); err != nil {
		return group.ObservationGroup{}, group.ErrNotFound
	}
	var row groupRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+groupColumns+" FROM observation_groups WHERE id = $1", id); err != nil {
		return group.ObservationGroup{}, notFound(err, group.ErrNotFound, "selecting group")
	}
	ids, err := memberIDs(ctx, repo.db, id)
	if err != nil {
		return group.ObservationGroup{}, err
	}
	return row.group(ids), nil
}

func (repo *groupRepository) exists(ctx context.Context, q sqlx.QueryerContext, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return group.ErrNotFound
	}
	var exists bool
	if err := sqlx.GetContext(ctx, q, &exists, "SELECT EXISTS (SELECT 1 FROM observation_groups WHERE id = $1)", id); err != nil {
		return errors.Wrap(err, "checking group")
	}
	if !exists {
		return group.ErrNotFound
	}
	return nil
}

func (repo *groupRepository) ReplaceGroupTeachers(ctx context.Context, groupID string, teacherIDs []string) error {
	return repo.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := repo.exists(ctx, tx, groupID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM group_teachers WHERE group_id = $1", groupID); err != nil {
			return errors.Wrap(err, "deleting group members")
		}
		if _, err := tx.ExecContext(ctx, insertMembers, groupID, pq.Array(teacherIDs)); err != nil {
			return errors.Wrap(err, "inserting group members")
		}
		_, err := tx.ExecContext(ctx, "UPDATE observation_groups SET updated_at = $2 WHERE id = $1", groupID, time.Now().UTC())
		return errors.Wrap(err, "touching group")
	})
}

func (repo *groupRepository) ListGroupMembers(ctx context.Context, groupID string) ([]teacher.Teacher, error) {
	if err := repo.exists(ctx, repo.db, groupID); err != nil {
		return nil, err
	}
	rows := make([]teacherRow, 0)
	q := teacherSelect + " JOIN group_teachers gt ON gt.teacher_id = t.id WHERE gt.group_id = $1 ORDER BY t.name"
	if err := repo.db.SelectContext(ctx, &rows, q, groupID); err != nil {
		return nil, errors.Wrap(err, "selecting group members")
	}
	return teachersFromRows(rows), nil
}
