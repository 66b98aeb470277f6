package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caldant/contentflow/pkg/contentflow"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements contentflow.ContentRepository using PostgreSQL.
// Culture variants are stored as a jsonb document on the node row; the
// materialized path and the version stamp are maintained here.
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

const nodeColumns = `id, key, parent_id, path, name, content_type, sort_order,
	       trashed, restore_parent_id, awaiting_approval, variants, version,
	       created_at, updated_at`

// Error handling helper
func handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return contentflow.ErrConflict
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: referenced node missing", contentflow.ErrNodeNotFound)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

func scanNode(row pgx.Row) (*contentflow.ContentNode, error) {
	var node contentflow.ContentNode
	var variants []byte
	err := row.Scan(
		&node.ID, &node.Key, &node.ParentID, &node.Path, &node.Name,
		&node.ContentType, &node.SortOrder, &node.Trashed,
		&node.RestoreParentID, &node.AwaitingApproval, &variants,
		&node.Version, &node.CreatedAt, &node.UpdatedAt)
	if err != nil {
		return nil, err
	}
	node.Variants = make(map[string]*contentflow.CultureVariant)
	if len(variants) > 0 {
		if err := json.Unmarshal(variants, &node.Variants); err != nil {
			return nil, fmt.Errorf("decode variants for node %d: %w", node.ID, err)
		}
	}
	return &node, nil
}

func (r *Repository) GetNode(ctx context.Context, id int) (*contentflow.ContentNode, error) {
	query := `SELECT ` + nodeColumns + ` FROM content_node WHERE id = $1`

	node, err := scanNode(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentflow.ErrNodeNotFound
		}
		return nil, handlePostgresError("get node", err)
	}
	return node, nil
}

func (r *Repository) GetNodeByKey(ctx context.Context, key uuid.UUID) (*contentflow.ContentNode, error) {
	query := `SELECT ` + nodeColumns + ` FROM content_node WHERE key = $1`

	node, err := scanNode(r.db.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentflow.ErrNodeNotFound
		}
		return nil, handlePostgresError("get node by key", err)
	}
	return node, nil
}

func (r *Repository) GetChildren(ctx context.Context, q contentflow.ChildrenQuery) ([]*contentflow.ContentNode, int, error) {
	where := `parent_id = $1`
	args := []interface{}{q.ParentID}
	if !q.IncludeTrashed && q.ParentID != contentflow.RecycleBinID {
		where += ` AND NOT trashed`
	}
	if q.Filter != "" {
		args = append(args, "%"+q.Filter+"%")
		where += fmt.Sprintf(` AND name ILIKE $%d`, len(args))
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM content_node WHERE ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, handlePostgresError("count children", err)
	}

	orderBy := "sort_order"
	switch q.OrderBy {
	case "name":
		orderBy = "name"
	case "createdAt":
		orderBy = "created_at"
	}
	if q.Desc {
		orderBy += " DESC"
	}

	query := `SELECT ` + nodeColumns + ` FROM content_node WHERE ` + where +
		` ORDER BY ` + orderBy
	if q.Offset > 0 {
		args = append(args, q.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, handlePostgresError("get children", err)
	}
	defer rows.Close()

	var children []*contentflow.ContentNode
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, 0, handlePostgresError("scan node", err)
		}
		children = append(children, node)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, handlePostgresError("iterate node rows", err)
	}
	return children, total, nil
}

func (r *Repository) SaveNode(ctx context.Context, node *contentflow.ContentNode) error {
	variants, err := json.Marshal(node.Variants)
	if err != nil {
		return fmt.Errorf("encode variants: %w", err)
	}

	if node.ID == 0 {
		return r.insertNode(ctx, node, variants)
	}

	query := `
		UPDATE content_node SET
			name = $3, restore_parent_id = $4, awaiting_approval = $5,
			variants = $6, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING parent_id, path, trashed, sort_order, version, updated_at`

	err = r.db.QueryRow(ctx, query,
		node.ID, node.Version, node.Name, node.RestoreParentID,
		node.AwaitingApproval, variants).Scan(
		&node.ParentID, &node.Path, &node.Trashed, &node.SortOrder,
		&node.Version, &node.UpdatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return handlePostgresError("save node", err)
	}

	// No row matched: either the node is gone or the version is stale.
	var exists bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM content_node WHERE id = $1)`,
		node.ID).Scan(&exists); err != nil {
		return handlePostgresError("save node", err)
	}
	if !exists {
		return contentflow.ErrNodeNotFound
	}
	return contentflow.ErrConflict
}

func (r *Repository) insertNode(ctx context.Context, node *contentflow.ContentNode, variants []byte) error {
	if node.Key == uuid.Nil {
		node.Key = uuid.New()
	}
	if node.ParentID == 0 {
		node.ParentID = contentflow.RootID
	}
	parentPath, err := r.parentPath(ctx, node.ParentID)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO content_node (
			key, parent_id, path, name, content_type, sort_order, trashed,
			restore_parent_id, awaiting_approval, variants, version,
			created_at, updated_at
		) VALUES (
			$1, $2, '', $3, $4,
			(SELECT COALESCE(MAX(sort_order) + 1, 0) FROM content_node WHERE parent_id = $2),
			$5, $6, $7, $8, 1, NOW(), NOW()
		)
		RETURNING id, sort_order, created_at, updated_at`

	trashed := contentflow.PathContains(parentPath, contentflow.RecycleBinID)
	err = r.db.QueryRow(ctx, query,
		node.Key, node.ParentID, node.Name, node.ContentType,
		trashed, node.RestoreParentID, node.AwaitingApproval, variants).Scan(
		&node.ID, &node.SortOrder, &node.CreatedAt, &node.UpdatedAt)
	if err != nil {
		return handlePostgresError("insert node", err)
	}

	// The path embeds the generated id, so it is written in a second step.
	node.Path = contentflow.JoinPath(parentPath, node.ID)
	node.Trashed = trashed
	node.Version = 1
	if _, err := r.db.Exec(ctx,
		`UPDATE content_node SET path = $2 WHERE id = $1`,
		node.ID, node.Path); err != nil {
		return handlePostgresError("insert node", err)
	}
	return nil
}

func (r *Repository) parentPath(ctx context.Context, parentID int) (string, error) {
	switch parentID {
	case contentflow.RootID, contentflow.RecycleBinID:
		return contentflow.JoinPath("", parentID), nil
	}
	var path string
	err := r.db.QueryRow(ctx,
		`SELECT path FROM content_node WHERE id = $1`, parentID).Scan(&path)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", contentflow.ErrParentNotFound
		}
		return "", handlePostgresError("resolve parent", err)
	}
	return path, nil
}

func (r *Repository) DeleteNode(ctx context.Context, id int) error {
	var path string
	err := r.db.QueryRow(ctx,
		`SELECT path FROM content_node WHERE id = $1`, id).Scan(&path)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return contentflow.ErrNodeNotFound
		}
		return handlePostgresError("delete node", err)
	}

	if _, err := r.db.Exec(ctx,
		`DELETE FROM content_node WHERE path = $1 OR path LIKE $1 || ',%'`,
		path); err != nil {
		return handlePostgresError("delete node", err)
	}
	return nil
}

func (r *Repository) MoveNode(ctx context.Context, id, newParentID int) error {
	var oldPath string
	err := r.db.QueryRow(ctx,
		`SELECT path FROM content_node WHERE id = $1`, id).Scan(&oldPath)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return contentflow.ErrNodeNotFound
		}
		return handlePostgresError("move node", err)
	}
	parentPath, err := r.parentPath(ctx, newParentID)
	if err != nil {
		return err
	}

	newPath := contentflow.JoinPath(parentPath, id)
	trashed := contentflow.PathContains(newPath, contentflow.RecycleBinID)

	// Every node in the subtree shares the prefix, so the trashed flag is
	// uniform across the rewrite.
	query := `
		UPDATE content_node SET
			path = $2 || substr(path, length($1) + 1),
			trashed = $3, version = version + 1, updated_at = NOW()
		WHERE path = $1 OR path LIKE $1 || ',%'`
	if _, err := r.db.Exec(ctx, query, oldPath, newPath, trashed); err != nil {
		return handlePostgresError("move node", err)
	}

	query = `
		UPDATE content_node SET
			parent_id = $2,
			sort_order = (SELECT COALESCE(MAX(sort_order) + 1, 0)
			              FROM content_node WHERE parent_id = $2 AND id <> $1)
		WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id, newParentID); err != nil {
		return handlePostgresError("move node", err)
	}
	return nil
}

func (r *Repository) UpdateSortOrders(ctx context.Context, parentID int, orderedIDs []int) error {
	// Validate the whole batch before touching anything.
	rows, err := r.db.Query(ctx,
		`SELECT id, parent_id FROM content_node WHERE id = ANY($1)`, orderedIDs)
	if err != nil {
		return handlePostgresError("sort children", err)
	}
	parents := make(map[int]int, len(orderedIDs))
	for rows.Next() {
		var id, pid int
		if err := rows.Scan(&id, &pid); err != nil {
			rows.Close()
			return handlePostgresError("sort children", err)
		}
		parents[id] = pid
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return handlePostgresError("sort children", err)
	}
	for _, id := range orderedIDs {
		pid, found := parents[id]
		if !found {
			return contentflow.ErrNodeNotFound
		}
		if pid != parentID {
			return contentflow.ErrStructuralViolation
		}
	}

	query := `
		UPDATE content_node AS n SET
			sort_order = o.ord - 1, version = n.version + 1, updated_at = NOW()
		FROM (SELECT unnest($1::bigint[]) AS id,
		             generate_subscripts($1::bigint[], 1) AS ord) AS o
		WHERE n.id = o.id`
	if _, err := r.db.Exec(ctx, query, orderedIDs); err != nil {
		return handlePostgresError("sort children", err)
	}
	return nil
}

func (r *Repository) InsertRelation(ctx context.Context, rel *contentflow.Relation) error {
	query := `
		INSERT INTO content_relation (id, parent_id, child_id, rel_type, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.db.Exec(ctx, query,
		rel.ID, rel.ParentID, rel.ChildID, rel.RelType, rel.CreatedAt); err != nil {
		return handlePostgresError("insert relation", err)
	}
	return nil
}

// RelationsFor returns the stored relations touching a node, newest first.
func (r *Repository) RelationsFor(ctx context.Context, nodeID int) ([]*contentflow.Relation, error) {
	query := `
		SELECT id, parent_id, child_id, rel_type, created_at
		FROM content_relation
		WHERE parent_id = $1 OR child_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, nodeID)
	if err != nil {
		return nil, handlePostgresError("get relations", err)
	}
	defer rows.Close()

	var relations []*contentflow.Relation
	for rows.Next() {
		var rel contentflow.Relation
		if err := rows.Scan(&rel.ID, &rel.ParentID, &rel.ChildID, &rel.RelType, &rel.CreatedAt); err != nil {
			return nil, handlePostgresError("scan relation", err)
		}
		relations = append(relations, &rel)
	}
	if err = rows.Err(); err != nil {
		return nil, handlePostgresError("iterate relation rows", err)
	}
	return relations, nil
}

// PermissionStore implements contentflow.PermissionRepository using
// PostgreSQL. Codes are stored as a string of single-letter codes; the row
// with a NULL node_id carries the user's defaults.
type PermissionStore struct {
	db DBTX
}

// NewPermissionStore creates a new PostgreSQL permission store
func NewPermissionStore(db DBTX) *PermissionStore {
	return &PermissionStore{db: db}
}

func (p *PermissionStore) AssignedPermissions(ctx context.Context, userID, nodeID int) (contentflow.PermissionSet, bool, error) {
	var codes string
	err := p.db.QueryRow(ctx,
		`SELECT codes FROM user_permission WHERE user_id = $1 AND node_id = $2`,
		userID, nodeID).Scan(&codes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, handlePostgresError("get assigned permissions", err)
	}
	return parseCodes(codes), true, nil
}

func (p *PermissionStore) PermissionsForPath(ctx context.Context, userID int, path string) (contentflow.PermissionSet, error) {
	var codes string
	err := p.db.QueryRow(ctx,
		`SELECT codes FROM user_permission WHERE user_id = $1 AND node_id IS NULL`,
		userID).Scan(&codes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return contentflow.PermissionSet{}, nil
		}
		return nil, handlePostgresError("get default permissions", err)
	}
	return parseCodes(codes), nil
}

// SetDefaults replaces the user's default codes.
func (p *PermissionStore) SetDefaults(ctx context.Context, userID int, codes ...contentflow.PermissionCode) error {
	query := `
		INSERT INTO user_permission (user_id, node_id, codes)
		VALUES ($1, NULL, $2)
		ON CONFLICT (user_id) WHERE node_id IS NULL
		DO UPDATE SET codes = EXCLUDED.codes`

	if _, err := p.db.Exec(ctx, query, userID, joinCodes(codes)); err != nil {
		return handlePostgresError("set default permissions", err)
	}
	return nil
}

// Assign replaces the user's codes at one node.
func (p *PermissionStore) Assign(ctx context.Context, userID, nodeID int, codes ...contentflow.PermissionCode) error {
	query := `
		INSERT INTO user_permission (user_id, node_id, codes)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, node_id) DO UPDATE SET codes = EXCLUDED.codes`

	if _, err := p.db.Exec(ctx, query, userID, nodeID, joinCodes(codes)); err != nil {
		return handlePostgresError("assign permissions", err)
	}
	return nil
}

func parseCodes(codes string) contentflow.PermissionSet {
	set := make(contentflow.PermissionSet, len(codes))
	for _, c := range codes {
		set[contentflow.PermissionCode(c)] = true
	}
	return set
}

func joinCodes(codes []contentflow.PermissionCode) string {
	var b strings.Builder
	for _, c := range codes {
		b.WriteString(string(c))
	}
	return b.String()
}
