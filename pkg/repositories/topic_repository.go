package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/devroad-io/devroad-api/pkg/apperrors"
	"github.com/devroad-io/devroad-api/pkg/database"
	"github.com/devroad-io/devroad-api/pkg/models"
)

// psql builds statements with Postgres $n placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

const topicColumns = "id, owner_id, parent_id, title, description, status, technology, leetcode_links, created_at, updated_at"

// listSortColumns whitelists ORDER BY targets. Each pairs with the
// owner-first composite indexes on the topics table.
var listSortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"title":      "title",
}

// TopicRepository provides data access for topics. Every operation is
// scoped by the owner identity: a row owned by someone else behaves
// exactly like a row that does not exist.
type TopicRepository interface {
	Create(ctx context.Context, topic *models.Topic) error
	GetByID(ctx context.Context, ownerID, topicID uuid.UUID) (*models.Topic, error)
	List(ctx context.Context, ownerID uuid.UUID, filter models.TopicFilter) ([]*models.Topic, error)
	Update(ctx context.Context, ownerID, topicID uuid.UUID, patch *models.TopicPatch) (*models.Topic, error)
	Delete(ctx context.Context, ownerID, topicID uuid.UUID) error
}

type topicRepository struct{}

// NewTopicRepository creates a new TopicRepository.
func NewTopicRepository() TopicRepository {
	return &topicRepository{}
}

var _ TopicRepository = (*topicRepository)(nil)

func (r *topicRepository) Create(ctx context.Context, topic *models.Topic) error {
	scope, ok := database.GetOwnerScope(ctx)
	if !ok {
		return fmt.Errorf("no owner scope in context")
	}

	linksJSON, err := json.Marshal(topic.LeetcodeLinks)
	if err != nil {
		return fmt.Errorf("failed to encode links: %w", err)
	}

	query, args, err := psql.Insert("topics").
		Columns("owner_id", "parent_id", "title", "description", "status", "technology", "leetcode_links").
		Values(topic.OwnerID, topic.ParentID, topic.Title, topic.Description, topic.Status, topic.Technology, linksJSON).
		Suffix("RETURNING " + topicColumns).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	created, err := scanTopic(scope.Conn.QueryRow(ctx, query, args...))
	if err != nil {
		return fmt.Errorf("failed to create topic: %w", err)
	}

	*topic = *created
	return nil
}

func (r *topicRepository) GetByID(ctx context.Context, ownerID, topicID uuid.UUID) (*models.Topic, error) {
	scope, ok := database.GetOwnerScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no owner scope in context")
	}

	query, args, err := psql.Select(topicColumns).
		From("topics").
		Where(squirrel.Eq{"id": topicID}).
		Where(squirrel.Eq{"owner_id": ownerID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	topic, err := scanTopic(scope.Conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}

	return topic, nil
}

func (r *topicRepository) List(ctx context.Context, ownerID uuid.UUID, filter models.TopicFilter) ([]*models.Topic, error) {
	scope, ok := database.GetOwnerScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no owner scope in context")
	}

	builder := psql.Select(topicColumns).
		From("topics").
		Where(squirrel.Eq{"owner_id": ownerID})

	if filter.Technology != "" {
		builder = builder.Where(squirrel.Eq{"technology": filter.Technology})
	}
	if filter.Status != "" {
		builder = builder.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.ParentID != nil {
		builder = builder.Where(squirrel.Eq{"parent_id": *filter.ParentID})
	}

	sortColumn, ok := listSortColumns[filter.SortBy]
	if !ok {
		sortColumn = "created_at"
	}
	direction := "DESC"
	if filter.Ascending {
		direction = "ASC"
	}
	builder = builder.OrderBy(sortColumn + " " + direction)

	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	rows, err := scope.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer rows.Close()

	var topics []*models.Topic
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		topics = append(topics, topic)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read topics: %w", err)
	}

	return topics, nil
}

// Update applies a validated partial update to the topic identified by
// (topicID, ownerID) and returns the fresh row from the same statement.
// Only fields present in the patch get SET clauses; updated_at always
// advances to the statement's clock. No matching owned row yields
// ErrNotFound, whether the topic is absent or owned by someone else.
func (r *topicRepository) Update(ctx context.Context, ownerID, topicID uuid.UUID, patch *models.TopicPatch) (*models.Topic, error) {
	scope, ok := database.GetOwnerScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no owner scope in context")
	}
	if !patch.HasChanges() {
		return nil, apperrors.ErrEmptyUpdate
	}

	builder := psql.Update("topics")

	if patch.Title != nil {
		builder = builder.Set("title", *patch.Title)
	}
	if patch.ClearDescription {
		builder = builder.Set("description", nil)
	} else if patch.Description != nil {
		builder = builder.Set("description", *patch.Description)
	}
	if patch.Status != nil {
		builder = builder.Set("status", *patch.Status)
	}
	if patch.Technology != nil {
		builder = builder.Set("technology", *patch.Technology)
	}
	if patch.SetLinks {
		linksJSON, err := json.Marshal(patch.LeetcodeLinks)
		if err != nil {
			return nil, fmt.Errorf("failed to encode links: %w", err)
		}
		builder = builder.Set("leetcode_links", linksJSON)
	}

	query, args, err := builder.
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": topicID}).
		Where(squirrel.Eq{"owner_id": ownerID}).
		Suffix("RETURNING " + topicColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update: %w", err)
	}

	topic, err := scanTopic(scope.Conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update topic: %w", err)
	}

	return topic, nil
}

func (r *topicRepository) Delete(ctx context.Context, ownerID, topicID uuid.UUID) error {
	scope, ok := database.GetOwnerScope(ctx)
	if !ok {
		return fmt.Errorf("no owner scope in context")
	}

	query, args, err := psql.Delete("topics").
		Where(squirrel.Eq{"id": topicID}).
		Where(squirrel.Eq{"owner_id": ownerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}

	tag, err := scope.Conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete topic: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// scanTopic reads one topic row in topicColumns order.
func scanTopic(row pgx.Row) (*models.Topic, error) {
	var topic models.Topic
	var status string
	var linksJSON []byte

	err := row.Scan(
		&topic.ID,
		&topic.OwnerID,
		&topic.ParentID,
		&topic.Title,
		&topic.Description,
		&status,
		&topic.Technology,
		&linksJSON,
		&topic.CreatedAt,
		&topic.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	topic.Status = models.TopicStatus(status)
	topic.LeetcodeLinks = []models.LeetcodeLink{}
	if len(linksJSON) > 0 {
		if err := json.Unmarshal(linksJSON, &topic.LeetcodeLinks); err != nil {
			return nil, fmt.Errorf("failed to decode links: %w", err)
		}
	}

	return &topic, nil
}
