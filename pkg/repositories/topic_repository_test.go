package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devroad-io/devroad-api/pkg/apperrors"
	"github.com/devroad-io/devroad-api/pkg/database"
	"github.com/devroad-io/devroad-api/pkg/models"
)

var topicRowColumns = []string{
	"id", "owner_id", "parent_id", "title", "description", "status",
	"technology", "leetcode_links", "created_at", "updated_at",
}

// scopedContext wires a pgxmock pool into the owner scope the
// repository reads from context.
func scopedContext(t *testing.T) (context.Context, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	ctx := database.SetOwnerScope(context.Background(), &database.OwnerScope{Conn: mock})
	return ctx, mock
}

func strPtr(s string) *string { return &s }

func TestTopicRepository_Update_SingleField(t *testing.T) {
	ctx, mock := scopedContext(t)
	repo := NewTopicRepository()

	ownerID := uuid.New()
	topicID := uuid.New()
	created := time.Now().Add(-time.Hour)
	updated := time.Now()

	status := models.StatusCompleted
	patch := &models.TopicPatch{Status: &status}

	rows := pgxmock.NewRows(topicRowColumns).AddRow(
		topicID, ownerID, nil, "Graphs", strPtr("BFS and DFS"), "completed",
		"Go", []byte(`[]`), created, updated,
	)
	mock.ExpectQuery(`UPDATE topics SET status = \$1, updated_at = now\(\) WHERE id = \$2 AND owner_id = \$3 RETURNING`).
		WithArgs(status, topicID, ownerID).
		WillReturnRows(rows)

	topic, err := repo.Update(ctx, ownerID, topicID, patch)
	require.NoError(t, err)

	assert.Equal(t, topicID, topic.ID)
	assert.Equal(t, ownerID, topic.OwnerID)
	assert.Equal(t, models.StatusCompleted, topic.Status)
	assert.Equal(t, "Graphs", topic.Title)
	assert.True(t, topic.UpdatedAt.After(topic.CreatedAt))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepository_Update_OnlyPresentFieldsSet(t *testing.T) {
	ctx, mock := scopedContext(t)
	repo := NewTopicRepository()

	ownerID := uuid.New()
	topicID := uuid.New()

	patch := &models.TopicPatch{
		Title:            strPtr("Advanced Graphs"),
		ClearDescription: true,
	}

	rows := pgxmock.NewRows(topicRowColumns).AddRow(
		topicID, ownerID, nil, "Advanced Graphs", nil, "in_progress",
		"Go", []byte(`[]`), time.Now().Add(-time.Hour), time.Now(),
	)
	// Exactly title and description in the SET list; status, technology
	// and links stay untouched.
	mock.ExpectQuery(`UPDATE topics SET title = \$1, description = \$2, updated_at = now\(\) WHERE id = \$3 AND owner_id = \$4 RETURNING`).
		WithArgs("Advanced Graphs", pgxmock.AnyArg(), topicID, ownerID).
		WillReturnRows(rows)

	topic, err := repo.Update(ctx, ownerID, topicID, patch)
	require.NoError(t, err)
	assert.Nil(t, topic.Description)
	assert.Equal(t, "Advanced Graphs", topic.Title)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepository_Update_NoMatchingOwnedRow(t *testing.T) {
	ctx, mock := scopedContext(t)
	repo := NewTopicRepository()

	ownerID := uuid.New()
	status := models.StatusInProgress

	// A row owned by someone else and a row that does not exist produce
	// the same zero-row result, so the caller sees one uniform outcome.
	for range 2 {
		mock.ExpectQuery(`UPDATE topics SET`).
			WithArgs(status, pgxmock.AnyArg(), ownerID).
			WillReturnError(pgx.ErrNoRows)
	}

	_, err := repo.Update(ctx, ownerID, uuid.New(), &models.TopicPatch{Status: &status})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = repo.Update(ctx, ownerID, uuid.New(), &models.TopicPatch{Status: &status})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepository_Update_EmptyPatchNeverReachesStore(t *testing.T) {
	ctx, mock := scopedContext(t)
	repo := NewTopicRepository()

	_, err := repo.Update(ctx, uuid.New(), uuid.New(), &models.TopicPatch{})
	assert.ErrorIs(t, err, apperrors.ErrEmptyUpdate)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepository_Update_LinksReplaced(t *testing.T) {
	ctx, mock := scopedContext(t)
	repo := NewTopicRepository()

	ownerID := uuid.New()
	topicID := uuid.New()
	links := []models.LeetcodeLink{
		{URL: "https://leetcode.com/problems/two-sum/", Difficulty: models.DifficultyEasy},
	}
	patch := &models.TopicPatch{LeetcodeLinks: links, SetLinks: true}

	linksJSON := []byte(`[{"url":"https://leetcode.com/problems/two-sum/","difficulty":"Easy"}]`)
	rows := pgxmock.NewRows(topicRowColumns).AddRow(
		topicID, ownerID, nil, "Arrays", nil, "not_started",
		"Go", linksJSON, time.Now().Add(-time.Hour), time.Now(),
	)
	mock.ExpectQuery(`UPDATE topics SET leetcode_links = \$1, updated_at = now\(\)`).
		WithArgs(linksJSON, topicID, ownerID).
		WillReturnRows(rows)

	topic, err := repo.Update(ctx, ownerID, topicID, patch)
	require.NoError(t, err)
	require.Len(t, topic.LeetcodeLinks, 1)
	assert.Equal(t, models.DifficultyEasy, topic.LeetcodeLinks[0].Difficulty)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepository_GetByID(t *testing.T) {
	ctx, mock := scopedContext(t)
	repo := NewTopicRepository()

	ownerID := uuid.New()
	topicID := uuid.New()
	parentID := uuid.New()

	rows := pgxmock.NewRows(topicRowColumns).AddRow(
		topicID, ownerID, &parentID, "Tries", nil, "not_started",
		"Rust", []byte(`[]`), time.Now(), time.Now(),
	)
	mock.ExpectQuery(`SELECT .+ FROM topics WHERE id = \$1 AND owner_id = \$2`).
		WithArgs(topicID, ownerID).
		WillReturnRows(rows)

	topic, err := repo.GetByID(ctx, ownerID, topicID)
	require.NoError(t, err)
	require.NotNil(t, topic.ParentID)
	assert.Equal(t, parentID, *topic.ParentID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepository_GetByID_NotFound(t *testing.T) {
	ctx, mock := scopedContext(t)
	repo := NewTopicRepository()

	mock.ExpectQuery(`SELECT .+ FROM topics`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(ctx, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTopicRepository_Create(t *testing.T) {
	ctx, mock := scopedContext(t)
	repo := NewTopicRepository()

	ownerID := uuid.New()
	topicID := uuid.New()

	topic := &models.Topic{
		OwnerID:       ownerID,
		Title:         "Heaps",
		Status:        models.StatusNotStarted,
		Technology:    "Go",
		LeetcodeLinks: []models.LeetcodeLink{},
	}

	rows := pgxmock.NewRows(topicRowColumns).AddRow(
		topicID, ownerID, nil, "Heaps", nil, "not_started",
		"Go", []byte(`[]`), time.Now(), time.Now(),
	)
	mock.ExpectQuery(`INSERT INTO topics \(owner_id,parent_id,title,description,status,technology,leetcode_links\)`).
		WithArgs(ownerID, pgxmock.AnyArg(), "Heaps", pgxmock.AnyArg(), models.StatusNotStarted, "Go", []byte(`[]`)).
		WillReturnRows(rows)

	require.NoError(t, repo.Create(ctx, topic))
	assert.Equal(t, topicID, topic.ID)
	assert.False(t, topic.CreatedAt.IsZero())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepository_Delete(t *testing.T) {
	ctx, mock := scopedContext(t)
	repo := NewTopicRepository()

	ownerID := uuid.New()
	topicID := uuid.New()

	mock.ExpectExec(`DELETE FROM topics WHERE id = \$1 AND owner_id = \$2`).
		WithArgs(topicID, ownerID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, repo.Delete(ctx, ownerID, topicID))

	mock.ExpectExec(`DELETE FROM topics`).
		WithArgs(topicID, ownerID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, repo.Delete(ctx, ownerID, topicID), apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepository_List_FiltersAndSort(t *testing.T) {
	ctx, mock := scopedContext(t)
	repo := NewTopicRepository()

	ownerID := uuid.New()

	rows := pgxmock.NewRows(topicRowColumns).
		AddRow(uuid.New(), ownerID, nil, "Graphs", nil, "in_progress",
			"Go", []byte(`[]`), time.Now(), time.Now()).
		AddRow(uuid.New(), ownerID, nil, "Heaps", nil, "in_progress",
			"Go", []byte(`[]`), time.Now(), time.Now())

	mock.ExpectQuery(`SELECT .+ FROM topics WHERE owner_id = \$1 AND technology = \$2 AND status = \$3 ORDER BY updated_at DESC LIMIT 10`).
		WithArgs(ownerID, "Go", models.StatusInProgress).
		WillReturnRows(rows)

	topics, err := repo.List(ctx, ownerID, models.TopicFilter{
		Technology: "Go",
		Status:     models.StatusInProgress,
		SortBy:     "updated_at",
		Limit:      10,
	})
	require.NoError(t, err)
	assert.Len(t, topics, 2)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepository_List_UnknownSortFallsBack(t *testing.T) {
	ctx, mock := scopedContext(t)
	repo := NewTopicRepository()

	ownerID := uuid.New()
	mock.ExpectQuery(`SELECT .+ FROM topics WHERE owner_id = \$1 ORDER BY created_at DESC`).
		WithArgs(ownerID).
		WillReturnRows(pgxmock.NewRows(topicRowColumns))

	topics, err := repo.List(ctx, ownerID, models.TopicFilter{SortBy: "owner_id; DROP TABLE topics"})
	require.NoError(t, err)
	assert.Empty(t, topics)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepository_NoScopeInContext(t *testing.T) {
	repo := NewTopicRepository()
	status := models.StatusCompleted

	_, err := repo.Update(context.Background(), uuid.New(), uuid.New(), &models.TopicPatch{Status: &status})
	assert.Error(t, err)
}
