package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/codesync/internal/model"
)

func TestUserStore_CreateAndGet(t *testing.T) {
	s, cleanup := SetupTestDB(t)
	defer cleanup()

	user := CreateTestUser(t, s, "alice@x.com")
	require.NotZero(t, user.ID)

	byEmail, err := s.User().GetByEmail("alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := s.User().GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", byID.Email)

	_, err = s.User().GetByEmail("nobody@x.com")
	assert.True(t, IsNotFound(err))

	err = s.User().Create(&model.User{Email: "alice@x.com", PasswordHash: "h", Role: model.RoleUser})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserStore_UpdateAccessToken(t *testing.T) {
	s, cleanup := SetupTestDB(t)
	defer cleanup()

	user := CreateTestUser(t, s, "bob@x.com", func(u *model.User) { u.GitLabAccessToken = "gl-old" })

	require.NoError(t, s.User().UpdateAccessToken(user.ID, "github", "gh-new"))

	got, err := s.User().GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "gh-new", got.GitHubAccessToken)
	assert.Equal(t, "gl-old", got.GitLabAccessToken, "other provider token must be untouched")

	assert.Error(t, s.User().UpdateAccessToken(user.ID, "bitbucket", "x"))
	assert.True(t, IsNotFound(s.User().UpdateAccessToken(9999, "github", "x")))
}

func TestUserStore_ConcurrentTokenUpdates(t *testing.T) {
	s, cleanup := SetupTestDB(t)
	defer cleanup()

	user := CreateTestUser(t, s, "carol@x.com")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.User().UpdateAccessToken(user.ID, "github", "gh"))
	}()
	go func() {
		defer wg.Done()
		assert.NoError(t, s.User().UpdateAccessToken(user.ID, "gitlab", "gl"))
	}()
	wg.Wait()

	got, err := s.User().GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "gh", got.GitHubAccessToken)
	assert.Equal(t, "gl", got.GitLabAccessToken)
}

func TestProjectStore(t *testing.T) {
	s, cleanup := SetupTestDB(t)
	defer cleanup()

	owner := CreateTestUser(t, s, "dave@x.com")
	first := CreateTestProject(t, s, owner.ID, "https://github.com/acme/widgets")
	CreateTestProject(t, s, owner.ID, "https://github.com/acme/widgets")
	CreateTestProject(t, s, owner.ID, "", func(p *model.Project) { p.Code = "uploaded" })

	got, err := s.Project().GetByRepositoryURL("https://github.com/acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID, "lookup returns the oldest project")

	_, err = s.Project().GetByRepositoryURL("https://github.com/acme/other")
	assert.True(t, IsNotFound(err))

	list, err := s.Project().ListByUser(owner.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)
	for _, p := range list {
		assert.Empty(t, p.Code, "list omits code")
	}

	linked, err := s.Project().ListLinked()
	require.NoError(t, err)
	assert.Len(t, linked, 2)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.Project().UpdateCode(first.ID, "new code", "dev", now))
	got, err = s.Project().GetByID(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "new code", got.Code)
	assert.Equal(t, "dev", got.Branch)
	require.NotNil(t, got.UploadDate)
	assert.True(t, got.UploadDate.Equal(now))

	assert.True(t, IsNotFound(s.Project().UpdateCode(4242, "x", "", now)))
}

func TestReportStore_Lifecycle(t *testing.T) {
	s, cleanup := SetupTestDB(t)
	defer cleanup()

	owner := CreateTestUser(t, s, "erin@x.com")
	project := CreateTestProject(t, s, owner.ID, "")

	report := &model.Report{ProjectID: project.ID, GenerationDate: time.Now()}
	require.NoError(t, s.Report().Create(report))
	assert.Equal(t, model.ReportStatusPending, report.Status)

	require.NoError(t, s.Report().Finish(report.ID, model.ReportStatusCompleted, "ok", time.Now()))

	got, err := s.Report().GetByID(report.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusCompleted, got.Status)
	assert.Equal(t, "ok", got.AnalysisResult)
	assert.NotNil(t, got.CompletedAt)

	// terminal reports never move again
	err = s.Report().Finish(report.ID, model.ReportStatusFailed, "late", time.Now())
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	err = s.Report().Finish(report.ID, model.ReportStatusPending, "", time.Now())
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	got, _ = s.Report().GetByID(report.ID)
	assert.Equal(t, "ok", got.AnalysisResult)
}

func TestReportStore_Listing(t *testing.T) {
	s, cleanup := SetupTestDB(t)
	defer cleanup()

	alice := CreateTestUser(t, s, "alice@x.com")
	bob := CreateTestUser(t, s, "bob@x.com")
	pa := CreateTestProject(t, s, alice.ID, "")
	pb := CreateTestProject(t, s, bob.ID, "")

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Report().Create(&model.Report{ProjectID: pa.ID, GenerationDate: time.Now()}))
	}
	require.NoError(t, s.Report().Create(&model.Report{ProjectID: pb.ID, GenerationDate: time.Now()}))

	byProject, err := s.Report().ListByProject(pa.ID)
	require.NoError(t, err)
	require.Len(t, byProject, 3)
	assert.Greater(t, byProject[0].ID, byProject[2].ID, "newest first")

	byUser, err := s.Report().ListByUser(bob.ID)
	require.NoError(t, err)
	assert.Len(t, byUser, 1)
}

func TestTransaction_Rollback(t *testing.T) {
	s, cleanup := SetupTestDB(t)
	defer cleanup()

	boom := errors.New("boom")
	err := s.Transaction(func(tx Store) error {
		if err := tx.User().Create(&model.User{Email: "tx@x.com", PasswordHash: "h", Role: model.RoleUser}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.User().GetByEmail("tx@x.com")
	assert.True(t, IsNotFound(err))
}
