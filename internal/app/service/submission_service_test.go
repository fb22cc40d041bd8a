package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"code_farm/internal/common"
	"code_farm/internal/domain/model"
	"code_farm/internal/domain/repository"
)

// Minimal database/sql driver so service-owned transactions can run against
// fake repositories. Commits and rollbacks are counted; everything else is
// unsupported.
type fakeDriver struct {
	commits   int
	rollbacks int
}

func (d *fakeDriver) Open(string) (driver.Conn, error) { return &fakeConn{d: d}, nil }

type fakeConnector struct{ d *fakeDriver }

func (c fakeConnector) Connect(context.Context) (driver.Conn, error) { return &fakeConn{d: c.d}, nil }
func (c fakeConnector) Driver() driver.Driver                        { return c.d }

type fakeConn struct{ d *fakeDriver }

func (c *fakeConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("unsupported") }
func (c *fakeConn) Close() error                        { return nil }
func (c *fakeConn) Begin() (driver.Tx, error)           { return &fakeTx{d: c.d}, nil }

type fakeTx struct{ d *fakeDriver }

func (t *fakeTx) Commit() error   { t.d.commits++; return nil }
func (t *fakeTx) Rollback() error { t.d.rollbacks++; return nil }

func newFakeDB() (*sql.DB, *fakeDriver) {
	d := &fakeDriver{}
	return sql.OpenDB(fakeConnector{d: d}), d
}

type fakeUserRepo struct {
	aura               map[string]int
	problemsSolved     map[string]int
	totalSubmissions   map[string]int
	applyRewardErr     error
	incrementSubsErr   error
	applyRewardInvoked int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		aura:             map[string]int{},
		problemsSolved:   map[string]int{},
		totalSubmissions: map[string]int{},
	}
}

func (f *fakeUserRepo) Create(context.Context, *model.User) error { return errors.New("unused") }
func (f *fakeUserRepo) FindByEmail(context.Context, string) (*model.User, error) {
	return nil, common.ErrNotFound
}
func (f *fakeUserRepo) FindByUsername(context.Context, string) (*model.User, error) {
	return nil, common.ErrNotFound
}
func (f *fakeUserRepo) FindByID(context.Context, string) (*model.User, error) {
	return nil, common.ErrNotFound
}

func (f *fakeUserRepo) IncrementTotalSubmissions(_ context.Context, _ *sql.Tx, userID string) error {
	if f.incrementSubsErr != nil {
		return f.incrementSubsErr
	}
	f.totalSubmissions[userID]++
	return nil
}

func (f *fakeUserRepo) ApplyAuraReward(_ context.Context, _ *sql.Tx, userID string, auraReward int) error {
	f.applyRewardInvoked++
	if f.applyRewardErr != nil {
		return f.applyRewardErr
	}
	f.aura[userID] += auraReward
	f.problemsSolved[userID]++
	return nil
}

type fakeProblemRepo struct {
	problems        map[string]*model.Problem
	solvedCount     map[string]int
	submissionCount map[string]int
}

func newFakeProblemRepo() *fakeProblemRepo {
	return &fakeProblemRepo{
		problems:        map[string]*model.Problem{},
		solvedCount:     map[string]int{},
		submissionCount: map[string]int{},
	}
}

func (f *fakeProblemRepo) CreateProblem(context.Context, *sql.Tx, *model.Problem) error {
	return errors.New("unused")
}
func (f *fakeProblemRepo) SetPublished(context.Context, string, bool) error {
	return errors.New("unused")
}
func (f *fakeProblemRepo) FindProblemByID(_ context.Context, id string) (*model.Problem, error) {
	p, ok := f.problems[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return p, nil
}
func (f *fakeProblemRepo) FindProblemBySlug(context.Context, string) (*model.Problem, error) {
	return nil, common.ErrNotFound
}
func (f *fakeProblemRepo) ListProblems(context.Context, int, int, repository.ProblemFilter) ([]model.Problem, int, error) {
	return nil, 0, errors.New("unused")
}
func (f *fakeProblemRepo) ListCategories(context.Context) ([]model.Category, error) {
	return nil, errors.New("unused")
}
func (f *fakeProblemRepo) GetCategoriesByProblemID(context.Context, string) ([]string, error) {
	return nil, nil
}
func (f *fakeProblemRepo) SetProblemCategories(context.Context, *sql.Tx, string, []string) error {
	return errors.New("unused")
}

func (f *fakeProblemRepo) IncrementSubmissionCount(_ context.Context, _ *sql.Tx, problemID string) error {
	f.submissionCount[problemID]++
	return nil
}

func (f *fakeProblemRepo) IncrementSolvedCount(_ context.Context, _ *sql.Tx, problemID string) error {
	f.solvedCount[problemID]++
	return nil
}

type fakeSubmissionRepo struct {
	submissions map[string]*model.Submission
	targets     map[string]*repository.JudgingTarget
	solved      map[string]bool // userID + "/" + problemID
	verdicts    map[string]model.Verdict
	markErr     error
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{
		submissions: map[string]*model.Submission{},
		targets:     map[string]*repository.JudgingTarget{},
		solved:      map[string]bool{},
		verdicts:    map[string]model.Verdict{},
	}
}

func (f *fakeSubmissionRepo) CreateSubmission(_ context.Context, _ *sql.Tx, sub *model.Submission) error {
	sub.CreatedAt = time.Now()
	f.submissions[sub.ID] = sub
	return nil
}

func (f *fakeSubmissionRepo) GetSubmissionByID(_ context.Context, id, userID string) (*model.Submission, error) {
	sub, ok := f.submissions[id]
	if !ok || sub.UserID != userID {
		return nil, common.ErrNotFound
	}
	return sub, nil
}

func (f *fakeSubmissionRepo) ListForUserProblem(context.Context, string, string, int) ([]model.Submission, error) {
	return nil, nil
}
func (f *fakeSubmissionRepo) ListRecentByUser(context.Context, string, int) ([]model.Submission, error) {
	return nil, nil
}

func (f *fakeSubmissionRepo) GetForJudging(_ context.Context, _ *sql.Tx, id, userID string) (*repository.JudgingTarget, error) {
	target, ok := f.targets[id]
	if !ok || target.UserID != userID {
		return nil, common.ErrNotFound
	}
	return target, nil
}

func (f *fakeSubmissionRepo) ApplyVerdict(_ context.Context, _ *sql.Tx, id string, verdict model.Verdict) error {
	f.verdicts[id] = verdict
	return nil
}

func (f *fakeSubmissionRepo) MarkProblemSolved(_ context.Context, _ *sql.Tx, userID, problemID, _ string) (bool, error) {
	if f.markErr != nil {
		return false, f.markErr
	}
	key := userID + "/" + problemID
	if f.solved[key] {
		return false, nil
	}
	f.solved[key] = true
	return true, nil
}

func (f *fakeSubmissionRepo) GetSolvedProblemsByUser(context.Context, string) ([]model.SolvedProblem, error) {
	return nil, nil
}

type noopLeaderboardRepo struct{}

func (noopLeaderboardRepo) GetLeaderboard(context.Context, int, int) ([]model.LeaderboardEntry, int, error) {
	return nil, 0, nil
}
func (noopLeaderboardRepo) GetUserRank(context.Context, string) (int, error) { return 0, nil }

type submissionFixture struct {
	svc       *SubmissionService
	users     *fakeUserRepo
	problems  *fakeProblemRepo
	subs      *fakeSubmissionRepo
	driver    *fakeDriver
	cacheFake *fakeCache
}

func newSubmissionFixture() *submissionFixture {
	db, drv := newFakeDB()
	users := newFakeUserRepo()
	problems := newFakeProblemRepo()
	subs := newFakeSubmissionRepo()
	cacheFake := newFakeCache()
	lb := NewLeaderboardService(noopLeaderboardRepo{}, cacheFake, time.Minute)
	svc := NewSubmissionService(subs, problems, users, lb, db)
	return &submissionFixture{svc: svc, users: users, problems: problems, subs: subs, driver: drv, cacheFake: cacheFake}
}

func publishedProblem(id string, reward int) *model.Problem {
	return &model.Problem{ID: id, Slug: id, Difficulty: model.DifficultyEasy, AuraReward: reward, IsPublished: true}
}

func TestCreateSubmissionMissingFields(t *testing.T) {
	fx := newSubmissionFixture()

	_, err := fx.svc.CreateSubmission(context.Background(), "u1", CreateSubmissionRequest{
		ProblemID: "p1", Language: "go",
	})
	if !errors.Is(err, common.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
	if len(fx.subs.submissions) != 0 {
		t.Fatal("no submission should be created on validation failure")
	}
}

func TestCreateSubmissionInvalidLanguage(t *testing.T) {
	fx := newSubmissionFixture()
	fx.problems.problems["p1"] = publishedProblem("p1", 50)

	_, err := fx.svc.CreateSubmission(context.Background(), "u1", CreateSubmissionRequest{
		ProblemID: "p1", Code: "print(1)", Language: "brainfuck",
	})
	if !errors.Is(err, common.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestCreateSubmissionProblemNotFound(t *testing.T) {
	fx := newSubmissionFixture()

	_, err := fx.svc.CreateSubmission(context.Background(), "u1", CreateSubmissionRequest{
		ProblemID: "missing", Code: "print(1)", Language: "python",
	})
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if fx.driver.commits != 0 {
		t.Fatal("no transaction should commit for a missing problem")
	}
}

func TestCreateSubmissionUnpublishedProblem(t *testing.T) {
	fx := newSubmissionFixture()
	p := publishedProblem("p1", 50)
	p.IsPublished = false
	fx.problems.problems["p1"] = p

	_, err := fx.svc.CreateSubmission(context.Background(), "u1", CreateSubmissionRequest{
		ProblemID: "p1", Code: "print(1)", Language: "python",
	})
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unpublished problem, got %v", err)
	}
	if len(fx.subs.submissions) != 0 || fx.problems.submissionCount["p1"] != 0 {
		t.Fatal("unpublished problem must leave no side effects")
	}
}

func TestCreateSubmissionCommitsAllWrites(t *testing.T) {
	fx := newSubmissionFixture()
	fx.problems.problems["p1"] = publishedProblem("p1", 50)

	sub, err := fx.svc.CreateSubmission(context.Background(), "u1", CreateSubmissionRequest{
		ProblemID: "p1", Code: "print(1)", Language: "python",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.Status != model.StatusPending {
		t.Fatalf("new submission must be pending, got %s", sub.Status)
	}
	if fx.users.totalSubmissions["u1"] != 1 {
		t.Fatal("user total_submissions not incremented")
	}
	if fx.problems.submissionCount["p1"] != 1 {
		t.Fatal("problem submission_count not incremented")
	}
	if fx.driver.commits != 1 || fx.driver.rollbacks != 0 {
		t.Fatalf("expected exactly one commit, got commits=%d rollbacks=%d", fx.driver.commits, fx.driver.rollbacks)
	}
}

func TestCreateSubmissionRollsBackOnCounterFailure(t *testing.T) {
	fx := newSubmissionFixture()
	fx.problems.problems["p1"] = publishedProblem("p1", 50)
	fx.users.incrementSubsErr = errors.New("disk on fire")

	_, err := fx.svc.CreateSubmission(context.Background(), "u1", CreateSubmissionRequest{
		ProblemID: "p1", Code: "print(1)", Language: "python",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if fx.driver.commits != 0 {
		t.Fatal("transaction must not commit when a counter write fails")
	}
	if fx.driver.rollbacks == 0 {
		t.Fatal("transaction must roll back when a counter write fails")
	}
}

func TestJudgeInvalidStatus(t *testing.T) {
	fx := newSubmissionFixture()

	_, err := fx.svc.JudgeSubmission(context.Background(), "u1", "s1", JudgeRequest{Status: "pending"})
	if !errors.Is(err, common.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for pending verdict, got %v", err)
	}
	_, err = fx.svc.JudgeSubmission(context.Background(), "u1", "s1", JudgeRequest{Status: "banana"})
	if !errors.Is(err, common.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for unknown verdict, got %v", err)
	}
}

func TestJudgeSubmissionNotOwned(t *testing.T) {
	fx := newSubmissionFixture()
	fx.subs.targets["s1"] = &repository.JudgingTarget{SubmissionID: "s1", UserID: "owner", ProblemID: "p1", AuraReward: 50}

	_, err := fx.svc.JudgeSubmission(context.Background(), "intruder", "s1", JudgeRequest{Status: model.StatusAccepted})
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user's submission, got %v", err)
	}
	if fx.driver.commits != 0 {
		t.Fatal("no commit for a failed ownership check")
	}
}

func TestJudgeFirstAcceptRewards(t *testing.T) {
	fx := newSubmissionFixture()
	fx.subs.targets["s1"] = &repository.JudgingTarget{SubmissionID: "s1", UserID: "u1", ProblemID: "p1", AuraReward: 50}

	result, err := fx.svc.JudgeSubmission(context.Background(), "u1", "s1", JudgeRequest{Status: model.StatusAccepted})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Rewarded {
		t.Fatal("first accepted verdict must reward")
	}
	if got := fx.users.aura["u1"]; got != 50 {
		t.Fatalf("aura = %d, want 50", got)
	}
	if got := fx.users.problemsSolved["u1"]; got != 1 {
		t.Fatalf("problems_solved = %d, want 1", got)
	}
	if got := fx.problems.solvedCount["p1"]; got != 1 {
		t.Fatalf("solved_count = %d, want 1", got)
	}
	if fx.driver.commits != 1 {
		t.Fatalf("expected one commit, got %d", fx.driver.commits)
	}
	if len(fx.cacheFake.deleted) == 0 {
		t.Fatal("leaderboard cache must be invalidated after a reward")
	}
}

func TestJudgeRepeatAcceptIsIdempotent(t *testing.T) {
	fx := newSubmissionFixture()
	fx.subs.targets["s1"] = &repository.JudgingTarget{SubmissionID: "s1", UserID: "u1", ProblemID: "p1", AuraReward: 50}
	fx.subs.targets["s2"] = &repository.JudgingTarget{SubmissionID: "s2", UserID: "u1", ProblemID: "p1", AuraReward: 50}

	for i := 0; i < 3; i++ {
		if _, err := fx.svc.JudgeSubmission(context.Background(), "u1", "s1", JudgeRequest{Status: model.StatusAccepted}); err != nil {
			t.Fatalf("judge %d: %v", i, err)
		}
	}
	// A later accepted submission for the same pair changes nothing either.
	result, err := fx.svc.JudgeSubmission(context.Background(), "u1", "s2", JudgeRequest{Status: model.StatusAccepted})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Rewarded {
		t.Fatal("repeat accept must not reward")
	}
	if got := fx.users.aura["u1"]; got != 50 {
		t.Fatalf("aura = %d, want 50 after repeated accepts", got)
	}
	if got := fx.users.problemsSolved["u1"]; got != 1 {
		t.Fatalf("problems_solved = %d, want 1", got)
	}
	if got := fx.problems.solvedCount["p1"]; got != 1 {
		t.Fatalf("solved_count = %d, want 1", got)
	}
	if fx.users.applyRewardInvoked != 1 {
		t.Fatalf("reward applied %d times, want 1", fx.users.applyRewardInvoked)
	}
}

func TestJudgeWrongAnswerThenAccept(t *testing.T) {
	fx := newSubmissionFixture()
	fx.subs.targets["s1"] = &repository.JudgingTarget{SubmissionID: "s1", UserID: "u1", ProblemID: "p1", AuraReward: 50}

	result, err := fx.svc.JudgeSubmission(context.Background(), "u1", "s1", JudgeRequest{Status: model.StatusWrongAnswer})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Rewarded {
		t.Fatal("wrong_answer must not reward")
	}
	if fx.users.aura["u1"] != 0 || len(fx.subs.solved) != 0 {
		t.Fatal("wrong_answer must not touch aura or the solved set")
	}
	if v := fx.subs.verdicts["s1"]; v.Status != model.StatusWrongAnswer {
		t.Fatalf("verdict not recorded, got %q", v.Status)
	}

	result, err = fx.svc.JudgeSubmission(context.Background(), "u1", "s1", JudgeRequest{Status: model.StatusAccepted})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Rewarded {
		t.Fatal("accept after wrong_answer must reward")
	}
	if got := fx.users.aura["u1"]; got != 50 {
		t.Fatalf("aura = %d, want 50", got)
	}
}

func TestJudgeRollsBackWhenSolveRecordFails(t *testing.T) {
	fx := newSubmissionFixture()
	fx.subs.targets["s1"] = &repository.JudgingTarget{SubmissionID: "s1", UserID: "u1", ProblemID: "p1", AuraReward: 50}
	fx.subs.markErr = errors.New("connection reset")

	_, err := fx.svc.JudgeSubmission(context.Background(), "u1", "s1", JudgeRequest{Status: model.StatusAccepted})
	if err == nil {
		t.Fatal("expected error")
	}
	if fx.driver.commits != 0 {
		t.Fatal("failed solve record must abort the whole transaction")
	}
	if fx.users.applyRewardInvoked != 0 {
		t.Fatal("no reward may be applied when the solve record fails")
	}
}

func TestJudgeRecordsMetrics(t *testing.T) {
	fx := newSubmissionFixture()
	fx.subs.targets["s1"] = &repository.JudgingTarget{SubmissionID: "s1", UserID: "u1", ProblemID: "p1", AuraReward: 10}

	runtimeMs := 42
	memoryKb := 1024
	_, err := fx.svc.JudgeSubmission(context.Background(), "u1", "s1", JudgeRequest{
		Status: model.StatusTimeLimitExceeded, RuntimeMs: &runtimeMs, MemoryKb: &memoryKb,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v := fx.subs.verdicts["s1"]
	if v.RuntimeMs == nil || *v.RuntimeMs != 42 || v.MemoryKb == nil || *v.MemoryKb != 1024 {
		t.Fatalf("metrics not written onto submission: %+v", v)
	}
}
