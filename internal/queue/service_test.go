package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/neat/internal/core"
	"github.com/sevigo/neat/internal/fizzy"
	"github.com/sevigo/neat/internal/schema"
)

// fakeStore is an in-memory Store with the same conditional-update semantics
// as the Postgres implementation, so race behavior can be tested without a
// database.
type fakeStore struct {
	mu    sync.Mutex
	forms map[string]*core.Form

	// staleReads makes GetForm report pending regardless of the stored
	// status, simulating a snapshot taken before a concurrent winner
	// committed.
	staleReads bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{forms: make(map[string]*core.Form)}
}

func cloneForm(f *core.Form) *core.Form {
	clone := *f
	return &clone
}

func (s *fakeStore) put(f *core.Form) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forms[f.ID] = cloneForm(f)
}

func (s *fakeStore) CreateForm(_ context.Context, form *core.Form) error {
	s.put(form)
	return nil
}

func (s *fakeStore) GetForm(_ context.Context, id string) (*core.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	form, ok := s.forms[id]
	if !ok {
		return nil, core.ErrFormNotFound
	}
	clone := cloneForm(form)
	if s.staleReads {
		clone.Status = core.StatusPending
	}
	return clone, nil
}

func (s *fakeStore) GetFormByCardID(_ context.Context, cardID string) (*core.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, form := range s.forms {
		if form.FizzyCardID == cardID {
			return cloneForm(form), nil
		}
	}
	return nil, core.ErrFormNotFound
}

func (s *fakeStore) ListForms(_ context.Context, status *core.FormStatus) ([]*core.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*core.Form
	for _, form := range s.forms {
		if status == nil || form.Status == *status {
			out = append(out, cloneForm(form))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeStore) UpdateForm(_ context.Context, form *core.Form) (*core.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.forms[form.ID]; !ok {
		return nil, nil
	}
	s.forms[form.ID] = cloneForm(form)
	return cloneForm(form), nil
}

func (s *fakeStore) DeleteForm(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.forms[id]; !ok {
		return core.ErrFormNotFound
	}
	delete(s.forms, id)
	return nil
}

func (s *fakeStore) queueOrder() []*core.Form {
	var eligible []*core.Form
	for _, form := range s.forms {
		if form.Status == core.StatusPending && !form.IsTest {
			eligible = append(eligible, cloneForm(form))
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].Priority != eligible[j].Priority {
			return eligible[i].Priority > eligible[j].Priority
		}
		return eligible[i].CreatedAt.Before(eligible[j].CreatedAt)
	})
	return eligible
}

func (s *fakeStore) NextPending(_ context.Context) (*core.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eligible := s.queueOrder()
	if len(eligible) == 0 {
		return nil, nil
	}
	return eligible[0], nil
}

func (s *fakeStore) ListPending(_ context.Context) ([]*core.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queueOrder(), nil
}

func (s *fakeStore) CompleteIfPending(_ context.Context, id string, response map[string]any) (*core.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	form, ok := s.forms[id]
	if !ok || form.Status != core.StatusPending {
		return nil, nil
	}
	now := time.Now()
	form.Status = core.StatusCompleted
	form.Response = response
	form.CompletedAt = &now
	form.UpdatedAt = now
	return cloneForm(form), nil
}

func (s *fakeStore) SetStatusIf(_ context.Context, id string, from, to core.FormStatus) (*core.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	form, ok := s.forms[id]
	if !ok || form.Status != from {
		return nil, nil
	}
	form.Status = to
	form.UpdatedAt = time.Now()
	return cloneForm(form), nil
}

func (s *fakeStore) CompleteByCardNumber(_ context.Context, cardNumber int) (*core.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, form := range s.forms {
		if form.FizzyCardNumber == cardNumber {
			form.Status = core.StatusCompleted
			form.UpdatedAt = time.Now()
			return cloneForm(form), nil
		}
	}
	return nil, nil
}

// fakeFizzy records side-effect calls and can be told to fail comment posts.
type fakeFizzy struct {
	mu          sync.Mutex
	comments    []string
	closed      []int
	moved       map[int]string
	failComment bool
	failAction  bool
}

func newFakeFizzy() *fakeFizzy {
	return &fakeFizzy{moved: make(map[int]string)}
}

func (f *fakeFizzy) GetCard(context.Context, int) (*fizzy.Card, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeFizzy) AddComment(_ context.Context, _ int, body string) (*fizzy.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failComment {
		return nil, &fizzy.APIError{Code: "unavailable", Message: "Fizzy is down"}
	}
	f.comments = append(f.comments, body)
	return &fizzy.Comment{ID: "c1"}, nil
}

func (f *fakeFizzy) MoveCard(_ context.Context, cardNumber int, columnID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAction {
		return &fizzy.APIError{Code: "unavailable", Message: "Fizzy is down"}
	}
	f.moved[cardNumber] = columnID
	return nil
}

func (f *fakeFizzy) CloseCard(_ context.Context, cardNumber int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAction {
		return &fizzy.APIError{Code: "unavailable", Message: "Fizzy is down"}
	}
	f.closed = append(f.closed, cardNumber)
	return nil
}

func (f *fakeFizzy) commentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.comments)
}

func testService(store *fakeStore, client *fakeFizzy) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, client, logger)
}

func pendingForm(id string, cardNumber int) *core.Form {
	return &core.Form{
		ID:              id,
		FizzyCardID:     "card-" + id,
		FizzyCardNumber: cardNumber,
		Title:           "Test " + id,
		Schema: schema.Schema{
			Type:       "object",
			Required:   []string{"name"},
			Properties: map[string]schema.Property{"name": {Type: schema.TypeString}},
		},
		OnSubmit:  core.ActionComment,
		Status:    core.StatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestNextPendingOrdering(t *testing.T) {
	store := newFakeStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	low := pendingForm("b", 2)
	low.Title = "B"
	low.Priority = 5
	low.CreatedAt = base

	high := pendingForm("a", 1)
	high.Title = "A"
	high.Priority = 10
	high.CreatedAt = base.Add(time.Hour)

	oldSamePriority := pendingForm("c", 3)
	oldSamePriority.Priority = 10
	oldSamePriority.CreatedAt = base.Add(2 * time.Hour)

	for _, f := range []*core.Form{low, high, oldSamePriority} {
		store.put(f)
	}

	svc := testService(store, newFakeFizzy())

	next, err := svc.NextPending(context.Background())
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "A", next.Title) // highest priority, earliest created among ties

	all, err := svc.PendingForms(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a", "c", "b"}, []string{all[0].ID, all[1].ID, all[2].ID})
}

func TestNextPendingExcludesTestAndNonPending(t *testing.T) {
	store := newFakeStore()

	testForm := pendingForm("t", 1)
	testForm.IsTest = true
	testForm.Priority = 100

	skipped := pendingForm("s", 2)
	skipped.Status = core.StatusSkipped
	skipped.Priority = 100

	normal := pendingForm("n", 3)

	for _, f := range []*core.Form{testForm, skipped, normal} {
		store.put(f)
	}

	svc := testService(store, newFakeFizzy())

	next, err := svc.NextPending(context.Background())
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "n", next.ID)
}

func TestNextPendingEmptyQueue(t *testing.T) {
	svc := testService(newFakeStore(), newFakeFizzy())
	next, err := svc.NextPending(context.Background())
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestSubmitCompletesForm(t *testing.T) {
	store := newFakeStore()
	client := newFakeFizzy()
	form := pendingForm("f1", 42)
	store.put(form)

	svc := testService(store, client)

	updated, err := svc.Submit(context.Background(), "f1", map[string]any{"name": "John"})
	require.NoError(t, err)

	assert.Equal(t, core.StatusCompleted, updated.Status)
	assert.Equal(t, map[string]any{"name": "John"}, updated.Response)
	require.NotNil(t, updated.CompletedAt)

	require.Equal(t, 1, client.commentCount())
	assert.Contains(t, client.comments[0], "**Name:** John")
	assert.Contains(t, client.comments[0], "Response via Neat")
}

func TestSubmitInputGuards(t *testing.T) {
	store := newFakeStore()
	store.put(pendingForm("f1", 1))
	svc := testService(store, newFakeFizzy())

	tests := []struct {
		name     string
		response any
		wantMsg  string
	}{
		{"nil response", nil, "Response data is required"},
		{"array response", []any{"a"}, "Response must be an object"},
		{"string response", "hi", "Response must be an object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), "f1", tt.response)
			require.Error(t, err)
			var inErr *core.InputError
			require.ErrorAs(t, err, &inErr)
			assert.Equal(t, tt.wantMsg, inErr.Error())
		})
	}
}

func TestSubmitValidationGate(t *testing.T) {
	store := newFakeStore()
	client := newFakeFizzy()
	form := pendingForm("f1", 1)
	form.Schema = schema.Schema{
		Type:     "object",
		Required: []string{"email"},
		Properties: map[string]schema.Property{
			"email": {Type: schema.TypeString},
		},
	}
	store.put(form)

	svc := testService(store, client)

	_, err := svc.Submit(context.Background(), "f1", map[string]any{})
	require.Error(t, err)

	var vErr *schema.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, err.Error(), "email")

	// Nothing was dispatched and the form is still pending.
	assert.Equal(t, 0, client.commentCount())
	current, err := store.GetForm(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, current.Status)
	assert.Nil(t, current.Response)
}

func TestSubmitUnknownForm(t *testing.T) {
	svc := testService(newFakeStore(), newFakeFizzy())
	_, err := svc.Submit(context.Background(), "missing", map[string]any{"name": "x"})
	assert.ErrorIs(t, err, core.ErrFormNotFound)
}

func TestSubmitAlreadyProcessed(t *testing.T) {
	store := newFakeStore()
	form := pendingForm("f1", 1)
	form.Status = core.StatusCompleted
	store.put(form)

	svc := testService(store, newFakeFizzy())
	_, err := svc.Submit(context.Background(), "f1", map[string]any{"name": "x"})
	assert.ErrorIs(t, err, core.ErrAlreadyProcessed)
}

func TestSubmitBlockedByTicketingFailure(t *testing.T) {
	store := newFakeStore()
	client := newFakeFizzy()
	client.failComment = true
	store.put(pendingForm("f1", 1))

	svc := testService(store, client)

	_, err := svc.Submit(context.Background(), "f1", map[string]any{"name": "x"})
	require.Error(t, err)

	var tErr *core.TicketingError
	require.ErrorAs(t, err, &tErr)

	// Fizzy is the record of truth for structured submissions: the form
	// must remain pending when the comment post fails.
	current, getErr := store.GetForm(context.Background(), "f1")
	require.NoError(t, getErr)
	assert.Equal(t, core.StatusPending, current.Status)
}

func TestSubmitRunsOnSubmitAction(t *testing.T) {
	t.Run("close", func(t *testing.T) {
		store := newFakeStore()
		client := newFakeFizzy()
		form := pendingForm("f1", 42)
		form.OnSubmit = core.ActionClose
		store.put(form)

		_, err := testService(store, client).Submit(context.Background(), "f1", map[string]any{"name": "x"})
		require.NoError(t, err)
		assert.Equal(t, []int{42}, client.closed)
	})

	t.Run("move", func(t *testing.T) {
		store := newFakeStore()
		client := newFakeFizzy()
		form := pendingForm("f1", 42)
		form.OnSubmit = core.ActionMove
		form.TargetColumn = "col-7"
		store.put(form)

		_, err := testService(store, client).Submit(context.Background(), "f1", map[string]any{"name": "x"})
		require.NoError(t, err)
		assert.Equal(t, "col-7", client.moved[42])
	})

	t.Run("action failure does not block completion", func(t *testing.T) {
		store := newFakeStore()
		client := newFakeFizzy()
		form := pendingForm("f1", 42)
		form.OnSubmit = core.ActionClose
		store.put(form)

		// Comment must succeed, so only fail the follow-up action.
		client.failAction = true

		updated, err := testService(store, client).Submit(context.Background(), "f1", map[string]any{"name": "x"})
		require.NoError(t, err)
		assert.Equal(t, core.StatusCompleted, updated.Status)
	})
}

func TestSubmitLostRaceReturnsConflict(t *testing.T) {
	store := newFakeStore()
	form := pendingForm("f1", 1)
	form.Status = core.StatusCompleted
	store.put(form)

	// Stale reads simulate a request that loaded the form while it was
	// still pending; the conditional update is what catches the race.
	store.staleReads = true

	svc := testService(store, newFakeFizzy())
	_, err := svc.Submit(context.Background(), "f1", map[string]any{"name": "x"})
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestConcurrentSubmissionsAtMostOnce(t *testing.T) {
	store := newFakeStore()
	store.put(pendingForm("f1", 1))
	svc := testService(store, newFakeFizzy())

	const n = 16
	results := make(chan error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(context.Background(), "f1", map[string]any{"name": "x"})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, failures int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		failures++
		// Late readers hit the status guard; racers hit the conditional
		// update. Both are rejections, never silent success.
		if !errors.Is(err, core.ErrConflict) && !errors.Is(err, core.ErrAlreadyProcessed) {
			t.Fatalf("unexpected error kind: %v", err)
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, failures)
}

func TestQuickCommentCompletesDespiteTicketingFailure(t *testing.T) {
	store := newFakeStore()
	client := newFakeFizzy()
	client.failComment = true
	store.put(pendingForm("f1", 9))

	svc := testService(store, client)

	updated, err := svc.QuickComment(context.Background(), "f1", "  handled offline  ")
	require.NoError(t, err)

	assert.Equal(t, core.StatusCompleted, updated.Status)
	assert.Equal(t, map[string]any{"_comment": "handled offline"}, updated.Response)
}

func TestQuickCommentPostsToFizzy(t *testing.T) {
	store := newFakeStore()
	client := newFakeFizzy()
	store.put(pendingForm("f1", 9))

	_, err := testService(store, client).QuickComment(context.Background(), "f1", "all good")
	require.NoError(t, err)

	require.Equal(t, 1, client.commentCount())
	assert.Contains(t, client.comments[0], "all good")
	assert.Contains(t, client.comments[0], "Quick Response via Neat")
}

func TestQuickCommentInputGuards(t *testing.T) {
	store := newFakeStore()
	store.put(pendingForm("f1", 1))
	svc := testService(store, newFakeFizzy())

	tests := []struct {
		name    string
		comment string
		wantMsg string
	}{
		{"missing", "", "Comment is required"},
		{"whitespace only", "   \n\t ", "Comment cannot be empty"},
		{"too long", strings.Repeat("x", maxCommentLength+1), "Comment is too long (max 10000 characters)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.QuickComment(context.Background(), "f1", tt.comment)
			require.Error(t, err)
			var inErr *core.InputError
			require.ErrorAs(t, err, &inErr)
			assert.Equal(t, tt.wantMsg, inErr.Error())
		})
	}
}

func TestSkipAndUnskipLifecycle(t *testing.T) {
	store := newFakeStore()
	store.put(pendingForm("f1", 1))
	svc := testService(store, newFakeFizzy())
	ctx := context.Background()

	skipped, err := svc.Skip(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusSkipped, skipped.Status)

	// Skipping again is a guard failure.
	_, err = svc.Skip(ctx, "f1")
	assert.ErrorIs(t, err, core.ErrAlreadyProcessed)

	restored, err := svc.Unskip(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, restored.Status)

	// Unskipping a pending form is rejected.
	_, err = svc.Unskip(ctx, "f1")
	assert.ErrorIs(t, err, core.ErrNotSkipped)
}

func TestCompletedIsTerminal(t *testing.T) {
	store := newFakeStore()
	client := newFakeFizzy()
	store.put(pendingForm("f1", 1))
	svc := testService(store, client)
	ctx := context.Background()

	_, err := svc.Submit(ctx, "f1", map[string]any{"name": "done"})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, "f1", map[string]any{"name": "again"})
	assert.ErrorIs(t, err, core.ErrAlreadyProcessed)

	_, err = svc.QuickComment(ctx, "f1", "again")
	assert.ErrorIs(t, err, core.ErrAlreadyProcessed)

	_, err = svc.Skip(ctx, "f1")
	assert.ErrorIs(t, err, core.ErrAlreadyProcessed)

	_, err = svc.Unskip(ctx, "f1")
	assert.ErrorIs(t, err, core.ErrNotSkipped)
}

func TestCompleteByCardNumber(t *testing.T) {
	store := newFakeStore()
	form := pendingForm("f1", 321)
	store.put(form)
	svc := testService(store, newFakeFizzy())

	completed, err := svc.CompleteByCardNumber(context.Background(), 321)
	require.NoError(t, err)
	require.NotNil(t, completed)
	assert.Equal(t, core.StatusCompleted, completed.Status)

	// Unknown card numbers are a no-op, not an error.
	missing, err := svc.CompleteByCardNumber(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCompleteByCardNumberOverridesSkipped(t *testing.T) {
	store := newFakeStore()
	form := pendingForm("f1", 55)
	form.Status = core.StatusSkipped
	store.put(form)

	completed, err := testService(store, newFakeFizzy()).CompleteByCardNumber(context.Background(), 55)
	require.NoError(t, err)
	require.NotNil(t, completed)
	assert.Equal(t, core.StatusCompleted, completed.Status)
}

func TestCreateFormDefaults(t *testing.T) {
	store := newFakeStore()
	svc := testService(store, newFakeFizzy())

	created, err := svc.CreateForm(context.Background(), &core.Form{
		FizzyCardID:     "card-x",
		FizzyCardNumber: 7,
		Title:           "New",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, core.StatusPending, created.Status)
	assert.Equal(t, core.ActionComment, created.OnSubmit)
	assert.False(t, created.CreatedAt.IsZero())
}
