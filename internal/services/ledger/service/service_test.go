package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"burrito/internal/core/message"
	"burrito/internal/core/window"
	"burrito/internal/modkit/repokit"
	perr "burrito/internal/platform/errors"
	"burrito/internal/platform/store"
	"burrito/internal/platform/testkit"
	ddom "burrito/internal/services/directory/domain"
	"burrito/internal/services/ledger/domain"
)

type fakeTx struct{}

func (fakeTx) Exec(ctx context.Context, sql string, args ...any) (store.CommandTag, error) {
	var z store.CommandTag
	return z, nil
}

func (fakeTx) Query(ctx context.Context, sql string, args ...any) (store.Rows, error) {
	var z store.Rows
	return z, nil
}

func (fakeTx) QueryRow(ctx context.Context, sql string, args ...any) store.Row {
	var z store.Row
	return z
}

func (f fakeTx) Tx(ctx context.Context, fn func(q store.RowQuerier) error) error {
	return fn(f)
}

type fakeRepo struct {
	grants []domain.Grant

	// forceFull simulates a racing writer taking the last quota slot
	// between the pre-check and the insert
	forceFull bool
}

func (f *fakeRepo) Insert(ctx context.Context, g domain.Grant, w window.Window, limit int64) (bool, error) {
	if f.forceFull {
		return false, nil
	}
	n, _ := f.CountByAuthor(ctx, g.AuthorID, w)
	if n >= limit {
		return false, nil
	}
	f.grants = append(f.grants, g)
	return true, nil
}

func (f *fakeRepo) CountByAuthor(ctx context.Context, authorID int64, w window.Window) (int64, error) {
	var n int64
	for _, g := range f.grants {
		if g.AuthorID == authorID && w.Contains(g.CreatedAt) {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) ListByWindow(ctx context.Context, w window.Window) ([]domain.Grant, error) {
	var out []domain.Grant
	for _, g := range f.grants {
		if w.Contains(g.CreatedAt) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListAll(ctx context.Context) ([]domain.Grant, error) {
	return append([]domain.Grant(nil), f.grants...), nil
}

type fakeDir struct {
	next  int64
	ids   map[string]int64
	names map[int64]string
	err   error
}

func newFakeDir() *fakeDir {
	return &fakeDir{ids: map[string]int64{}, names: map[int64]string{}}
}

func (f *fakeDir) Resolve(ctx context.Context, externalID string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	id, ok := f.ids[externalID]
	if !ok {
		f.next++
		id = f.next
		f.ids[externalID] = id
		f.names[id] = "name-" + externalID
	}
	return id, nil
}

func (f *fakeDir) DisplayNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := map[int64]string{}
	for _, id := range ids {
		if n, ok := f.names[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

var _ ddom.ResolverPort = (*fakeDir)(nil)

func newSvc(repo domain.Repo, dir ddom.ResolverPort) *Svc {
	binder := repokit.BindFunc[domain.Repo](func(_ repokit.Queryer) domain.Repo { return repo })
	return New(fakeTx{}, binder, dir, Options{})
}

func grantMsg(recipients ...string) []message.Element {
	els := []message.Element{{Type: message.ElementEmoji, Name: "burrito"}}
	for _, r := range recipients {
		els = append(els, message.Element{Type: message.ElementUser, UserID: r})
	}
	return els
}

func seoulNoon() time.Time {
	return time.Date(2026, 3, 10, 12, 0, 0, 0, window.Zone())
}

func TestSubmitGrant_NoTokenIsIgnored(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	svc := newSvc(repo, newFakeDir())

	res, err := svc.SubmitGrant(context.Background(), domain.SubmitInput{
		AuthorExternalID: "U01",
		Elements: []message.Element{
			{Type: message.ElementUser, UserID: "U02"},
			{Type: message.ElementText, Text: "plain chatter"},
		},
		CapturedAt: seoulNoon(),
	})
	if err != nil {
		t.Fatalf("SubmitGrant: %v", err)
	}
	if res.Outcome.Kind != domain.OutcomeIgnored {
		t.Fatalf("kind = %v, want ignored", res.Outcome.Kind)
	}
	if res.Reply != "" {
		t.Fatalf("ignored message must have no reply, got %q", res.Reply)
	}
	if len(repo.grants) != 0 {
		t.Fatal("ignored message must not write")
	}
}

func TestSubmitGrant_MentionCountRules(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		mentions []string
	}{
		{"zero mentions", nil},
		{"two mentions", []string{"U02", "U03"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeRepo{}
			svc := newSvc(repo, newFakeDir())

			res, err := svc.SubmitGrant(context.Background(), domain.SubmitInput{
				AuthorExternalID: "U01",
				Elements:         grantMsg(tc.mentions...),
				CapturedAt:       seoulNoon(),
			})
			if err != nil {
				t.Fatalf("SubmitGrant: %v", err)
			}
			if res.Outcome.Kind != domain.OutcomeRejected || res.Outcome.Reason != domain.ReasonNotSingleMention {
				t.Fatalf("outcome = %+v, want rejected not-single-mention", res.Outcome)
			}
			if res.Reply != ":burrito: 부리또 증정은 한 명에게 해야 합니다." {
				t.Fatalf("reply = %q", res.Reply)
			}
			if len(repo.grants) != 0 {
				t.Fatal("rejected message must not write")
			}
		})
	}
}

func TestSubmitGrant_SelfGrantRejected(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	svc := newSvc(repo, newFakeDir())

	res, err := svc.SubmitGrant(context.Background(), domain.SubmitInput{
		AuthorExternalID: "U01",
		Elements:         grantMsg("U01"),
		CapturedAt:       seoulNoon(),
	})
	if err != nil {
		t.Fatalf("SubmitGrant: %v", err)
	}
	if res.Outcome.Reason != domain.ReasonSelfGrant {
		t.Fatalf("reason = %v, want self grant", res.Outcome.Reason)
	}
	if res.Reply != ":burrito: 자신에게 부리또를 증정할 수는 없습니다." {
		t.Fatalf("reply = %q", res.Reply)
	}
	if len(repo.grants) != 0 {
		t.Fatal("rejected message must not write")
	}
}

func TestSubmitGrant_FourthSameDayRejected(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	svc := newSvc(repo, newFakeDir())
	ts := seoulNoon()

	for i, recipient := range []string{"U02", "U03", "U04"} {
		res, err := svc.SubmitGrant(context.Background(), domain.SubmitInput{
			AuthorExternalID: "U01",
			Elements:         grantMsg(recipient),
			CapturedAt:       ts.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("grant %d: %v", i+1, err)
		}
		if res.Outcome.Kind != domain.OutcomeAccepted {
			t.Fatalf("grant %d outcome = %+v, want accepted", i+1, res.Outcome)
		}
	}

	res, err := svc.SubmitGrant(context.Background(), domain.SubmitInput{
		AuthorExternalID: "U01",
		Elements:         grantMsg("U05"),
		CapturedAt:       ts.Add(10 * time.Minute),
	})
	if err != nil {
		t.Fatalf("fourth grant: %v", err)
	}
	if res.Outcome.Reason != domain.ReasonQuotaExceeded {
		t.Fatalf("reason = %v, want quota exceeded", res.Outcome.Reason)
	}
	if res.Reply != ":burrito: 하루에 부리또는 총 3개만 선물할 수 있습니다." {
		t.Fatalf("reply = %q", res.Reply)
	}
	if len(repo.grants) != 3 {
		t.Fatalf("grants = %d, want 3", len(repo.grants))
	}
}

func TestSubmitGrant_QuotaResetsNextDay(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	svc := newSvc(repo, newFakeDir())
	ts := seoulNoon()

	for i := 0; i < 3; i++ {
		if _, err := svc.SubmitGrant(context.Background(), domain.SubmitInput{
			AuthorExternalID: "U01",
			Elements:         grantMsg("U02"),
			CapturedAt:       ts.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("grant %d: %v", i+1, err)
		}
	}

	res, err := svc.SubmitGrant(context.Background(), domain.SubmitInput{
		AuthorExternalID: "U01",
		Elements:         grantMsg("U02"),
		CapturedAt:       ts.Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("next day grant: %v", err)
	}
	if res.Outcome.Kind != domain.OutcomeAccepted {
		t.Fatalf("outcome = %+v, want accepted on the next day", res.Outcome)
	}
}

func TestSubmitGrant_RacingWriterStillBounded(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{forceFull: true}
	svc := newSvc(repo, newFakeDir())

	res, err := svc.SubmitGrant(context.Background(), domain.SubmitInput{
		AuthorExternalID: "U01",
		Elements:         grantMsg("U02"),
		CapturedAt:       seoulNoon(),
	})
	if err != nil {
		t.Fatalf("SubmitGrant: %v", err)
	}
	if res.Outcome.Reason != domain.ReasonQuotaExceeded {
		t.Fatalf("reason = %v, want quota exceeded when the insert loses the race", res.Outcome.Reason)
	}
}

func TestSubmitGrant_AcceptedRecordsAndReplies(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	svc := newSvc(repo, newFakeDir())

	res, err := svc.SubmitGrant(context.Background(), domain.SubmitInput{
		AuthorExternalID: "U01",
		Elements:         grantMsg("U02"),
		RawText:          "<@U02> :burrito: 오늘 고생했어요",
		CapturedAt:       seoulNoon(),
	})
	if err != nil {
		t.Fatalf("SubmitGrant: %v", err)
	}
	if res.Outcome.Kind != domain.OutcomeAccepted {
		t.Fatalf("outcome = %+v, want accepted", res.Outcome)
	}
	if res.Grant == nil {
		t.Fatal("accepted result must carry the grant")
	}
	if res.Grant.Message != "오늘 고생했어요" {
		t.Fatalf("stored message = %q", res.Grant.Message)
	}
	if !strings.HasPrefix(res.Reply, ":burrito: 부리또를 성공적으로 주셨습니다.:burrito:\n\n*오늘의 부리또*\n\n") {
		t.Fatalf("reply = %q", res.Reply)
	}
	if !strings.Contains(res.Reply, "name-U02: `1`") {
		t.Fatalf("reply missing recipient line: %q", res.Reply)
	}
	if len(res.Today) != 1 || res.Today[0].Count != 1 {
		t.Fatalf("today = %+v", res.Today)
	}
}

func TestSubmitGrant_LookupFailurePropagates(t *testing.T) {
	t.Parallel()

	dir := newFakeDir()
	dir.err = perr.LookupFailedf("chat down")
	svc := newSvc(&fakeRepo{}, dir)

	_, err := svc.SubmitGrant(context.Background(), domain.SubmitInput{
		AuthorExternalID: "U01",
		Elements:         grantMsg("U02"),
		CapturedAt:       seoulNoon(),
	})
	if !perr.IsCode(err, perr.ErrorCodeLookupFailed) {
		t.Fatalf("code = %v, want LookupFailed", perr.CodeOf(err))
	}
}

func TestDashboard_RanksAllTime(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	dir := newFakeDir()
	svc := newSvc(repo, dir)
	ts := seoulNoon()

	// U02 twice from two authors, U03 once
	grants := []struct{ author, recipient string }{
		{"U01", "U02"},
		{"U04", "U02"},
		{"U01", "U03"},
	}
	for i, g := range grants {
		if _, err := svc.SubmitGrant(context.Background(), domain.SubmitInput{
			AuthorExternalID: g.author,
			Elements:         grantMsg(g.recipient),
			CapturedAt:       ts.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("grant %d: %v", i, err)
		}
	}

	rows, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %+v, want 2", rows)
	}
	if rows[0].DisplayName != "name-U02" || rows[0].Count != 2 {
		t.Fatalf("rows[0] = %+v", rows[0])
	}
	if rows[1].DisplayName != "name-U03" || rows[1].Count != 1 {
		t.Fatalf("rows[1] = %+v", rows[1])
	}
}

func TestLeaderboard_MissingProfileKeepsRawID(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	dir := newFakeDir()
	svc := newSvc(repo, dir)

	if _, err := svc.SubmitGrant(context.Background(), domain.SubmitInput{
		AuthorExternalID: "U01",
		Elements:         grantMsg("U02"),
		CapturedAt:       seoulNoon(),
	}); err != nil {
		t.Fatalf("SubmitGrant: %v", err)
	}

	// drop the recipient's profile row
	for id := range dir.names {
		delete(dir.names, id)
	}

	rows, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].DisplayName != "" {
		t.Fatalf("display name = %q, want empty", rows[0].DisplayName)
	}
	if rows[0].Label() == "" {
		t.Fatal("label must fall back to the raw id")
	}
}

func TestNew_PanicsOnMissingDeps(t *testing.T) {
	t.Parallel()

	binder := repokit.BindFunc[domain.Repo](func(_ repokit.Queryer) domain.Repo { return &fakeRepo{} })
	dir := newFakeDir()

	testkit.MustPanic(t, func() { New(nil, binder, dir, Options{}) })
	testkit.MustPanic(t, func() { New(fakeTx{}, nil, dir, Options{}) })
	testkit.MustPanic(t, func() { New(fakeTx{}, binder, nil, Options{}) })
	testkit.MustNotPanic(t, func() { New(fakeTx{}, binder, dir, Options{}) })
}
