//go:build integration_pg
// +build integration_pg

package repo

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"burrito/internal/core/window"
	"burrito/internal/platform/store"
	dirrepo "burrito/internal/services/directory/repo"
	"burrito/internal/services/ledger/domain"
)

// startPostgres launches a disposable Postgres and returns DSN + stop func
func startPostgres(t *testing.T) (dsn string, stop func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "postgres",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		).WithDeadline(2 * time.Minute),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		cancel()
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get container host: %v", err)
	}
	mp, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get mapped port: %v", err)
	}

	dsn = fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, mp.Port())
	stop = func() {
		_ = c.Terminate(context.Background())
		cancel()
	}
	return dsn, stop
}

const schema = `
CREATE TABLE IF NOT EXISTS user_profiles (
	id           bigserial PRIMARY KEY,
	external_id  text NOT NULL UNIQUE,
	display_name text NOT NULL DEFAULT '',
	updated_at   timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS grants (
	id           uuid PRIMARY KEY,
	created_at   timestamptz NOT NULL DEFAULT now(),
	author_id    bigint NOT NULL REFERENCES user_profiles (id),
	recipient_id bigint NOT NULL REFERENCES user_profiles (id),
	message      text NOT NULL DEFAULT '',
	CHECK (author_id <> recipient_id)
);
CREATE INDEX IF NOT EXISTS grants_author_created_idx ON grants (author_id, created_at);
`

func openStore(t *testing.T, ctx context.Context, dsn string) store.TxRunner {
	t.Helper()

	st, err := store.Open(ctx, store.Config{
		AppName: "burrito-test",
		PG: store.PGConfig{
			Enabled:  true,
			URL:      dsn,
			MaxConns: 4,
		},
	}, store.WithLogger(zerolog.New(io.Discard)))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	if _, err := st.PG.Exec(ctx, schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return st.PG
}

func mustProfile(t *testing.T, ctx context.Context, q store.TxRunner, externalID, name string) int64 {
	t.Helper()
	id, err := dirrepo.NewPG().Bind(q).UpsertProfile(ctx, externalID, name)
	if err != nil {
		t.Fatalf("upsert profile %s: %v", externalID, err)
	}
	return id
}

func TestRepo_Integration_ConditionalInsertEnforcesQuota(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	pg := openStore(t, ctx, dsn)
	grants := NewPG().Bind(pg)

	author := mustProfile(t, ctx, pg, "U01", "Alice")
	recipient := mustProfile(t, ctx, pg, "U02", "Bob")

	ts := time.Date(2026, 3, 10, 12, 0, 0, 0, window.Zone())
	day := window.Day(ts)

	for i := 0; i < 3; i++ {
		ok, err := grants.Insert(ctx, domain.Grant{
			ID:          uuid.New(),
			CreatedAt:   ts.Add(time.Duration(i) * time.Minute),
			AuthorID:    author,
			RecipientID: recipient,
			Message:     fmt.Sprintf("grant %d", i+1),
		}, day, domain.DailyLimit)
		if err != nil {
			t.Fatalf("insert %d: %v", i+1, err)
		}
		if !ok {
			t.Fatalf("insert %d blocked below the limit", i+1)
		}
	}

	ok, err := grants.Insert(ctx, domain.Grant{
		ID:          uuid.New(),
		CreatedAt:   ts.Add(10 * time.Minute),
		AuthorID:    author,
		RecipientID: recipient,
	}, day, domain.DailyLimit)
	if err != nil {
		t.Fatalf("fourth insert: %v", err)
	}
	if ok {
		t.Fatal("fourth same-day insert must be blocked")
	}

	n, err := grants.CountByAuthor(ctx, author, day)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}

	// a new day opens a fresh quota
	next := window.Day(ts.Add(24 * time.Hour))
	ok, err = grants.Insert(ctx, domain.Grant{
		ID:          uuid.New(),
		CreatedAt:   ts.Add(24 * time.Hour),
		AuthorID:    author,
		RecipientID: recipient,
	}, next, domain.DailyLimit)
	if err != nil {
		t.Fatalf("next day insert: %v", err)
	}
	if !ok {
		t.Fatal("next day insert must pass")
	}
}

func TestRepo_Integration_ConcurrentInsertsStayBounded(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	pg := openStore(t, ctx, dsn)
	grants := NewPG().Bind(pg)

	author := mustProfile(t, ctx, pg, "U01", "Alice")
	recipient := mustProfile(t, ctx, pg, "U02", "Bob")

	ts := time.Date(2026, 3, 10, 12, 0, 0, 0, window.Zone())
	day := window.Day(ts)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = grants.Insert(ctx, domain.Grant{
				ID:          uuid.New(),
				CreatedAt:   ts.Add(time.Duration(i) * time.Second),
				AuthorID:    author,
				RecipientID: recipient,
			}, day, domain.DailyLimit)
		}(i)
	}
	wg.Wait()

	n, err := grants.CountByAuthor(ctx, author, day)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n > domain.DailyLimit {
		t.Fatalf("count = %d, quota breached under concurrency", n)
	}
	if n == 0 {
		t.Fatal("no insert succeeded at all")
	}
}

func TestRepo_Integration_ListByWindowAndListAll(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	pg := openStore(t, ctx, dsn)
	grants := NewPG().Bind(pg)

	alice := mustProfile(t, ctx, pg, "U01", "Alice")
	bob := mustProfile(t, ctx, pg, "U02", "Bob")
	carol := mustProfile(t, ctx, pg, "U03", "Carol")

	ts := time.Date(2026, 3, 10, 12, 0, 0, 0, window.Zone())
	day := window.Day(ts)

	inserts := []struct {
		author, recipient int64
		at                time.Time
	}{
		{alice, bob, ts},
		{alice, carol, ts.Add(time.Minute)},
		{bob, carol, ts.Add(25 * time.Hour)}, // next day
	}
	for i, in := range inserts {
		ok, err := grants.Insert(ctx, domain.Grant{
			ID:          uuid.New(),
			CreatedAt:   in.at,
			AuthorID:    in.author,
			RecipientID: in.recipient,
		}, window.Day(in.at), domain.DailyLimit)
		if err != nil || !ok {
			t.Fatalf("insert %d: ok=%v err=%v", i, ok, err)
		}
	}

	today, err := grants.ListByWindow(ctx, day)
	if err != nil {
		t.Fatalf("ListByWindow: %v", err)
	}
	if len(today) != 2 {
		t.Fatalf("today = %d rows, want 2", len(today))
	}
	if !today[0].CreatedAt.Before(today[1].CreatedAt) {
		t.Fatal("rows must come back in creation order")
	}

	all, err := grants.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all = %d rows, want 3", len(all))
	}

	names, err := dirrepo.NewPG().Bind(pg).DisplayNames(ctx, []int64{alice, bob, 99999})
	if err != nil {
		t.Fatalf("DisplayNames: %v", err)
	}
	if names[alice] != "Alice" || names[bob] != "Bob" {
		t.Fatalf("names = %v", names)
	}
	if _, ok := names[99999]; ok {
		t.Fatal("unknown id must be absent")
	}
}
