//go:build integration

package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mmynk/signin/internal/errdef"
	"github.com/mmynk/signin/internal/models"
	"github.com/mmynk/signin/internal/storage"
)

func setupPostgres(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "signin",
				"POSTGRES_PASSWORD": "signin",
				"POSTGRES_DB":       "signin_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed setting up PostgreSQL")
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx), "failed to terminate PostgreSQL")
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s user=signin password=signin dbname=signin_test port=%s sslmode=disable", host, port.Port())
	store, err := New(dsn, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPostgresStore(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	role := &models.Role{Name: "student", Capabilities: models.Capabilities{ReceivesFunds: true, Visible: true}}
	require.NoError(t, store.CreateRole(ctx, role))
	mentorRole := &models.Role{Name: "mentor", Capabilities: models.Capabilities{Mentor: true}}
	require.NoError(t, store.CreateRole(ctx, mentorRole))
	team := &models.Subteam{Name: "Build"}
	require.NoError(t, store.CreateSubteam(ctx, team))

	alice := models.NewMember("alice", "Alice", role.ID)
	alice.SubteamID = team.ID
	require.NoError(t, store.CreateMember(ctx, alice))
	require.NoError(t, store.ApproveMember(ctx, alice.ID))
	bob := models.NewMember("bob", "Bob", mentorRole.ID)
	require.NoError(t, store.CreateMember(ctx, bob))

	meeting := &models.EventType{Name: "Meeting", Autoload: true}
	require.NoError(t, store.CreateEventType(ctx, meeting))
	start := time.Date(2024, 9, 14, 13, 0, 0, 0, time.UTC)
	event := &models.Event{
		Name: "Build", Code: "build", Start: start, End: start.Add(2 * time.Hour),
		TypeID: meeting.ID, Enabled: true, PreEventMinutes: 30, PostEventMinutes: 30,
		Funds: 1000, Cost: 100, Overhead: 0.2,
	}
	require.NoError(t, store.CreateEvent(ctx, event))

	t.Run("members", func(t *testing.T) {
		got, err := store.GetMemberByCode(ctx, alice.Code)
		require.NoError(t, err)
		assert.True(t, got.Approved)
		assert.True(t, got.ReceivesFunds())
		require.NotNil(t, got.Subteam)
		assert.Equal(t, "Build", got.Subteam.Name)

		_, err = store.GetMember(ctx, "missing")
		assert.True(t, errdef.IsNotFound(err))

		dup := models.NewMember("alice", "Other", role.ID)
		assert.True(t, errdef.IsConflict(store.CreateMember(ctx, dup)))
	})

	t.Run("events", func(t *testing.T) {
		got, err := store.GetEventByCode(ctx, "build")
		require.NoError(t, err)
		assert.True(t, got.Start.Equal(start))
		require.NotNil(t, got.Type)
		assert.True(t, got.Type.Autoload)

		active, err := store.ListEvents(ctx, storage.EventFilter{
			OverlapsAt: start.Add(-20 * time.Minute), EnabledOnly: true, AutoloadOnly: true,
		})
		require.NoError(t, err)
		assert.Len(t, active, 1)

		none, err := store.ListEvents(ctx, storage.EventFilter{OverlapsAt: event.EffectiveEnd()})
		require.NoError(t, err)
		assert.Empty(t, none)

		got.Location = "Shop"
		require.NoError(t, store.UpdateEvent(ctx, got))
		updated, err := store.GetEvent(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, "Shop", updated.Location)
		assert.Equal(t, int64(1000), updated.Funds)
	})

	t.Run("transition toggle and close", func(t *testing.T) {
		opened, err := store.Transition(ctx, storage.TransitionRequest{MemberID: alice.ID, EventID: event.ID, At: start})
		require.NoError(t, err)
		require.NotNil(t, opened.Opened)

		closed, err := store.Transition(ctx, storage.TransitionRequest{MemberID: alice.ID, EventID: event.ID, At: start.Add(time.Hour)})
		require.NoError(t, err)
		require.NotNil(t, closed.Closed)
		assert.Equal(t, time.Hour, closed.Closed.Elapsed())

		reopened, err := store.Transition(ctx, storage.TransitionRequest{MemberID: bob.ID, EventID: event.ID, Mode: storage.Open, At: start})
		require.NoError(t, err)
		actives, err := store.ListActive(ctx, storage.ActiveFilter{EventCode: "build"})
		require.NoError(t, err)
		require.Len(t, actives, 1)
		assert.Equal(t, "*Bob", actives[0].MemberName)

		results, err := store.CloseActive(ctx, []storage.Closure{
			{ActiveID: reopened.Opened.ID, Credit: true, End: event.End.Add(3 * time.Hour)},
			{ActiveID: "gone"},
		})
		require.NoError(t, err)
		assert.True(t, results[0].Closed)
		assert.Equal(t, bob.ID, results[0].MemberID)
		assert.False(t, results[1].Closed)

		n, err := store.TrimStamps(ctx, event.ID, event.EffectiveStart(), event.EffectiveEnd())
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		stamps, err := store.ListStamps(ctx, storage.StampFilter{EventIDs: []string{event.ID}})
		require.NoError(t, err)
		require.Len(t, stamps, 2)
		for _, st := range stamps {
			assert.False(t, st.End.After(event.EffectiveEnd()))
		}
	})

	t.Run("concurrent toggles keep one active", func(t *testing.T) {
		const scans = 9
		var wg sync.WaitGroup
		errs := make(chan error, scans)
		for i := 0; i < scans; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Transition(ctx, storage.TransitionRequest{MemberID: alice.ID, EventID: event.ID, At: start})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		actives, err := store.ListActive(ctx, storage.ActiveFilter{EventID: event.ID})
		require.NoError(t, err)
		assert.Len(t, actives, 1)
	})

	t.Run("blocks", func(t *testing.T) {
		block := &models.EventBlock{EventID: event.ID, Start: start, End: start.Add(time.Hour)}
		require.NoError(t, store.CreateEventBlock(ctx, block))
		require.NoError(t, store.RegisterForBlock(ctx, block.ID, alice.ID))
		require.NoError(t, store.RegisterForBlock(ctx, block.ID, alice.ID))

		blocks, err := store.ListEventBlocks(ctx, event.ID)
		require.NoError(t, err)
		require.Len(t, blocks, 1)
		assert.Equal(t, 1, blocks[0].Registrations)
	})

	t.Run("delete event cascades", func(t *testing.T) {
		require.NoError(t, store.DeleteEvent(ctx, event.ID))
		stamps, err := store.ListStamps(ctx, storage.StampFilter{EventID: event.ID})
		require.NoError(t, err)
		assert.Empty(t, stamps)
		assert.True(t, errdef.IsNotFound(store.DeleteEvent(ctx, event.ID)))
	})
}
