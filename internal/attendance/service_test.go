package attendance

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mmynk/signin/internal/clock"
	"github.com/mmynk/signin/internal/errdef"
	"github.com/mmynk/signin/internal/models"
	"github.com/mmynk/signin/internal/notify"
	"github.com/mmynk/signin/internal/storage"
	"github.com/mmynk/signin/internal/storage/sqlite"
)

var eventStart = time.Date(2024, 9, 14, 13, 0, 0, 0, time.UTC)

type recorder struct {
	mu          sync.Mutex
	transitions []notify.Transition
}

func (r *recorder) Publish(_ context.Context, t notify.Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, t)
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kinds []notify.Kind
	for _, t := range r.transitions {
		kinds = append(kinds, t.Kind)
	}
	return kinds
}

type testEnv struct {
	svc     *Service
	store   *sqlite.SQLiteStore
	clock   *clock.Fake
	events  *recorder
	student *models.Member
	mentor  *models.Member
	event   *models.Event
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "attendance-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	studentRole := &models.Role{Name: "student", Capabilities: models.Capabilities{ReceivesFunds: true, Visible: true}}
	mentorRole := &models.Role{Name: "mentor", Capabilities: models.Capabilities{Mentor: true}}
	for _, r := range []*models.Role{studentRole, mentorRole} {
		if err := store.CreateRole(ctx, r); err != nil {
			t.Fatalf("CreateRole failed: %v", err)
		}
	}
	programming := &models.Subteam{Name: "Programming"}
	if err := store.CreateSubteam(ctx, programming); err != nil {
		t.Fatalf("CreateSubteam failed: %v", err)
	}

	student := models.NewMember("alice", "Alice", studentRole.ID)
	student.Approved = true
	student.SubteamID = programming.ID
	mentor := models.NewMember("bob", "Bob", mentorRole.ID)
	mentor.Approved = true
	for _, m := range []*models.Member{student, mentor} {
		if err := store.CreateMember(ctx, m); err != nil {
			t.Fatalf("CreateMember failed: %v", err)
		}
	}

	meeting := &models.EventType{Name: "Meeting", Autoload: true}
	if err := store.CreateEventType(ctx, meeting); err != nil {
		t.Fatalf("CreateEventType failed: %v", err)
	}
	event := &models.Event{
		Name: "Build Night", Code: "build-night",
		Start: eventStart, End: eventStart.Add(time.Hour),
		TypeID: meeting.ID, Enabled: true,
		PreEventMinutes: 30, PostEventMinutes: 120,
	}
	if err := store.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	fake := clock.NewFake(eventStart)
	rec := &recorder{}
	return &testEnv{
		svc:     New(store, fake, WithNotifier(rec)),
		store:   store,
		clock:   fake,
		events:  rec,
		student: student,
		mentor:  mentor,
		event:   event,
	}
}

func TestScanToggle(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	first, err := env.svc.Scan(ctx, "build-night", env.student.Code)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if first.Outcome != SignedIn {
		t.Fatalf("first scan = %v, want SignedIn", first.Outcome)
	}
	if len(first.Present) != 1 || first.Present[0].MemberID != env.student.ID {
		t.Errorf("present list = %+v", first.Present)
	}

	env.clock.Advance(47*time.Minute + 3*time.Second)
	second, err := env.svc.Scan(ctx, "build-night", env.student.Code)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if second.Outcome != SignedOut {
		t.Fatalf("second scan = %v, want SignedOut", second.Outcome)
	}
	if got, want := second.Elapsed(), 47*time.Minute+3*time.Second; got != want {
		t.Errorf("elapsed = %v, want %v", got, want)
	}
	if len(second.Present) != 0 {
		t.Errorf("expected empty present list, got %d", len(second.Present))
	}

	third, err := env.svc.Scan(ctx, "build-night", env.student.Code)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if third.Outcome != SignedIn {
		t.Errorf("third scan = %v, want SignedIn", third.Outcome)
	}

	kinds := env.events.kinds()
	want := []notify.Kind{notify.KindSignedIn, notify.KindSignedOut, notify.KindSignedIn}
	if len(kinds) != len(want) {
		t.Fatalf("published %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("published[%d] = %s, want %s", i, kinds[i], want[i])
		}
	}
}

func TestScanEffectiveWindow(t *testing.T) {
	tests := []struct {
		name      string
		at        time.Time
		wantError bool
	}{
		{"early arrival inside pre-event grace", eventStart.Add(-20 * time.Minute), false},
		{"before grace", eventStart.Add(-31 * time.Minute), true},
		{"late departure inside post-event grace", eventStart.Add(time.Hour + 119*time.Minute), false},
		{"after grace", eventStart.Add(time.Hour + 150*time.Minute), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setup(t)
			env.clock.Set(tt.at)

			_, err := env.svc.Scan(context.Background(), "build-night", env.student.Code)
			if tt.wantError {
				if !errdef.IsEventNotActive(err) {
					t.Fatalf("expected EventNotActive, got %v", err)
				}
				actives, _ := env.store.ListActive(context.Background(), storage.ActiveFilter{})
				if len(actives) != 0 {
					t.Errorf("rejected scan mutated state: %d active", len(actives))
				}
				return
			}
			if err != nil {
				t.Fatalf("Scan failed: %v", err)
			}
		})
	}
}

func TestScanRejectsUnknownOrIneligible(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	pending := models.NewMember("carol", "Carol", env.student.RoleID)
	if err := env.store.CreateMember(ctx, pending); err != nil {
		t.Fatalf("CreateMember failed: %v", err)
	}
	disabled := &models.Event{
		Name: "Closed", Code: "closed", Start: eventStart, End: eventStart.Add(time.Hour), Enabled: false,
	}
	if err := env.store.CreateEvent(ctx, disabled); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	tests := []struct {
		name       string
		eventCode  string
		memberCode string
	}{
		{"unknown event", "nope", env.student.Code},
		{"unknown member", "build-night", "not-a-badge"},
		{"disabled event", "closed", env.student.Code},
		{"unapproved member", "build-night", pending.Code},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Scan(ctx, tt.eventCode, tt.memberCode)
			if !errdef.IsNotFound(err) {
				t.Errorf("expected NotFound, got %v", err)
			}
		})
	}

	actives, _ := env.store.ListActive(ctx, storage.ActiveFilter{})
	if len(actives) != 0 {
		t.Errorf("rejected scans mutated state: %d active", len(actives))
	}
	if len(env.events.kinds()) != 0 {
		t.Errorf("rejected scans published %v", env.events.kinds())
	}
}

func TestConcurrentScans(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	const scans = 7
	var wg sync.WaitGroup
	outcomes := make(chan Outcome, scans)
	errs := make(chan error, scans)
	for i := 0; i < scans; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := env.svc.Scan(ctx, "build-night", env.student.Code)
			if err != nil {
				errs <- err
				return
			}
			outcomes <- res.Outcome
		}()
	}
	wg.Wait()
	close(outcomes)
	close(errs)
	for err := range errs {
		t.Fatalf("Scan failed: %v", err)
	}

	counts := map[Outcome]int{}
	for o := range outcomes {
		counts[o]++
	}
	if counts[SignedIn] != 4 || counts[SignedOut] != 3 {
		t.Errorf("outcomes = %v, want 4 SignedIn and 3 SignedOut", counts)
	}

	actives, err := env.store.ListActive(ctx, storage.ActiveFilter{EventID: env.event.ID})
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(actives) != 1 {
		t.Errorf("expected exactly 1 active session, got %d", len(actives))
	}
}

func TestSignInSignOut(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	in, err := env.svc.SignIn(ctx, "build-night", env.student.ID)
	if err != nil || in.Outcome != SignedIn {
		t.Fatalf("SignIn = %+v, %v", in, err)
	}
	again, err := env.svc.SignIn(ctx, "build-night", env.student.ID)
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if again.Outcome != Unchanged || again.Active == nil || again.Active.ID != in.Active.ID {
		t.Errorf("second SignIn should report the open session, got %+v", again)
	}

	env.clock.Advance(time.Hour)
	out, err := env.svc.SignOut(ctx, "build-night", env.student.ID)
	if err != nil || out.Outcome != SignedOut {
		t.Fatalf("SignOut = %+v, %v", out, err)
	}
	if out.Elapsed() != time.Hour {
		t.Errorf("elapsed = %v, want 1h", out.Elapsed())
	}
	noop, err := env.svc.SignOut(ctx, "build-night", env.student.ID)
	if err != nil || noop.Outcome != Unchanged {
		t.Errorf("second SignOut = %+v, %v", noop, err)
	}

	if _, err := env.svc.SignIn(ctx, "build-night", "missing"); !errdef.IsNotFound(err) {
		t.Errorf("expected NotFound for unknown member, got %v", err)
	}
}

func TestForceClose(t *testing.T) {
	ctx := context.Background()

	t.Run("credit stamps now", func(t *testing.T) {
		env := setup(t)
		res, _ := env.svc.Scan(ctx, "build-night", env.student.Code)
		env.clock.Advance(25 * time.Minute)

		closed, err := env.svc.ForceClose(ctx, res.Active.ID, true, nil)
		if err != nil {
			t.Fatalf("ForceClose failed: %v", err)
		}
		if closed.Stamp == nil || closed.Stamp.Elapsed() != 25*time.Minute {
			t.Errorf("unexpected stamp: %+v", closed.Stamp)
		}
	})

	t.Run("credit with explicit end", func(t *testing.T) {
		env := setup(t)
		res, _ := env.svc.Scan(ctx, "build-night", env.student.Code)
		env.clock.Advance(3 * time.Hour)

		end := env.event.End
		closed, err := env.svc.ForceClose(ctx, res.Active.ID, true, &end)
		if err != nil {
			t.Fatalf("ForceClose failed: %v", err)
		}
		if !closed.Stamp.End.Equal(env.event.End) {
			t.Errorf("stamp end = %v, want %v", closed.Stamp.End, env.event.End)
		}
	})

	t.Run("end before start is rejected", func(t *testing.T) {
		env := setup(t)
		res, _ := env.svc.Scan(ctx, "build-night", env.student.Code)
		end := eventStart.Add(-time.Hour)
		if _, err := env.svc.ForceClose(ctx, res.Active.ID, true, &end); !errdef.IsBadRequest(err) {
			t.Errorf("expected BadRequest, got %v", err)
		}
	})

	t.Run("discard leaves no stamp", func(t *testing.T) {
		env := setup(t)
		res, _ := env.svc.Scan(ctx, "build-night", env.mentor.Code)
		closed, err := env.svc.ForceClose(ctx, res.Active.ID, false, nil)
		if err != nil {
			t.Fatalf("ForceClose failed: %v", err)
		}
		if closed.Stamp != nil {
			t.Errorf("discard created a stamp: %+v", closed.Stamp)
		}
		stamps, _ := env.store.ListStamps(ctx, storage.StampFilter{MemberID: env.mentor.ID})
		if len(stamps) != 0 {
			t.Errorf("expected no stamps, got %d", len(stamps))
		}
		kinds := env.events.kinds()
		if kinds[len(kinds)-1] != notify.KindDiscarded {
			t.Errorf("last published = %s, want discarded", kinds[len(kinds)-1])
		}
	})

	t.Run("missing record is NotFound", func(t *testing.T) {
		env := setup(t)
		if _, err := env.svc.ForceClose(ctx, "gone", true, nil); !errdef.IsNotFound(err) {
			t.Errorf("expected NotFound, got %v", err)
		}
	})
}

func TestDiscardExpired(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	later := &models.Event{
		Name: "Late Build", Code: "late-build",
		Start: eventStart.Add(2 * time.Hour), End: eventStart.Add(6 * time.Hour), Enabled: true,
	}
	if err := env.store.CreateEvent(ctx, later); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	if _, err := env.svc.Scan(ctx, "build-night", env.student.Code); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	env.clock.Set(later.Start)
	if _, err := env.svc.Scan(ctx, "late-build", env.mentor.Code); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	// build-night's effective end is start + 3h.
	env.clock.Set(eventStart.Add(3 * time.Hour))
	n, err := env.svc.DiscardExpired(ctx)
	if err != nil {
		t.Fatalf("DiscardExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("discarded %d, want 1", n)
	}
	actives, _ := env.store.ListActive(ctx, storage.ActiveFilter{})
	if len(actives) != 1 || actives[0].EventID != later.ID {
		t.Errorf("remaining sessions = %+v", actives)
	}
	stamps, _ := env.store.ListStamps(ctx, storage.StampFilter{})
	if len(stamps) != 0 {
		t.Errorf("discard must not credit time, got %d stamps", len(stamps))
	}
}

func TestEventStats(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	env.svc.Scan(ctx, "build-night", env.student.Code)
	env.clock.Advance(30 * time.Minute)
	env.svc.Scan(ctx, "build-night", env.student.Code)
	env.svc.Scan(ctx, "build-night", env.mentor.Code)
	env.clock.Advance(45 * time.Minute)

	stats, err := env.svc.EventStats(ctx, env.event.ID)
	if err != nil {
		t.Fatalf("EventStats failed: %v", err)
	}
	if len(stats.Members) != 2 {
		t.Fatalf("expected 2 members, got %+v", stats.Members)
	}
	if m := stats.Members[0]; m.MemberID != env.mentor.ID || m.Time != 45*time.Minute || !m.Present {
		t.Errorf("first member = %+v, want mentor with 45m open", m)
	}
	if m := stats.Members[1]; m.MemberID != env.student.ID || m.Time != 30*time.Minute || m.Present {
		t.Errorf("second member = %+v, want student with 30m", m)
	}
	if len(stats.Subteams) != 1 || stats.Subteams[0].Name != "Programming" || stats.Subteams[0].Time != 30*time.Minute {
		t.Errorf("subteams = %+v", stats.Subteams)
	}
	if stats.Total != 75*time.Minute {
		t.Errorf("total = %v, want 75m", stats.Total)
	}

	if _, err := env.svc.EventStats(ctx, "missing"); !errdef.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestAutoloadEvent(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	event, err := env.svc.AutoloadEvent(ctx)
	if err != nil {
		t.Fatalf("AutoloadEvent failed: %v", err)
	}
	if event == nil || event.Code != "build-night" {
		t.Errorf("AutoloadEvent = %+v, want build-night", event)
	}

	env.clock.Set(eventStart.Add(24 * time.Hour))
	event, err = env.svc.AutoloadEvent(ctx)
	if err != nil {
		t.Fatalf("AutoloadEvent failed: %v", err)
	}
	if event != nil {
		t.Errorf("expected no autoload event, got %s", event.Code)
	}
}

func TestTrimStamps(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	res, _ := env.svc.Scan(ctx, "build-night", env.student.Code)
	late := env.event.EffectiveEnd().Add(2 * time.Hour)
	if _, err := env.svc.ForceClose(ctx, res.Active.ID, true, &late); err != nil {
		t.Fatalf("ForceClose failed: %v", err)
	}

	n, err := env.svc.TrimStamps(ctx, env.event.ID)
	if err != nil {
		t.Fatalf("TrimStamps failed: %v", err)
	}
	if n != 1 {
		t.Errorf("trimmed %d, want 1", n)
	}
	stamps, _ := env.store.ListStamps(ctx, storage.StampFilter{EventID: env.event.ID})
	if len(stamps) != 1 || !stamps[0].End.Equal(env.event.EffectiveEnd()) {
		t.Errorf("stamp after trim = %+v", stamps)
	}
}
