package service

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/signin/internal/attendance"
	"github.com/mmynk/signin/internal/auth"
	"github.com/mmynk/signin/internal/clock"
	"github.com/mmynk/signin/internal/funds"
	"github.com/mmynk/signin/internal/middleware"
	"github.com/mmynk/signin/internal/models"
	"github.com/mmynk/signin/internal/reconcile"
	"github.com/mmynk/signin/internal/storage/sqlite"
	"github.com/mmynk/signin/pkg/api"
	"github.com/mmynk/signin/pkg/api/apiconnect"
)

// 09:00 in New York.
var eventStart = time.Date(2024, 9, 14, 13, 0, 0, 0, time.UTC)

type testServer struct {
	attendance *apiconnect.AttendanceServiceClient
	funds      *apiconnect.FundsServiceClient
	registry   *apiconnect.RegistryServiceClient
	clock      *clock.Fake
	store      *sqlite.SQLiteStore
	admin      *models.Member
}

// testAuthInterceptor returns a Connect interceptor that authenticates every
// call as the given admin.
func testAuthInterceptor(admin *models.Member) connect.UnaryInterceptorFunc {
	claims := &auth.Claims{MemberID: admin.ID, Name: admin.Name, Capabilities: admin.Role.Capabilities}
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			return next(middleware.WithClaims(ctx, claims), req)
		}
	}
}

// setupTestServer serves all three services over a temp SQLite database
// with the Credit policy and a fake clock at eventStart.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "service-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	adminRole := &models.Role{Name: "admin", Capabilities: models.Capabilities{Admin: true, Mentor: true}}
	if err := store.CreateRole(ctx, adminRole); err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}
	admin := models.NewMember("root", "Root", adminRole.ID)
	admin.Approved = true
	admin.Role = *adminRole
	if err := store.CreateMember(ctx, admin); err != nil {
		t.Fatalf("CreateMember failed: %v", err)
	}

	zone, err := clock.LoadZone("America/New_York")
	if err != nil {
		t.Fatalf("LoadZone failed: %v", err)
	}
	fake := clock.NewFake(eventStart)
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)

	svc := attendance.New(store, fake)
	scheduler := reconcile.NewScheduler(slog.Default(), store, models.PolicyCredit, fake)

	interceptors := connect.WithInterceptors(testAuthInterceptor(admin))
	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewAttendanceServiceHandler(NewAttendanceService(svc, scheduler, zone), interceptors))
	mux.Handle(apiconnect.NewFundsServiceHandler(NewFundsService(funds.NewEngine(store, zone)), interceptors))
	mux.Handle(apiconnect.NewRegistryServiceHandler(
		NewRegistryService(store, fake, zone, GraceDefaults{PreEventMinutes: 30, PostEventMinutes: 30}, jwtManager),
		interceptors,
	))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testServer{
		attendance: apiconnect.NewAttendanceServiceClient(http.DefaultClient, server.URL),
		funds:      apiconnect.NewFundsServiceClient(http.DefaultClient, server.URL),
		registry:   apiconnect.NewRegistryServiceClient(http.DefaultClient, server.URL),
		clock:      fake,
		store:      store,
		admin:      admin,
	}
}

// seed creates a funds-receiving student and a 09:00-11:00 event worth
// 15.00 with 5.00 cost and 30% overhead, through the registry RPCs.
func (ts *testServer) seed(t *testing.T, approved bool) (*api.Member, *api.Event) {
	t.Helper()
	ctx := context.Background()

	role, err := ts.registry.CreateRole(ctx, connect.NewRequest(&api.CreateRoleRequest{
		Name:         "student",
		Capabilities: api.Capabilities{ReceivesFunds: true, Visible: true},
	}))
	if err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}
	member, err := ts.registry.CreateMember(ctx, connect.NewRequest(&api.CreateMemberRequest{
		Name:        "alice",
		DisplayName: "Alice",
		RoleID:      role.Msg.Role.ID,
		Approved:    approved,
	}))
	if err != nil {
		t.Fatalf("CreateMember failed: %v", err)
	}
	event, err := ts.registry.CreateEvent(ctx, connect.NewRequest(&api.CreateEventRequest{
		EventFields: api.EventFields{
			Name:     "Build Night",
			Code:     "build",
			Start:    "2024-09-14 09:00",
			End:      "2024-09-14 11:00",
			Funds:    1500,
			Cost:     500,
			Overhead: 0.3,
		},
	}))
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	return member.Msg.Member, event.Msg.Event
}

func (ts *testServer) scan(t *testing.T, memberCode string) *api.TransitionResponse {
	t.Helper()
	resp, err := ts.attendance.Scan(context.Background(), connect.NewRequest(&api.ScanRequest{
		EventCode:  "build",
		MemberCode: memberCode,
	}))
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	return resp.Msg
}

func TestScan_Toggle(t *testing.T) {
	ts := setupTestServer(t)
	member, _ := ts.seed(t, true)
	ctx := context.Background()

	ts.clock.Set(eventStart.Add(10 * time.Minute))
	in := ts.scan(t, member.Code)
	if in.Outcome != "SignedIn" {
		t.Fatalf("expected SignedIn, got %s", in.Outcome)
	}
	if in.Active == nil || in.Active.MemberID != member.ID {
		t.Fatalf("expected active session for %s, got %+v", member.ID, in.Active)
	}
	if len(in.Present) != 1 || in.Present[0].MemberName != "Alice" {
		t.Errorf("expected Alice present, got %+v", in.Present)
	}

	present, err := ts.attendance.CurrentlyPresent(ctx, connect.NewRequest(&api.CurrentlyPresentRequest{EventCode: "build"}))
	if err != nil {
		t.Fatalf("CurrentlyPresent failed: %v", err)
	}
	if len(present.Msg.Sessions) != 1 {
		t.Errorf("expected 1 session, got %d", len(present.Msg.Sessions))
	}
	all, err := ts.attendance.CurrentlyPresent(ctx, connect.NewRequest(&api.CurrentlyPresentRequest{}))
	if err != nil {
		t.Fatalf("CurrentlyPresent without event failed: %v", err)
	}
	if len(all.Msg.Sessions) != 1 {
		t.Errorf("expected 1 session across events, got %d", len(all.Msg.Sessions))
	}

	ts.clock.Advance(time.Hour)
	out := ts.scan(t, member.Code)
	if out.Outcome != "SignedOut" {
		t.Fatalf("expected SignedOut, got %s", out.Outcome)
	}
	if out.Stamp == nil || out.Stamp.ElapsedSeconds != 3600 {
		t.Errorf("expected a 3600s stamp, got %+v", out.Stamp)
	}
	if len(out.Present) != 0 {
		t.Errorf("expected nobody present, got %d", len(out.Present))
	}
}

func TestScan_Rejections(t *testing.T) {
	ts := setupTestServer(t)
	member, _ := ts.seed(t, true)
	pending, err := ts.registry.CreateMember(context.Background(), connect.NewRequest(&api.CreateMemberRequest{
		Name:   "carol",
		RoleID: member.RoleID,
	}))
	if err != nil {
		t.Fatalf("CreateMember failed: %v", err)
	}

	tests := []struct {
		name  string
		at    time.Time
		event string
		code  string
		want  connect.Code
	}{
		{"unknown event", eventStart, "nope", member.Code, connect.CodeNotFound},
		{"unknown member", eventStart, "build", "nobody", connect.CodeNotFound},
		{"unapproved member", eventStart, "build", pending.Msg.Member.Code, connect.CodeNotFound},
		{"before grace", eventStart.Add(-31 * time.Minute), "build", member.Code, connect.CodeFailedPrecondition},
		{"after grace", eventStart.Add(2*time.Hour + 30*time.Minute), "build", member.Code, connect.CodeFailedPrecondition},
		{"missing code", eventStart, "build", "", connect.CodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts.clock.Set(tt.at)
			_, err := ts.attendance.Scan(context.Background(), connect.NewRequest(&api.ScanRequest{
				EventCode:  tt.event,
				MemberCode: tt.code,
			}))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if got := connect.CodeOf(err); got != tt.want {
				t.Errorf("expected %v, got %v (%v)", tt.want, got, err)
			}
		})
	}
}

func TestSignInSignOut(t *testing.T) {
	ts := setupTestServer(t)
	member, _ := ts.seed(t, true)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		resp, err := ts.attendance.SignIn(ctx, connect.NewRequest(&api.SignInRequest{EventCode: "build", MemberID: member.ID}))
		if err != nil {
			t.Fatalf("SignIn failed: %v", err)
		}
		want := "SignedIn"
		if i == 1 {
			want = "Unchanged"
		}
		if resp.Msg.Outcome != want {
			t.Errorf("SignIn #%d: expected %s, got %s", i+1, want, resp.Msg.Outcome)
		}
	}

	ts.clock.Advance(45 * time.Minute)
	resp, err := ts.attendance.SignOut(ctx, connect.NewRequest(&api.SignOutRequest{EventCode: "build", MemberID: member.ID}))
	if err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	if resp.Msg.Stamp == nil || resp.Msg.Stamp.ElapsedSeconds != 45*60 {
		t.Errorf("expected a 45m stamp, got %+v", resp.Msg.Stamp)
	}

	// Without member_id the caller signs itself in.
	self, err := ts.attendance.SignIn(ctx, connect.NewRequest(&api.SignInRequest{EventCode: "build"}))
	if err != nil {
		t.Fatalf("SignIn (self) failed: %v", err)
	}
	if self.Msg.Active == nil || self.Msg.Active.MemberID != ts.admin.ID {
		t.Errorf("expected admin to be signed in, got %+v", self.Msg.Active)
	}
}

func TestForceCloseAndStats(t *testing.T) {
	ts := setupTestServer(t)
	member, event := ts.seed(t, true)
	ctx := context.Background()

	in := ts.scan(t, member.Code)
	ts.clock.Advance(3 * time.Hour)

	_, err := ts.attendance.ForceClose(ctx, connect.NewRequest(&api.ForceCloseRequest{
		ActiveID: in.Active.ID, Credit: true, End: "2024-09-14 08:00",
	}))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Fatalf("expected InvalidArgument for end before start, got %v", err)
	}

	closed, err := ts.attendance.ForceClose(ctx, connect.NewRequest(&api.ForceCloseRequest{
		ActiveID: in.Active.ID, Credit: true, End: "2024-09-14 10:30",
	}))
	if err != nil {
		t.Fatalf("ForceClose failed: %v", err)
	}
	if closed.Msg.Stamp == nil || closed.Msg.Stamp.ElapsedSeconds != 90*60 {
		t.Errorf("expected a 90m stamp, got %+v", closed.Msg.Stamp)
	}

	_, err = ts.attendance.ForceClose(ctx, connect.NewRequest(&api.ForceCloseRequest{ActiveID: in.Active.ID}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("expected NotFound for closed session, got %v", err)
	}

	stats, err := ts.attendance.EventStats(ctx, connect.NewRequest(&api.EventStatsRequest{EventID: event.ID}))
	if err != nil {
		t.Fatalf("EventStats failed: %v", err)
	}
	if stats.Msg.TotalSeconds != 90*60 {
		t.Errorf("expected 5400s total, got %f", stats.Msg.TotalSeconds)
	}
	if len(stats.Msg.Members) != 1 || stats.Msg.Members[0].Name != "Alice" {
		t.Errorf("unexpected members: %+v", stats.Msg.Members)
	}
}

func TestReconcileNow_Credit(t *testing.T) {
	ts := setupTestServer(t)
	member, _ := ts.seed(t, true)
	ctx := context.Background()

	ts.scan(t, member.Code)

	// Still inside the post-event grace period.
	ts.clock.Set(eventStart.Add(2*time.Hour + 20*time.Minute))
	report, err := ts.attendance.ReconcileNow(ctx, connect.NewRequest(&api.ReconcileNowRequest{}))
	if err != nil {
		t.Fatalf("ReconcileNow failed: %v", err)
	}
	if report.Msg.Closed != 0 {
		t.Errorf("expected nothing closed inside grace, got %d", report.Msg.Closed)
	}

	ts.clock.Set(eventStart.Add(3 * time.Hour))
	report, err = ts.attendance.ReconcileNow(ctx, connect.NewRequest(&api.ReconcileNowRequest{}))
	if err != nil {
		t.Fatalf("ReconcileNow failed: %v", err)
	}
	if report.Msg.Policy != "Credit" || report.Msg.Closed != 1 {
		t.Errorf("expected one credited session, got %+v", report.Msg)
	}

	// The credited stamp ends at the nominal end: two hours.
	yearly, err := ts.funds.YearlyFunds(ctx, connect.NewRequest(&api.YearlyFundsRequest{MemberID: member.ID}))
	if err != nil {
		t.Fatalf("YearlyFunds failed: %v", err)
	}
	if math.Abs(yearly.Msg.Amount-7.0) > 1e-9 {
		t.Errorf("expected 7.00, got %f", yearly.Msg.Amount)
	}
}

func TestFinanceOverview(t *testing.T) {
	ts := setupTestServer(t)
	member, event := ts.seed(t, true)
	ctx := context.Background()

	ts.scan(t, member.Code)
	ts.clock.Advance(time.Hour)
	ts.scan(t, member.Code)

	share, err := ts.funds.FundsFor(ctx, connect.NewRequest(&api.FundsForRequest{EventID: event.ID, MemberID: member.ID}))
	if err != nil {
		t.Fatalf("FundsFor failed: %v", err)
	}
	if math.Abs(share.Msg.Amount-7.0) > 1e-9 {
		t.Errorf("expected sole attendee to receive 7.00, got %f", share.Msg.Amount)
	}

	year := 2025
	overview, err := ts.funds.FinanceOverview(ctx, connect.NewRequest(&api.FinanceOverviewRequest{Year: &year}))
	if err != nil {
		t.Fatalf("FinanceOverview failed: %v", err)
	}
	if math.Abs(overview.Msg.Overhead-3.0) > 1e-9 {
		t.Errorf("expected 3.00 overhead, got %f", overview.Msg.Overhead)
	}
	if len(overview.Msg.Members) != 1 || overview.Msg.Members[0].Name != "Alice" {
		t.Fatalf("expected only Alice in overview, got %+v", overview.Msg.Members)
	}

	other := 2024
	empty, err := ts.funds.OverheadTotal(ctx, connect.NewRequest(&api.OverheadTotalRequest{Year: &other}))
	if err != nil {
		t.Fatalf("OverheadTotal failed: %v", err)
	}
	if empty.Msg.Amount != 0 {
		t.Errorf("expected no overhead in 2024, got %f", empty.Msg.Amount)
	}
}

func TestCreateEvent(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	resp, err := ts.registry.CreateEvent(ctx, connect.NewRequest(&api.CreateEventRequest{
		EventFields: api.EventFields{Name: "Build Season Kickoff", Start: "2025-01-04 10:00", End: "2025-01-04 16:00"},
	}))
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	event := resp.Msg.Event
	if !strings.HasPrefix(event.Code, "build-season-kickoff-") {
		t.Errorf("expected slug code, got %q", event.Code)
	}
	if event.PreEventMinutes != 30 || event.PostEventMinutes != 30 || !event.Enabled {
		t.Errorf("expected enabled event with default grace, got %+v", event)
	}
	if !event.Start.Equal(time.Date(2025, 1, 4, 15, 0, 0, 0, time.UTC)) {
		t.Errorf("expected 15:00Z start, got %v", event.Start)
	}

	disabled := false
	grace := 0
	updated, err := ts.registry.UpdateEvent(ctx, connect.NewRequest(&api.UpdateEventRequest{
		ID: event.ID,
		EventFields: api.EventFields{
			Name: "Kickoff", Start: "2025-01-04 10:00", End: "2025-01-04 17:00",
			Enabled: &disabled, PostEventMinutes: &grace,
		},
	}))
	if err != nil {
		t.Fatalf("UpdateEvent failed: %v", err)
	}
	if updated.Msg.Event.Code != event.Code || updated.Msg.Event.Enabled || updated.Msg.Event.PostEventMinutes != 0 {
		t.Errorf("unexpected update result: %+v", updated.Msg.Event)
	}

	got, err := ts.registry.GetEvent(ctx, connect.NewRequest(&api.GetEventRequest{Code: event.Code}))
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if got.Msg.Event.Name != "Kickoff" || got.Msg.Event.PreEventMinutes != 30 {
		t.Errorf("unexpected stored event: %+v", got.Msg.Event)
	}

	invalid := []api.EventFields{
		{Name: "Backwards", Start: "2025-01-04 16:00", End: "2025-01-04 10:00"},
		{Name: "Empty", Start: "2025-01-04 10:00", End: "2025-01-04 10:00"},
		{Name: "Garbled", Start: "tomorrow", End: "2025-01-04 10:00"},
		{Start: "2025-01-04 10:00", End: "2025-01-04 11:00"},
		{Name: "Greedy", Start: "2025-01-04 10:00", End: "2025-01-04 11:00", Overhead: 1.5},
	}
	for _, f := range invalid {
		_, err := ts.registry.CreateEvent(ctx, connect.NewRequest(&api.CreateEventRequest{EventFields: f}))
		if connect.CodeOf(err) != connect.CodeInvalidArgument {
			t.Errorf("CreateEvent(%q): expected InvalidArgument, got %v", f.Name, err)
		}
	}
}

func TestCreateMember_UnknownReferences(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *api.CreateMemberRequest
	}{
		{"unknown role", &api.CreateMemberRequest{Name: "dave", RoleID: "no-such-role"}},
		{"unknown subteam", &api.CreateMemberRequest{Name: "erin", RoleID: ts.admin.RoleID, SubteamID: "no-such-subteam"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.registry.CreateMember(ctx, connect.NewRequest(tt.req))
			if connect.CodeOf(err) != connect.CodeNotFound {
				t.Errorf("expected NotFound, got %v", err)
			}
		})
	}
}

func TestCreateWeeklyEvents(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	resp, err := ts.registry.CreateWeeklyEvents(ctx, connect.NewRequest(&api.CreateWeeklyEventsRequest{
		Name:      "Weeknight Build",
		From:      "2024-09-02",
		To:        "2024-09-15",
		Weekdays:  []int{1, 3},
		StartTime: "18:00",
		EndTime:   "21:00",
	}))
	if err != nil {
		t.Fatalf("CreateWeeklyEvents failed: %v", err)
	}
	events := resp.Msg.Events
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if !events[0].Start.Equal(time.Date(2024, 9, 2, 22, 0, 0, 0, time.UTC)) {
		t.Errorf("expected first event at 22:00Z, got %v", events[0].Start)
	}
	if events[0].Code == events[1].Code {
		t.Errorf("expected unique codes, got %q twice", events[0].Code)
	}

	_, err = ts.registry.CreateWeeklyEvents(ctx, connect.NewRequest(&api.CreateWeeklyEventsRequest{
		Name: "Backwards", From: "2024-09-02", To: "2024-09-15",
		Weekdays: []int{1}, StartTime: "21:00", EndTime: "18:00",
	}))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestEventBlocks(t *testing.T) {
	ts := setupTestServer(t)
	member, event := ts.seed(t, true)
	ctx := context.Background()

	block, err := ts.registry.CreateEventBlock(ctx, connect.NewRequest(&api.CreateEventBlockRequest{
		EventID: event.ID, Start: "2024-09-14 09:00", End: "2024-09-14 10:00",
	}))
	if err != nil {
		t.Fatalf("CreateEventBlock failed: %v", err)
	}
	for _, id := range []string{member.ID, member.ID, ""} {
		if _, err := ts.registry.RegisterForBlock(ctx, connect.NewRequest(&api.RegisterForBlockRequest{
			BlockID: block.Msg.Block.ID, MemberID: id,
		})); err != nil {
			t.Fatalf("RegisterForBlock failed: %v", err)
		}
	}

	blocks, err := ts.registry.ListEventBlocks(ctx, connect.NewRequest(&api.ListEventBlocksRequest{EventID: event.ID}))
	if err != nil {
		t.Fatalf("ListEventBlocks failed: %v", err)
	}
	if len(blocks.Msg.Blocks) != 1 || blocks.Msg.Blocks[0].Registrations != 2 {
		t.Errorf("expected one block with 2 registrations, got %+v", blocks.Msg.Blocks)
	}

	tests := []struct {
		name       string
		eventID    string
		start, end string
		want       connect.Code
	}{
		{"starts early", event.ID, "2024-09-14 08:30", "2024-09-14 09:30", connect.CodeInvalidArgument},
		{"ends late", event.ID, "2024-09-14 10:30", "2024-09-14 11:30", connect.CodeInvalidArgument},
		{"other day", event.ID, "2024-09-15 09:00", "2024-09-15 10:00", connect.CodeInvalidArgument},
		{"unknown event", "missing", "2024-09-14 09:00", "2024-09-14 10:00", connect.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.registry.CreateEventBlock(ctx, connect.NewRequest(&api.CreateEventBlockRequest{
				EventID: tt.eventID, Start: tt.start, End: tt.end,
			}))
			if connect.CodeOf(err) != tt.want {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestListEvents(t *testing.T) {
	ts := setupTestServer(t)
	ts.seed(t, true)
	ctx := context.Background()

	disabled := false
	for _, f := range []api.EventFields{
		{Name: "Last Week", Code: "past", Start: "2024-09-10 09:00", End: "2024-09-10 11:00"},
		{Name: "Next Week", Code: "next", Start: "2024-09-20 09:00", End: "2024-09-20 11:00"},
		{Name: "Hidden", Code: "hidden", Start: "2024-09-14 14:00", End: "2024-09-14 15:00", Enabled: &disabled},
	} {
		if _, err := ts.registry.CreateEvent(ctx, connect.NewRequest(&api.CreateEventRequest{EventFields: f})); err != nil {
			t.Fatalf("CreateEvent(%s) failed: %v", f.Code, err)
		}
	}
	ts.clock.Set(eventStart.Add(10 * time.Minute))

	tests := []struct {
		period          string
		includeDisabled bool
		want            []string
	}{
		{"", false, []string{"past", "build", "next"}},
		{"all", true, []string{"past", "build", "hidden", "next"}},
		{"previous", false, []string{"past"}},
		{"active", false, []string{"build"}},
		{"today", false, []string{"build"}},
		{"today", true, []string{"build", "hidden"}},
		{"upcoming", false, []string{"next"}},
		{"upcoming", true, []string{"hidden", "next"}},
	}
	for _, tt := range tests {
		resp, err := ts.registry.ListEvents(ctx, connect.NewRequest(&api.ListEventsRequest{
			Period: tt.period, IncludeDisabled: tt.includeDisabled,
		}))
		if err != nil {
			t.Fatalf("ListEvents(%q) failed: %v", tt.period, err)
		}
		var codes []string
		for _, e := range resp.Msg.Events {
			codes = append(codes, e.Code)
		}
		if strings.Join(codes, ",") != strings.Join(tt.want, ",") {
			t.Errorf("ListEvents(%q, disabled=%v) = %v, want %v", tt.period, tt.includeDisabled, codes, tt.want)
		}
	}

	_, err := ts.registry.ListEvents(ctx, connect.NewRequest(&api.ListEventsRequest{Period: "someday"}))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("expected InvalidArgument for unknown period, got %v", err)
	}
}

func TestDeleteEvent(t *testing.T) {
	ts := setupTestServer(t)
	member, event := ts.seed(t, true)
	ctx := context.Background()

	ts.clock.Set(eventStart.Add(10 * time.Minute))
	ts.scan(t, member.Code)

	if _, err := ts.registry.DeleteEvent(ctx, connect.NewRequest(&api.DeleteEventRequest{ID: event.ID})); err != nil {
		t.Fatalf("DeleteEvent failed: %v", err)
	}
	_, err := ts.registry.GetEvent(ctx, connect.NewRequest(&api.GetEventRequest{ID: event.ID}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("expected NotFound after delete, got %v", err)
	}
	present, err := ts.attendance.CurrentlyPresent(ctx, connect.NewRequest(&api.CurrentlyPresentRequest{}))
	if err != nil {
		t.Fatalf("CurrentlyPresent failed: %v", err)
	}
	if len(present.Msg.Sessions) != 0 {
		t.Errorf("expected open session to be removed with its event, got %d", len(present.Msg.Sessions))
	}

	_, err = ts.registry.DeleteEvent(ctx, connect.NewRequest(&api.DeleteEventRequest{ID: event.ID}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("expected NotFound on second delete, got %v", err)
	}
}

func TestIssueToken(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	resp, err := ts.registry.IssueToken(ctx, connect.NewRequest(&api.IssueTokenRequest{MemberID: ts.admin.ID}))
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	claims, err := auth.NewJWTManager("test-secret", time.Hour).Validate(resp.Msg.Token)
	if err != nil {
		t.Fatalf("token did not validate: %v", err)
	}
	if claims.MemberID != ts.admin.ID || !claims.Capabilities.Admin {
		t.Errorf("unexpected claims: %+v", claims)
	}

	_, err = ts.registry.IssueToken(ctx, connect.NewRequest(&api.IssueTokenRequest{MemberID: "missing"}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestAutoloadEvent(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	eventType, err := ts.registry.CreateEventType(ctx, connect.NewRequest(&api.CreateEventTypeRequest{Name: "Meeting", Autoload: true}))
	if err != nil {
		t.Fatalf("CreateEventType failed: %v", err)
	}

	resp, err := ts.attendance.AutoloadEvent(ctx, connect.NewRequest(&api.AutoloadEventRequest{}))
	if err != nil {
		t.Fatalf("AutoloadEvent failed: %v", err)
	}
	if resp.Msg.EventCode != "" {
		t.Errorf("expected no autoload event, got %q", resp.Msg.EventCode)
	}

	_, err = ts.registry.CreateEvent(ctx, connect.NewRequest(&api.CreateEventRequest{
		EventFields: api.EventFields{
			Name: "Meeting", Code: "meeting", TypeID: eventType.Msg.EventType.ID,
			Start: "2024-09-14 09:00", End: "2024-09-14 10:00",
		},
	}))
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	resp, err = ts.attendance.AutoloadEvent(ctx, connect.NewRequest(&api.AutoloadEventRequest{}))
	if err != nil {
		t.Fatalf("AutoloadEvent failed: %v", err)
	}
	if resp.Msg.EventCode != "meeting" {
		t.Errorf("expected meeting, got %q", resp.Msg.EventCode)
	}
}
