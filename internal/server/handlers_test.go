package server

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tkanok/slidewall/internal/config"
	"github.com/tkanok/slidewall/internal/domain"
	apperrors "github.com/tkanok/slidewall/internal/errors"
	"github.com/tkanok/slidewall/internal/hub"
)

const testPassword = "correct horse battery staple"

// --- In-memory fakes ---

type fakeEvents struct {
	mu     sync.Mutex
	events map[uuid.UUID]*domain.Event
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{events: make(map[uuid.UUID]*domain.Event)}
}

func (f *fakeEvents) Create(_ context.Context, name, slug string) (*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.Slug == slug {
			return nil, apperrors.ConflictError("event slug already exists")
		}
	}
	e := &domain.Event{ID: uuid.New(), Name: name, Slug: slug, IsActive: true}
	f.events[e.ID] = e
	return e, nil
}

func (f *fakeEvents) GetBySlug(_ context.Context, slug string) (*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.Slug == slug {
			return e, nil
		}
	}
	return nil, apperrors.NotFoundError("event not found")
}

func (f *fakeEvents) List(_ context.Context) ([]domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Event, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeEvents) Rename(_ context.Context, id uuid.UUID, name string) (*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, apperrors.NotFoundError("event not found")
	}
	e.Name = name
	return e, nil
}

func (f *fakeEvents) Deactivate(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return apperrors.NotFoundError("event not found")
	}
	e.IsActive = false
	return nil
}

type fakeGroups struct {
	mu     sync.Mutex
	groups map[uuid.UUID]*domain.Group
}

func newFakeGroups() *fakeGroups {
	return &fakeGroups{groups: make(map[uuid.UUID]*domain.Group)}
}

func (f *fakeGroups) Create(_ context.Context, eventID uuid.UUID, name, slug string) (*domain.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := &domain.Group{ID: uuid.New(), EventID: eventID, Name: name, Slug: slug, IsActive: true}
	f.groups[g.ID] = g
	return g, nil
}

func (f *fakeGroups) Get(_ context.Context, id uuid.UUID) (*domain.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[id]
	if !ok {
		return nil, apperrors.NotFoundError("group not found")
	}
	return g, nil
}

func (f *fakeGroups) GetBySlug(_ context.Context, slug string) (*domain.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.groups {
		if g.Slug == slug {
			return g, nil
		}
	}
	return nil, apperrors.NotFoundError("group not found")
}

func (f *fakeGroups) ListByEvent(_ context.Context, eventID uuid.UUID) ([]domain.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Group
	for _, g := range f.groups {
		if g.EventID == eventID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (f *fakeGroups) Update(_ context.Context, id uuid.UUID, name *string, isLive *bool) (*domain.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[id]
	if !ok {
		return nil, apperrors.NotFoundError("group not found")
	}
	if name != nil {
		g.Name = *name
	}
	if isLive != nil {
		g.IsLive = *isLive
	}
	return g, nil
}

func (f *fakeGroups) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.groups[id]; !ok {
		return apperrors.NotFoundError("group not found")
	}
	delete(f.groups, id)
	return nil
}

type fakeMedia struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.MediaItem
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{items: make(map[uuid.UUID]*domain.MediaItem)}
}

func (f *fakeMedia) ListActive(_ context.Context, groupID uuid.UUID) ([]domain.MediaItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.MediaItem
	for _, m := range f.items {
		if m.GroupID == groupID && m.IsActive {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMedia) Get(_ context.Context, id uuid.UUID) (*domain.MediaItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.items[id]
	if !ok {
		return nil, apperrors.NotFoundError("media item not found")
	}
	copied := *m
	return &copied, nil
}

func (f *fakeMedia) Create(_ context.Context, item *domain.MediaItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item.ID = uuid.New()
	item.Position = len(f.items)
	item.IsActive = true
	stored := *item
	f.items[item.ID] = &stored
	return nil
}

func (f *fakeMedia) Update(_ context.Context, item *domain.MediaItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[item.ID]; !ok {
		return apperrors.NotFoundError("media item not found")
	}
	item.Version++
	stored := *item
	f.items[item.ID] = &stored
	return nil
}

func (f *fakeMedia) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return apperrors.NotFoundError("media item not found")
	}
	delete(f.items, id)
	return nil
}

func (f *fakeMedia) ApplyDuration(_ context.Context, groupID uuid.UUID, seconds int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.items {
		if m.GroupID == groupID && m.IsActive {
			m.DurationSeconds = seconds
			n++
		}
	}
	return n, nil
}

type fakeStore struct {
	mu        sync.Mutex
	uploads   []string
	destroyed []string
	failFor   map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{failFor: make(map[string]bool)}
}

func (f *fakeStore) Upload(_ context.Context, filename, contentType string, r io.Reader) (*domain.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[filename] {
		return nil, apperrors.ExternalError("cdn upload failed", nil)
	}
	_, _ = io.Copy(io.Discard, r)
	f.uploads = append(f.uploads, filename)
	kind := domain.MediaKindImage
	if strings.HasPrefix(contentType, "video/") {
		kind = domain.MediaKindVideo
	}
	return &domain.UploadResult{
		PublicID: "asset-" + filename,
		URL:      "https://cdn.example/" + filename,
		Kind:     kind,
	}, nil
}

func (f *fakeStore) Destroy(_ context.Context, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = append(f.destroyed, publicID)
	return nil
}

type recordingPublisher struct {
	mu            sync.Mutex
	notifications []domain.Notification
}

func (p *recordingPublisher) Publish(_ context.Context, n domain.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, n)
}

func (p *recordingPublisher) all() []domain.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Notification, len(p.notifications))
	copy(out, p.notifications)
	return out
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

// --- Test harness ---

type testEnv struct {
	server    *Server
	events    *fakeEvents
	groups    *fakeGroups
	media     *fakeMedia
	store     *fakeStore
	publisher *recordingPublisher
	cookie    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{
		AppEnv:              "test",
		Port:                "0",
		SessionSecret:       "unit-test-session-secret",
		AdminPasswordHash:   string(hash),
		CDNBaseURL:          "http://cdn.invalid",
		DefaultSlideSeconds: 5,
		MaxDisplaysPerGroup: 50,
	}

	env := &testEnv{
		events:    newFakeEvents(),
		groups:    newFakeGroups(),
		media:     newFakeMedia(),
		store:     newFakeStore(),
		publisher: &recordingPublisher{},
	}

	h := hub.New(clockwork.NewRealClock(), cfg.MaxDisplaysPerGroup)
	t.Cleanup(h.Stop)

	env.server, err = NewServer(cfg, Dependencies{
		Events:       env.events,
		Groups:       env.groups,
		Media:        env.media,
		Store:        env.store,
		Publisher:    env.publisher,
		Hub:          h,
		PostgresPing: okPinger{},
	})
	require.NoError(t, err)

	env.login(t)
	return env
}

func (env *testEnv) login(t *testing.T) {
	t.Helper()
	rec := env.do(http.MethodPost, "/auth/login", `{"password":"`+testPassword+`"}`, "application/json", false)
	require.Equal(t, 200, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	env.cookie = cookies[0].Name + "=" + cookies[0].Value
}

func (env *testEnv) do(method, path, body, contentType string, authed bool) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authed {
		req.Header.Set("Cookie", env.cookie)
	}
	rec := httptest.NewRecorder()
	env.server.echo.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) seedGroup(t *testing.T, slug string) *domain.Group {
	t.Helper()
	event, err := env.events.Create(context.Background(), "Event", slug+"-event")
	require.NoError(t, err)
	group, err := env.groups.Create(context.Background(), event.ID, "Group", slug)
	require.NoError(t, err)
	return group
}

func (env *testEnv) seedItem(t *testing.T, group *domain.Group, seconds int) *domain.MediaItem {
	t.Helper()
	item := &domain.MediaItem{
		GroupID:         group.ID,
		PublicID:        "asset-" + uuid.NewString(),
		URL:             "https://cdn.example/seed.jpg",
		Kind:            domain.MediaKindImage,
		DurationSeconds: seconds,
	}
	require.NoError(t, env.media.Create(context.Background(), item))
	return item
}

func multipartBody(t *testing.T, files map[string]string, fields map[string]string) (string, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for key, value := range fields {
		require.NoError(t, w.WriteField(key, value))
	}
	require.NoError(t, w.Close())
	return buf.String(), w.FormDataContentType()
}

// --- Auth ---

func TestLogin_WrongPasswordRejected(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/auth/login", `{"password":"wrong"}`, "application/json", false)
	assert.Equal(t, 401, rec.Code)
}

func TestAdminAPI_RequiresSession(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/admin/events", "", "", false)
	assert.Equal(t, 401, rec.Code)
}

func TestLogout_InvalidatesSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/auth/logout", "", "", true)
	require.Equal(t, 200, rec.Code)

	// The recorder's Set-Cookie carries MaxAge -1; the original cookie value
	// still decodes, so simulate the browser dropping it.
	env.cookie = ""
	rec = env.do(http.MethodGet, "/api/admin/events", "", "", true)
	assert.Equal(t, 401, rec.Code)
}

// --- Events ---

func TestCreateEvent(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/admin/events", `{"name":"Summer Party","slug":"summer-party"}`, "application/json", true)
	require.Equal(t, 201, rec.Code)
	assert.Contains(t, rec.Body.String(), `"slug":"summer-party"`)
}

func TestCreateEvent_RejectsBadSlug(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/admin/events", `{"name":"x","slug":"Not A Slug!"}`, "application/json", true)
	assert.Equal(t, 400, rec.Code)
}

func TestCreateEvent_DuplicateSlugConflicts(t *testing.T) {
	env := newTestEnv(t)

	body := `{"name":"Summer Party","slug":"summer-party"}`
	rec := env.do(http.MethodPost, "/api/admin/events", body, "application/json", true)
	require.Equal(t, 201, rec.Code)

	rec = env.do(http.MethodPost, "/api/admin/events", body, "application/json", true)
	assert.Equal(t, 409, rec.Code)
}

// --- Media upload ---

func TestUploadMedia_PublishesSingleMediaAdded(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "summer-party")

	body, contentType := multipartBody(t,
		map[string]string{"a.jpg": "aaa", "b.jpg": "bbb"},
		map[string]string{"duration": "7"},
	)
	rec := env.do(http.MethodPost, "/api/admin/groups/"+group.ID.String()+"/media", body, contentType, true)
	require.Equal(t, 201, rec.Code)

	notifications := env.publisher.all()
	require.Len(t, notifications, 1)
	assert.Equal(t, domain.NotificationMediaAdded, notifications[0].Type)
	assert.Equal(t, "summer-party", notifications[0].GroupID)
	require.Len(t, notifications[0].Items, 2)
	assert.Equal(t, 7, notifications[0].Items[0].DurationSeconds)
}

func TestUploadMedia_PartialFailureSkipsFile(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "summer-party")
	env.store.failFor["bad.jpg"] = true

	body, contentType := multipartBody(t, map[string]string{"good.jpg": "g", "bad.jpg": "b"}, nil)
	rec := env.do(http.MethodPost, "/api/admin/groups/"+group.ID.String()+"/media", body, contentType, true)
	require.Equal(t, 201, rec.Code)

	notifications := env.publisher.all()
	require.Len(t, notifications, 1)
	require.Len(t, notifications[0].Items, 1)
	assert.Contains(t, notifications[0].Items[0].URL, "good.jpg")
}

func TestUploadMedia_AllFailedIsError(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "summer-party")
	env.store.failFor["bad.jpg"] = true

	body, contentType := multipartBody(t, map[string]string{"bad.jpg": "b"}, nil)
	rec := env.do(http.MethodPost, "/api/admin/groups/"+group.ID.String()+"/media", body, contentType, true)
	assert.Equal(t, 502, rec.Code)
	assert.Empty(t, env.publisher.all())
}

func TestUploadMedia_UnknownGroupIs404(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartBody(t, map[string]string{"a.jpg": "a"}, nil)
	rec := env.do(http.MethodPost, "/api/admin/groups/"+uuid.NewString()+"/media", body, contentType, true)
	assert.Equal(t, 404, rec.Code)
}

// --- Media update / delete ---

func TestUpdateMedia_DurationPublishesUpdatedItem(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "summer-party")
	item := env.seedItem(t, group, 5)

	body, contentType := multipartBody(t, nil, map[string]string{"duration": "9"})
	rec := env.do(http.MethodPatch, "/api/admin/media/"+item.ID.String(), body, contentType, true)
	require.Equal(t, 200, rec.Code)

	notifications := env.publisher.all()
	require.Len(t, notifications, 1)
	require.Equal(t, domain.NotificationMediaUpdated, notifications[0].Type)
	assert.Equal(t, 9, notifications[0].Item.DurationSeconds)
	assert.Equal(t, item.ID, notifications[0].Item.ID)
}

func TestUpdateMedia_NothingToUpdateIs400(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "summer-party")
	item := env.seedItem(t, group, 5)

	body, contentType := multipartBody(t, nil, map[string]string{})
	rec := env.do(http.MethodPatch, "/api/admin/media/"+item.ID.String(), body, contentType, true)
	assert.Equal(t, 400, rec.Code)
}

func TestDeleteMedia_PublishesAfterCommitAndDestroysAsset(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "summer-party")
	item := env.seedItem(t, group, 5)

	rec := env.do(http.MethodDelete, "/api/admin/media/"+item.ID.String(), "", "", true)
	require.Equal(t, 204, rec.Code)

	notifications := env.publisher.all()
	require.Len(t, notifications, 1)
	assert.Equal(t, domain.NotificationMediaDeleted, notifications[0].Type)
	assert.Equal(t, item.ID, notifications[0].MediaID)
	assert.Contains(t, env.store.destroyed, item.PublicID)
}

// --- Bulk duration ---

func TestApplyDuration_OverwritesAllAndPublishes(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "summer-party")
	env.seedItem(t, group, 3)
	env.seedItem(t, group, 8)

	rec := env.do(http.MethodPatch, "/api/admin/groups/"+group.ID.String()+"/duration", `{"durationSeconds":2}`, "application/json", true)
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"updated":2`)

	notifications := env.publisher.all()
	require.Len(t, notifications, 1)
	assert.Equal(t, domain.NotificationDurationApplied, notifications[0].Type)
	assert.Equal(t, 2, notifications[0].Duration)
}

func TestApplyDuration_RejectsNonPositive(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "summer-party")

	rec := env.do(http.MethodPatch, "/api/admin/groups/"+group.ID.String()+"/duration", `{"durationSeconds":0}`, "application/json", true)
	assert.Equal(t, 400, rec.Code)
	assert.Empty(t, env.publisher.all())
}

// --- Public bootstrap ---

func TestBootstrap_IsPublicAndReturnsItems(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "summer-party")
	env.seedItem(t, group, 3)

	rec := env.do(http.MethodGet, "/api/groups/summer-party/media", "", "", false)
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"durationSeconds":3`)
}

func TestBootstrap_EmptyGroupReturnsEmptyArray(t *testing.T) {
	env := newTestEnv(t)
	env.seedGroup(t, "summer-party")

	rec := env.do(http.MethodGet, "/api/groups/summer-party/media", "", "", false)
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestBootstrap_UnknownGroupIs404(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/groups/nope/media", "", "", false)
	assert.Equal(t, 404, rec.Code)
}

// --- Health ---

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health/live", "", "", false)
	assert.Equal(t, 200, rec.Code)

	rec = env.do(http.MethodGet, "/health/ready", "", "", false)
	assert.Equal(t, 200, rec.Code)
}
