package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/diewo77/go-tutoring/auth"
	"github.com/diewo77/go-tutoring/internal/events"
	"github.com/diewo77/go-tutoring/internal/handlers"
	"github.com/diewo77/go-tutoring/internal/models"
	"github.com/diewo77/go-tutoring/internal/services"
	"github.com/diewo77/go-tutoring/internal/store/gormstore"
	"github.com/diewo77/go-tutoring/internal/store/storetest"
	"github.com/diewo77/go-tutoring/view"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testApp struct {
	handler  http.Handler
	store    *gormstore.Store
	accounts *services.Accounts
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	s := storetest.NewGormStore(t)
	accounts, err := services.NewAccounts(s, bcrypt.MinCost)
	require.NoError(t, err)

	sessions := auth.NewManager(auth.Options{Secret: "test-secret"})
	cfg := handlers.NewRouterConfig(handlers.Deps{
		Store:    s,
		Accounts: accounts,
		Catalog:  services.NewCatalog(s),
		Bookings: services.NewBookings(s, events.NewLogPublisher(zerolog.Nop()), zerolog.Nop()),
		Sessions: sessions,
		View:     view.New(sessions, false),
		Log:      zerolog.Nop(),
	})
	mux := http.NewServeMux()
	cfg.Register(mux)
	return &testApp{handler: sessions.Middleware(mux), store: s, accounts: accounts}
}

func (a *testApp) register(t *testing.T, name, email, role string) *models.User {
	t.Helper()
	u, err := a.accounts.Register(context.Background(), services.Registration{
		Name: name, Email: email, Password: "secret", Role: role,
	})
	require.NoError(t, err)
	return u
}

func (a *testApp) subject(t *testing.T, name string) *models.Subject {
	t.Helper()
	subj := &models.Subject{Name: name}
	require.NoError(t, a.store.CreateSubject(context.Background(), subj))
	return subj
}

// browser carries cookies between requests like a user agent would.
type browser struct {
	app     *testApp
	cookies map[string]*http.Cookie
}

func (a *testApp) browser() *browser {
	return &browser{app: a, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(t *testing.T, method, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	b.app.handler.ServeHTTP(rr, req)
	for _, c := range rr.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return rr
}

func (b *browser) get(t *testing.T, path string) *httptest.ResponseRecorder {
	return b.do(t, http.MethodGet, path, nil)
}

func (b *browser) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	return b.do(t, http.MethodPost, path, form)
}

func (b *browser) login(t *testing.T, email string) {
	t.Helper()
	rr := b.post(t, "/login", url.Values{"email": {email}, "password": {"secret"}})
	require.Equal(t, http.StatusSeeOther, rr.Code, rr.Body.String())
}

// flash follows the last redirect to the landing page and returns its body.
func (b *browser) flash(t *testing.T) string {
	t.Helper()
	return b.get(t, "/").Body.String()
}

func assertRedirect(t *testing.T, rr *httptest.ResponseRecorder, to string) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, rr.Code, rr.Body.String())
	assert.Equal(t, to, rr.Header().Get("Location"))
}

func TestIndex(t *testing.T) {
	app := newTestApp(t)
	rr := app.browser().get(t, "/")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `href="/register"`)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	rr := app.browser().get(t, "/healthz")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRegister(t *testing.T) {
	app := newTestApp(t)
	b := app.browser()

	rr := b.post(t, "/register", url.Values{
		"name": {"Alice"}, "email": {"Alice@Example.com "}, "password": {"secret"}, "role": {"student"},
	})
	assertRedirect(t, rr, "/login")
	assert.Contains(t, b.get(t, "/login").Body.String(), handlers.MsgRegistered)

	u, err := app.store.UserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, u.Role)
	assert.NotEqual(t, "secret", u.Password)
}

func TestRegister_DuplicateEmailRerendersForm(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "Alice", "alice@example.com", "student")

	rr := app.browser().post(t, "/register", url.Values{
		"name": {"Other"}, "email": {"alice@example.com"}, "password": {"pw"}, "role": {"tutor"},
	})
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, handlers.MsgEmailExists)
	assert.Contains(t, body, `value="Other"`)
}

func TestRegister_InvalidRole(t *testing.T) {
	app := newTestApp(t)
	rr := app.browser().post(t, "/register", url.Values{
		"name": {"Mallory"}, "email": {"m@example.com"}, "password": {"pw"}, "role": {"admin"},
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), handlers.MsgInvalidForm)
}

func TestLogin(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "Alice", "alice@example.com", "student")
	app.register(t, "Bob", "bob@example.com", "tutor")

	t.Run("student lands on student dashboard", func(t *testing.T) {
		b := app.browser()
		rr := b.post(t, "/login", url.Values{"email": {"alice@example.com"}, "password": {"secret"}})
		assertRedirect(t, rr, "/student/dashboard")

		page := b.get(t, "/student/dashboard")
		require.Equal(t, http.StatusOK, page.Code)
		assert.Contains(t, page.Body.String(), "Welcome back, Alice!")
	})

	t.Run("tutor lands on tutor dashboard", func(t *testing.T) {
		rr := app.browser().post(t, "/login", url.Values{"email": {"bob@example.com"}, "password": {"secret"}})
		assertRedirect(t, rr, "/tutor/dashboard")
	})

	t.Run("wrong password rerenders form", func(t *testing.T) {
		rr := app.browser().post(t, "/login", url.Values{"email": {"alice@example.com"}, "password": {"nope"}})
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), handlers.MsgInvalidLogin)
		assert.Contains(t, rr.Body.String(), `value="alice@example.com"`)
	})

	t.Run("unknown email gives the same message", func(t *testing.T) {
		rr := app.browser().post(t, "/login", url.Values{"email": {"ghost@example.com"}, "password": {"secret"}})
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), handlers.MsgInvalidLogin)
	})
}

func TestLogout(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "Alice", "alice@example.com", "student")

	t.Run("anonymous goes to login", func(t *testing.T) {
		assertRedirect(t, app.browser().get(t, "/logout"), "/login")
	})

	t.Run("clears identity", func(t *testing.T) {
		b := app.browser()
		b.login(t, "alice@example.com")
		assertRedirect(t, b.get(t, "/logout"), "/")
		assert.Contains(t, b.flash(t), handlers.MsgLoggedOut)

		assertRedirect(t, b.get(t, "/student/dashboard"), "/")
	})
}

func TestRoleGuard(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "Alice", "alice@example.com", "student")
	app.register(t, "Bob", "bob@example.com", "tutor")

	cases := []struct {
		name  string
		email string
		path  string
	}{
		{"anonymous on student dashboard", "", "/student/dashboard"},
		{"anonymous on tutor dashboard", "", "/tutor/dashboard"},
		{"student on tutor dashboard", "alice@example.com", "/tutor/dashboard"},
		{"tutor on student dashboard", "bob@example.com", "/student/dashboard"},
		{"student updating a session", "alice@example.com", "/tutor/update_session/1/confirmed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := app.browser()
			if tc.email != "" {
				b.login(t, tc.email)
			}
			assertRedirect(t, b.get(t, tc.path), "/")
			assert.Contains(t, b.flash(t), handlers.MsgAccessDenied)
		})
	}
}

func TestStaleSessionIsAnonymous(t *testing.T) {
	app := newTestApp(t)
	u := app.register(t, "Alice", "alice@example.com", "student")
	b := app.browser()
	b.login(t, "alice@example.com")

	require.NoError(t, app.store.DB().Delete(&models.User{}, u.ID).Error)
	assertRedirect(t, b.get(t, "/student/dashboard"), "/")
}

func TestStudentDashboard_Search(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "Alice", "alice@example.com", "student")
	bob := app.register(t, "Bob Smith", "bob@example.com", "tutor")
	app.register(t, "Carol", "carol@example.com", "tutor")
	math := app.subject(t, "Mathematics")
	require.NoError(t, app.store.AddTutorSubject(context.Background(), bob.ID, math.ID))

	b := app.browser()
	b.login(t, "alice@example.com")

	all := b.get(t, "/student/dashboard").Body.String()
	assert.Contains(t, all, "Bob Smith")
	assert.Contains(t, all, "Carol")

	filtered := b.get(t, "/student/dashboard?search=math").Body.String()
	assert.Contains(t, filtered, "Bob Smith")
	assert.NotContains(t, filtered, "Carol")
	assert.Contains(t, filtered, `value="math"`)
}

func TestBookSession(t *testing.T) {
	app := newTestApp(t)
	alice := app.register(t, "Alice", "alice@example.com", "student")
	bob := app.register(t, "Bob", "bob@example.com", "tutor")

	b := app.browser()
	b.login(t, "alice@example.com")
	b.get(t, "/student/dashboard")

	bookPath := "/student/book_session/" + idstr(bob.ID)

	t.Run("success", func(t *testing.T) {
		rr := b.post(t, bookPath, url.Values{"session_date": {"2030-05-17T14:30"}})
		assertRedirect(t, rr, "/student/dashboard")
		assert.Contains(t, b.get(t, "/student/dashboard").Body.String(), handlers.MsgSessionRequested)

		sessions, err := app.store.SessionsForStudent(context.Background(), alice.ID)
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		assert.Equal(t, models.StatusPending, sessions[0].Status)
		assert.Equal(t, "Bob", sessions[0].TutorName)
	})

	t.Run("invalid date", func(t *testing.T) {
		rr := b.post(t, bookPath, url.Values{"session_date": {"tomorrow"}})
		assertRedirect(t, rr, "/student/dashboard")
		assert.Contains(t, b.get(t, "/student/dashboard").Body.String(), handlers.MsgInvalidDate)
	})

	t.Run("target is not a tutor", func(t *testing.T) {
		rr := b.post(t, "/student/book_session/"+idstr(alice.ID), url.Values{"session_date": {"2030-05-17T14:30"}})
		assertRedirect(t, rr, "/student/dashboard")
		assert.Contains(t, b.get(t, "/student/dashboard").Body.String(), handlers.MsgTutorNotFound)
	})

	t.Run("non numeric id", func(t *testing.T) {
		rr := b.post(t, "/student/book_session/abc", url.Values{"session_date": {"2030-05-17T14:30"}})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestTutorSubjects(t *testing.T) {
	app := newTestApp(t)
	bob := app.register(t, "Bob", "bob@example.com", "tutor")
	physics := app.subject(t, "Physics")

	b := app.browser()
	b.login(t, "bob@example.com")
	b.get(t, "/tutor/dashboard")

	rr := b.post(t, "/tutor/add_subject", url.Values{"subject_id": {idstr(physics.ID)}})
	assertRedirect(t, rr, "/tutor/dashboard")
	assert.Contains(t, b.get(t, "/tutor/dashboard").Body.String(), handlers.MsgSubjectAdded)

	rr = b.post(t, "/tutor/add_subject", url.Values{"subject_id": {idstr(physics.ID)}})
	assertRedirect(t, rr, "/tutor/dashboard")
	assert.Contains(t, b.get(t, "/tutor/dashboard").Body.String(), handlers.MsgSubjectExists)

	rr = b.post(t, "/tutor/add_subject", url.Values{"subject_id": {"999"}})
	assertRedirect(t, rr, "/tutor/dashboard")
	assert.Contains(t, b.get(t, "/tutor/dashboard").Body.String(), handlers.MsgSubjectNotFound)

	rr = b.post(t, "/tutor/add_subject", url.Values{"subject_id": {""}})
	assertRedirect(t, rr, "/tutor/dashboard")
	assert.Contains(t, b.get(t, "/tutor/dashboard").Body.String(), handlers.MsgInvalidForm)

	rr = b.get(t, "/tutor/remove_subject/"+idstr(physics.ID))
	assertRedirect(t, rr, "/tutor/dashboard")
	assert.Contains(t, b.get(t, "/tutor/dashboard").Body.String(), handlers.MsgSubjectRemoved)

	mine, err := app.store.TutorSubjects(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)

	// Removing a subject that is not linked still succeeds.
	rr = b.get(t, "/tutor/remove_subject/"+idstr(physics.ID))
	assertRedirect(t, rr, "/tutor/dashboard")
	assert.Contains(t, b.get(t, "/tutor/dashboard").Body.String(), handlers.MsgSubjectRemoved)
}

func TestUpdateSession(t *testing.T) {
	app := newTestApp(t)
	alice := app.register(t, "Alice", "alice@example.com", "student")
	bob := app.register(t, "Bob", "bob@example.com", "tutor")
	app.register(t, "Carol", "carol@example.com", "tutor")

	sess := &models.Session{StudentID: alice.ID, TutorID: bob.ID, SessionDate: mustDate(t, "2030-05-17T14:30")}
	require.NoError(t, app.store.CreateSession(context.Background(), sess))
	base := "/tutor/update_session/" + idstr(sess.ID) + "/"

	t.Run("other tutor cannot see it", func(t *testing.T) {
		b := app.browser()
		b.login(t, "carol@example.com")
		assertRedirect(t, b.get(t, base+"confirmed"), "/tutor/dashboard")
		assert.Contains(t, b.get(t, "/tutor/dashboard").Body.String(), handlers.MsgSessionNotFound)
	})

	b := app.browser()
	b.login(t, "bob@example.com")
	b.get(t, "/tutor/dashboard")

	t.Run("invalid status", func(t *testing.T) {
		assertRedirect(t, b.get(t, base+"cancelled"), "/tutor/dashboard")
		assert.Contains(t, b.get(t, "/tutor/dashboard").Body.String(), handlers.MsgInvalidStatus)
	})

	t.Run("pending is not a valid update", func(t *testing.T) {
		assertRedirect(t, b.get(t, base+"pending"), "/tutor/dashboard")
		assert.Contains(t, b.get(t, "/tutor/dashboard").Body.String(), handlers.MsgInvalidStatus)
	})

	t.Run("confirm", func(t *testing.T) {
		assertRedirect(t, b.get(t, base+"confirmed"), "/tutor/dashboard")
		assert.Contains(t, b.get(t, "/tutor/dashboard").Body.String(), "Session confirmed successfully!")
	})

	t.Run("complete", func(t *testing.T) {
		assertRedirect(t, b.get(t, base+"completed"), "/tutor/dashboard")
		assert.Contains(t, b.get(t, "/tutor/dashboard").Body.String(), "Session completed successfully!")

		sessions, err := app.store.SessionsForTutor(context.Background(), bob.ID)
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		assert.Equal(t, models.StatusCompleted, sessions[0].Status)
	})

	t.Run("unknown session", func(t *testing.T) {
		assertRedirect(t, b.get(t, "/tutor/update_session/999/confirmed"), "/tutor/dashboard")
		assert.Contains(t, b.get(t, "/tutor/dashboard").Body.String(), handlers.MsgSessionNotFound)
	})

	t.Run("non numeric id", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, b.get(t, "/tutor/update_session/x/confirmed").Code)
	})
}

func TestGuard_BackendFailureIsNotAccessDenied(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "Bob", "bob@example.com", "tutor")
	b := app.browser()
	b.login(t, "bob@example.com")
	b.get(t, "/tutor/dashboard")

	require.NoError(t, app.store.DB().Exec(`ALTER TABLE users RENAME TO users_gone`).Error)

	assertRedirect(t, b.get(t, "/tutor/dashboard"), "/")
	body := b.flash(t)
	assert.Contains(t, body, handlers.MsgSomethingWrong)
	assert.NotContains(t, body, handlers.MsgAccessDenied)
}
