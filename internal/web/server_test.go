package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada/internal/controller"
	"github.com/Makepad-fr/tada/internal/logger"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store/sqlitestore"
)

func newTestServer(t *testing.T) (*Server, *sqlitestore.Store) {
	t.Helper()
	s, err := sqlitestore.Open(context.Background(), filepath.Join(t.TempDir(), "todos.sqlite3"), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewServer(s, controller.NewHistory(10), logger.Discard()), s
}

func get(t *testing.T, srv http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func post(t *testing.T, srv http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func li(id int64) string { return fmt.Sprintf(`<li data-id="%d"`, id) }

func TestEmptyPageHidesMain(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := get(t, srv, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<h1>todos</h1>")
	assert.NotContains(t, rec.Body.String(), `class="todo-list"`)
}

func TestAddItemRedirectsBack(t *testing.T) {
	srv, store := newTestServer(t)

	rec := post(t, srv, "/todos", url.Values{"title": {"  Buy milk "}, "back": {"/active"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/active", rec.Header().Get("Location"))

	items, err := store.AllItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Buy milk", items[0].Title)

	body := get(t, srv, "/").Body.String()
	assert.Contains(t, body, li(items[0].ID))
	assert.Contains(t, body, "<strong>1</strong> item left")
}

func TestBlankTitleIsIgnored(t *testing.T) {
	srv, store := newTestServer(t)

	rec := post(t, srv, "/todos", url.Values{"title": {"   "}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	counts, err := store.ItemCounts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counts.Total)
}

func TestToggleMovesItemBetweenRoutes(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	id, err := store.InsertItem(ctx, "Walk dog")
	require.NoError(t, err)

	rec := post(t, srv, fmt.Sprintf("/todos/%d/toggle", id), url.Values{"completed": {"true"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	assert.Contains(t, get(t, srv, "/completed").Body.String(), li(id))
	assert.NotContains(t, get(t, srv, "/active").Body.String(), li(id))

	body := get(t, srv, "/").Body.String()
	assert.Contains(t, body, "Clear completed")
	assert.Contains(t, body, "<strong>0</strong> items left")
}

func TestRefererPicksRedirect(t *testing.T) {
	srv, store := newTestServer(t)
	id, err := store.InsertItem(context.Background(), "Walk dog")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/todos/%d/delete", id), nil)
	req.Header.Set("Referer", "http://localhost:8080/completed")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/completed", rec.Header().Get("Location"))
}

func TestToggleAllAndClearCompleted(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	for _, title := range []string{"a", "b", "c"} {
		_, err := store.InsertItem(ctx, title)
		require.NoError(t, err)
	}

	require.Equal(t, http.StatusSeeOther, post(t, srv, "/todos/toggle-all", url.Values{"completed": {"true"}}).Code)
	counts, err := store.ItemCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Counts{Active: 0, Total: 3}, counts)

	require.Equal(t, http.StatusSeeOther, post(t, srv, "/todos/clear-completed", nil).Code)
	counts, err = store.ItemCounts(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts.Total)
}

func TestEditItem(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	id, err := store.InsertItem(ctx, "Buy milk")
	require.NoError(t, err)

	body := get(t, srv, fmt.Sprintf("/?edit=%d", id)).Body.String()
	assert.Contains(t, body, `class="editing"`)

	rec := post(t, srv, fmt.Sprintf("/todos/%d/title", id), url.Values{"title": {"Buy oat milk"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	title, err := store.ItemTitle(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Buy oat milk", title)

	// An empty title deletes the item.
	post(t, srv, fmt.Sprintf("/todos/%d/title", id), url.Values{"title": {""}})
	_, err = store.ItemTitle(ctx, id)
	assert.ErrorIs(t, err, sqlitestore.ErrNotFound)
}

func TestMissingItemIsNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := post(t, srv, "/todos/42/delete", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPITodos(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	_, err := store.InsertItem(ctx, "a")
	require.NoError(t, err)
	_, err = store.InsertItemWithStatus(ctx, "b", true)
	require.NoError(t, err)

	rec := get(t, srv, "/api/todos?route=active")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.RouteActive, resp.Route)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "a", resp.Items[0].Title)
	assert.Equal(t, model.Counts{Active: 1, Total: 2}, resp.Counts)
}

func TestSQLConsole(t *testing.T) {
	srv, store := newTestServer(t)
	_, err := store.InsertItem(context.Background(), "Buy milk")
	require.NoError(t, err)

	rec := post(t, srv, "/sql", url.Values{"sql": {"SELECT title FROM todos"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	body := get(t, srv, "/").Body.String()
	assert.Contains(t, body, "<th>title</th>")
	assert.Contains(t, body, "<td>Buy milk</td>")
	assert.Equal(t, []string{"SELECT title FROM todos"}, srv.history.Entries())

	rec = post(t, srv, "/sql", url.Values{"sql": {"UPDATE todos SET completed = 1"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, get(t, srv, "/").Body.String(), "empty result set")

	rec = post(t, srv, "/sql", url.Values{"sql": {"SELECT nope FROM nowhere"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	body = get(t, srv, "/").Body.String()
	assert.Contains(t, body, `class="sql-error"`)
	assert.Contains(t, body, `value="SELECT nope FROM nowhere"`)
}

func TestEventsBroadcastCommits(t *testing.T) {
	srv, store := newTestServer(t)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/events", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return srv.hub.count() == 1 }, time.Second, 10*time.Millisecond)

	resp, err := http.PostForm(ts.URL+"/todos", url.Values{"title": {"from another tab"}})
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var n notice
	require.NoError(t, json.Unmarshal(msg, &n))
	assert.Equal(t, sqlitestore.EventCommit, n.Type)

	items, err := store.AllItems(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestInvalidateBroadcasts(t *testing.T) {
	srv, store := newTestServer(t)
	c := &client{send: make(chan []byte, 1)}
	srv.hub.add(c)

	store.Invalidate()

	select {
	case msg := <-c.send:
		assert.JSONEq(t, `{"type":"updateAllData"}`, string(msg))
	default:
		t.Fatal("no notice sent")
	}
}
