package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"salesbot/internal/catalog"
	"salesbot/internal/config"
	"salesbot/internal/domain"
	"salesbot/internal/kb"
	"salesbot/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestServer(t *testing.T) (*Server, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	srv := NewServer(ServerConfig{
		Config:        config.APIConfig{Enabled: true, Host: "127.0.0.1", Port: 0, Token: "sekrit"},
		Conversations: st,
		Catalog:       st,
		Knowledge:     st,
		Importer:      catalog.NewImporter(st, testLogger()),
		Processor:     kb.NewProcessor(kb.ProcessorConfig{Logger: testLogger()}),
		Checks: map[string]HealthCheck{
			"openai": func(ctx context.Context) error { return nil },
		},
		Logger: testLogger(),
	})
	return srv, st
}

func doReq(t *testing.T, h http.Handler, method, path, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if authed {
		req.Header.Set("Authorization", "Bearer sekrit")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuth_Required(t *testing.T) {
	srv, _ := newTestServer(t)

	if rec := doReq(t, srv.Handler(), "GET", "/api/vehicles", "", false); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
	if rec := doReq(t, srv.Handler(), "GET", "/health", "", false); rec.Code != http.StatusOK {
		t.Errorf("health must not require auth, got %d", rec.Code)
	}
}

func TestVehicleCRUD(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doReq(t, h, "POST", "/api/vehicles",
		`{"stock_id":"246799","make":"Nissan","model":"Versa","year":2022,"km":52067,"price":285999}`, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.Vehicle
	json.Unmarshal(rec.Body.Bytes(), &created)
	if created.ID == "" {
		t.Fatal("created vehicle has no id")
	}

	rec = doReq(t, h, "GET", "/api/vehicles/"+created.ID, "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}

	rec = doReq(t, h, "PUT", "/api/vehicles/"+created.ID,
		`{"stock_id":"246799","make":"Nissan","model":"Versa","year":2022,"km":60000,"price":270000}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated domain.Vehicle
	json.Unmarshal(rec.Body.Bytes(), &updated)
	if updated.KM != 60000 {
		t.Errorf("update not applied: %+v", updated)
	}

	rec = doReq(t, h, "DELETE", "/api/vehicles/"+created.ID, "", true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	if rec = doReq(t, h, "GET", "/api/vehicles/"+created.ID, "", true); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestVehicleImport(t *testing.T) {
	srv, st := newTestServer(t)

	csv := "stock_id,km,price,make,model,year\n246799,52067,285999,Nissan,Versa,2022\n300123,10500,410000,Mazda,3,2023\n"
	rec := doReq(t, srv.Handler(), "POST", "/api/vehicles/import", csv, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result catalog.ImportResult
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result.Imported != 2 {
		t.Errorf("expected 2 imported, got %+v", result)
	}

	vehicles, err := st.ListVehicles(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(vehicles) != 2 {
		t.Errorf("expected 2 vehicles persisted, got %d", len(vehicles))
	}
}

func TestArticleCRUD_InlineText(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doReq(t, h, "POST", "/api/articles",
		`{"name":"Financiamiento","text":"La tasa de interes es del 10%."}`, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.KnowledgeArticle
	json.Unmarshal(rec.Body.Bytes(), &created)
	if !created.Active {
		t.Error("inline article must be active immediately")
	}

	rec = doReq(t, h, "PUT", "/api/articles/"+created.ID, `{"active":false}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var updated domain.KnowledgeArticle
	json.Unmarshal(rec.Body.Bytes(), &updated)
	if updated.Active {
		t.Error("deactivation not applied")
	}
	if updated.Text != created.Text {
		t.Error("partial update must keep unchanged fields")
	}
}

func TestArticleCreate_FromURL(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Write([]byte("<html><body><p>Contenido del articulo</p></body></html>"))
	}))
	defer page.Close()

	srv, st := newTestServer(t)

	rec := doReq(t, srv.Handler(), "POST", "/api/articles",
		fmt.Sprintf(`{"name":"Sedes","url":%q}`, page.URL), true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.KnowledgeArticle
	json.Unmarshal(rec.Body.Bytes(), &created)
	if created.Active {
		t.Error("URL-backed article must start inactive")
	}

	// Background fetch populates and activates the article.
	deadline := time.After(3 * time.Second)
	for {
		article, err := st.GetArticle(context.Background(), created.ID)
		if err != nil {
			t.Fatal(err)
		}
		if article != nil && article.Active {
			if !strings.Contains(article.Text, "Contenido del articulo") {
				t.Errorf("unexpected extracted text: %q", article.Text)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("article was never populated")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestArticleCreate_Invalid(t *testing.T) {
	srv, _ := newTestServer(t)
	if rec := doReq(t, srv.Handler(), "POST", "/api/articles", `{"name":"x"}`, true); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without text or url, got %d", rec.Code)
	}
	if rec := doReq(t, srv.Handler(), "POST", "/api/articles", `{"text":"y"}`, true); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without name, got %d", rec.Code)
	}
}

func TestChannelMessages(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()

	ch, err := st.GetOrCreateChannel(ctx, "+52155")
	if err != nil {
		t.Fatal(err)
	}
	st.AppendMessage(ctx, ch.ID, "hola", "Ana")
	st.AppendMessage(ctx, ch.ID, "¡Hola!", "bot")

	rec := doReq(t, srv.Handler(), "GET", "/api/channels/"+ch.ID+"/messages", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var messages []domain.Message
	json.Unmarshal(rec.Body.Bytes(), &messages)
	if len(messages) != 2 || messages[0].Author != "Ana" {
		t.Errorf("unexpected messages: %+v", messages)
	}

	if rec = doReq(t, srv.Handler(), "GET", "/api/channels/nope/messages", "", true); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown channel, got %d", rec.Code)
	}
}

func TestCredentialsCheck(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doReq(t, srv.Handler(), "GET", "/api/credentials_check", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var results map[string]string
	json.Unmarshal(rec.Body.Bytes(), &results)
	if results["openai"] != "ok" {
		t.Errorf("unexpected results: %v", results)
	}

	srv.checks["twilio"] = func(ctx context.Context) error { return fmt.Errorf("bad credentials") }
	rec = doReq(t, srv.Handler(), "GET", "/api/credentials_check", "", true)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 with failing check, got %d", rec.Code)
	}
}
