//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/articlehub/apiserver/config"
	"github.com/articlehub/apiserver/internal/db"
	"github.com/articlehub/apiserver/internal/server"
)

const (
	serverPort = 18080
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	setTestEnv()

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	cfg := config.LoadConfig()
	if err := db.MigrateUp(cfg.Database); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srvCtx, stop := context.WithCancel(context.Background())
	srv, err := server.New(srvCtx, cfg, zap.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		stop()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}
	done := make(chan struct{})
	go func() {
		_ = srv.Start(srvCtx)
		close(done)
	}()

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		stop()
		<-done
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	stop()
	<-done
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestArticleLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	email := fmt.Sprintf("writer_%d@example.com", time.Now().UnixNano())

	token, err := registerUser(baseURL, email, "testpass123")
	if err != nil {
		t.Fatalf("register user: %v", err)
	}

	var created envelope
	status, err := call(http.DefaultClient, http.MethodPost, baseURL+"/api/articles", token, map[string]any{
		"title":   "Lifecycle Article",
		"content": "Body of the lifecycle article.",
		"author":  "E2E Writer",
		"tags":    []string{"e2e", " go ", "e2e"},
	}, &created)
	if err != nil || status != http.StatusCreated {
		t.Fatalf("create article: status %d err %v", status, err)
	}
	id := int64(created.Data["id"].(float64))
	if tags := created.Data["tags"].([]any); len(tags) != 2 {
		t.Fatalf("expected tags to be deduplicated, got %v", tags)
	}

	var fetched envelope
	for i := 0; i < 2; i++ {
		status, err = call(http.DefaultClient, http.MethodGet, fmt.Sprintf("%s/api/articles/%d", baseURL, id), "", nil, &fetched)
		if err != nil || status != http.StatusOK {
			t.Fatalf("get article: status %d err %v", status, err)
		}
	}
	if views := fetched.Data["views"].(float64); views != 2 {
		t.Fatalf("expected 2 views, got %v", views)
	}

	var updated envelope
	status, err = call(http.DefaultClient, http.MethodPut, fmt.Sprintf("%s/api/articles/%d", baseURL, id), token, map[string]any{
		"title": "Lifecycle Article Updated",
	}, &updated)
	if err != nil || status != http.StatusOK {
		t.Fatalf("update article: status %d err %v", status, err)
	}
	if updated.Data["title"] != "Lifecycle Article Updated" || updated.Data["content"] != "Body of the lifecycle article." {
		t.Fatalf("unexpected updated article: %v", updated.Data)
	}

	status, err = call(http.DefaultClient, http.MethodDelete, fmt.Sprintf("%s/api/articles/%d", baseURL, id), token, nil, nil)
	if err != nil || status != http.StatusOK {
		t.Fatalf("delete article: status %d err %v", status, err)
	}

	status, err = call(http.DefaultClient, http.MethodGet, fmt.Sprintf("%s/api/articles/%d", baseURL, id), "", nil, nil)
	if err != nil || status != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d (%v)", status, err)
	}
}

func TestSessionLoginAndAdminRoutes(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	email := fmt.Sprintf("admin_%d@example.com", time.Now().UnixNano())
	password := "testpass123"

	if _, err := registerUser(baseURL, email, password); err != nil {
		t.Fatalf("register user: %v", err)
	}
	if err := promoteUserToAdmin(email); err != nil {
		t.Fatalf("promote user: %v", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{Jar: jar}

	var login envelope
	status, err := call(client, http.MethodPost, baseURL+"/api/auth/login", "", map[string]string{
		"email":    strings.ToUpper(email),
		"password": password,
	}, &login)
	if err != nil || status != http.StatusOK {
		t.Fatalf("login: status %d err %v", status, err)
	}
	if login.Data["role"] != "Admin" {
		t.Fatalf("expected promoted role, got %v", login.Data["role"])
	}
	id := int64(login.Data["id"].(float64))

	var me envelope
	status, err = call(client, http.MethodGet, fmt.Sprintf("%s/api/users/%d", baseURL, id), "", nil, &me)
	if err != nil || status != http.StatusOK {
		t.Fatalf("get self: status %d err %v", status, err)
	}
	if _, ok := me.Data["password"]; ok {
		t.Fatalf("password leaked in response: %v", me.Data)
	}

	status, err = call(client, http.MethodPost, baseURL+"/api/users/many", "", []map[string]any{
		{"name": "Bulk One", "email": fmt.Sprintf("bulk1_%d@example.com", id), "password": "password123", "age": 30},
		{"name": "B", "email": "not-an-email", "password": "x"},
	}, nil)
	if err != nil || status != http.StatusMultiStatus {
		t.Fatalf("bulk create: status %d err %v", status, err)
	}

	status, err = call(client, http.MethodPost, baseURL+"/api/auth/logout", "", nil, nil)
	if err != nil || status != http.StatusOK {
		t.Fatalf("logout: status %d err %v", status, err)
	}
	status, err = call(client, http.MethodGet, fmt.Sprintf("%s/api/users/%d", baseURL, id), "", nil, nil)
	if err != nil || status != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d (%v)", status, err)
	}
}

func TestShapedArticleQueries(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	run := time.Now().UnixNano()
	token, err := registerUser(baseURL, fmt.Sprintf("shaper_%d@example.com", run), "testpass123")
	if err != nil {
		t.Fatalf("register user: %v", err)
	}

	author := fmt.Sprintf("Shaper%d", run)
	tagA, tagB, tagC := fmt.Sprintf("a%d", run), fmt.Sprintf("b%d", run), fmt.Sprintf("c%d", run)
	article := func(title, by string, views int, published bool, tags ...string) map[string]any {
		return map[string]any{
			"title":     title,
			"content":   "Content written for the shaped query run.",
			"author":    by,
			"views":     views,
			"published": published,
			"tags":      tags,
		}
	}

	var bulk struct {
		InsertedCount int `json:"insertedCount"`
	}
	status, err := call(http.DefaultClient, http.MethodPost, baseURL+"/api/articles/many", token, []map[string]any{
		article("Alpha shaped article", author+" Alpha", 10, true, tagA),
		article("Beta shaped article", author+" Beta", 30, true, tagB),
		article("Gamma shaped article", author+" Gamma", 30, false, tagA, tagB),
		article("Delta shaped article", fmt.Sprintf("Other%d", run), 5, true, tagC),
	}, &bulk)
	if err != nil || status != http.StatusCreated || bulk.InsertedCount != 4 {
		t.Fatalf("bulk create: status %d inserted %d err %v", status, bulk.InsertedCount, err)
	}

	titles := func(target string, wantTotal int) []string {
		t.Helper()
		var list listEnvelope
		status, err := call(http.DefaultClient, http.MethodGet, baseURL+target, "", nil, &list)
		if err != nil || status != http.StatusOK {
			t.Fatalf("list %s: status %d err %v", target, status, err)
		}
		if list.Total != wantTotal {
			t.Fatalf("list %s: expected total %d, got %d", target, wantTotal, list.Total)
		}
		out := make([]string, 0, len(list.Data))
		for _, item := range list.Data {
			out = append(out, item["title"].(string))
		}
		return out
	}
	expect := func(got []string, want ...string) {
		t.Helper()
		if strings.Join(got, "|") != strings.Join(want, "|") {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	byAuthor := "/api/articles?author=" + strings.ToLower(author)
	expect(titles(byAuthor+"&sort=-views,title", 3),
		"Beta shaped article", "Gamma shaped article", "Alpha shaped article")
	expect(titles(byAuthor+"&sort=-views,title&limit=2&skip=1", 3),
		"Gamma shaped article", "Alpha shaped article")
	expect(titles(fmt.Sprintf("/api/articles?tags=%s,%s&sort=title", tagA, tagC), 3),
		"Alpha shaped article", "Delta shaped article", "Gamma shaped article")
	expect(titles(byAuthor+"&published=false", 1), "Gamma shaped article")

	var counts struct {
		MatchedCount  int `json:"matchedCount"`
		ModifiedCount int `json:"modifiedCount"`
	}
	status, err = call(http.DefaultClient, http.MethodPatch, baseURL+"/api/articles", token, map[string]any{
		"filter": map[string]any{"tags": tagA},
		"update": map[string]any{"views": 10},
	}, &counts)
	if err != nil || status != http.StatusOK {
		t.Fatalf("bulk update: status %d err %v", status, err)
	}
	if counts.MatchedCount != 2 || counts.ModifiedCount != 1 {
		t.Fatalf("expected 2 matched and 1 modified, got %+v", counts)
	}
	expect(titles(byAuthor+"&sort=-views,title", 3),
		"Beta shaped article", "Alpha shaped article", "Gamma shaped article")

	var stats struct {
		Stats struct {
			TotalArticles     int64 `json:"totalArticles"`
			TotalViews        int64 `json:"totalViews"`
			PublishedArticles int64 `json:"publishedArticles"`
			UniqueAuthors     int64 `json:"uniqueAuthors"`
		} `json:"stats"`
	}
	status, err = call(http.DefaultClient, http.MethodGet, baseURL+"/api/articles/stats", "", nil, &stats)
	if err != nil || status != http.StatusOK {
		t.Fatalf("stats: status %d err %v", status, err)
	}
	if stats.Stats.TotalArticles < 4 || stats.Stats.PublishedArticles < 3 ||
		stats.Stats.UniqueAuthors < 4 || stats.Stats.TotalViews < 55 {
		t.Fatalf("stats do not cover the created articles: %+v", stats.Stats)
	}
}

type envelope struct {
	Success bool           `json:"success"`
	Token   string         `json:"token"`
	Data    map[string]any `json:"data"`
	Error   string         `json:"error"`
}

type listEnvelope struct {
	Data  []map[string]any `json:"data"`
	Count int              `json:"count"`
	Total int              `json:"total"`
}

func call(client *http.Client, method, url, token string, payload any, out any) (int, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func registerUser(baseURL, email, password string) (string, error) {
	var parsed envelope
	status, err := call(http.DefaultClient, http.MethodPost, baseURL+"/api/auth/register", "", map[string]any{
		"name":     "Test Writer",
		"email":    email,
		"password": password,
		"age":      30,
	}, &parsed)
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated {
		return "", fmt.Errorf("register status %d: %s", status, parsed.Error)
	}
	if parsed.Token == "" {
		return "", fmt.Errorf("missing token in register response")
	}
	return parsed.Token, nil
}

func openDB() (*sql.DB, error) {
	dsn, err := db.URL(config.LoadConfig().Database)
	if err != nil {
		return nil, err
	}
	return sql.Open("postgres", dsn)
}

func promoteUserToAdmin(email string) error {
	conn, err := openDB()
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = conn.ExecContext(ctx, "UPDATE users SET role = 'Admin', updated_at = NOW() WHERE lower(email) = lower($1)", email)
	return err
}

func waitForPostgres(ctx context.Context) error {
	conn, err := openDB()
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func setTestEnv() {
	_ = os.Setenv("SESSION_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "articlehub")
	_ = os.Setenv("DB_PASSWORD", "articlehub")
	_ = os.Setenv("DB_NAME", "articlehub")
	_ = os.Setenv("DB_USE_SSL", "false")
	_ = os.Setenv("EVENTS_BACKEND", "memory")
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
