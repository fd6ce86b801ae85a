package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"campus-hub/internal/config"
	"campus-hub/internal/database"
	"campus-hub/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPassword = "secret123"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Connect(config.DriverSQLite, dsn)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	prev := database.DB
	database.DB = db

	cfg := &config.Config{
		AppID:         "campus-hub-test",
		SessionSecret: "test-session-secret-0123456789",
		JWTSecret:     "test-jwt-secret-0123456789",
		JWTTTL:        time.Hour,
	}
	r, err := NewRouter(cfg, zap.NewNop())
	require.NoError(t, err)

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		database.DB = prev
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return srv
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func createUser(t *testing.T, email string, role models.UserRole) {
	t.Helper()
	_, err := database.CreateUser(context.Background(), email, testPassword, "", role)
	require.NoError(t, err)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func postForm(t *testing.T, c *http.Client, u string, form url.Values) *http.Response {
	t.Helper()
	resp, err := c.PostForm(u, form)
	require.NoError(t, err)
	return resp
}

func get(t *testing.T, c *http.Client, u string) *http.Response {
	t.Helper()
	resp, err := c.Get(u)
	require.NoError(t, err)
	return resp
}

func signIn(t *testing.T, srv *httptest.Server, email string) *http.Client {
	t.Helper()
	c := newClient(t)
	resp := postForm(t, c, srv.URL+"/login", url.Values{"email": {email}, "password": {testPassword}})
	readBody(t, resp)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/assets", resp.Header.Get("Location"))
	return c
}

func TestHealthAndAuthGate(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)

	resp := get(t, c, srv.URL+"/health")
	assert.Equal(t, "ok", readBody(t, resp))

	for _, path := range []string{"/", "/assets", "/logs", "/manual", "/audit"} {
		resp := get(t, c, srv.URL+path)
		readBody(t, resp)
		assert.Equal(t, http.StatusFound, resp.StatusCode, path)
		assert.Equal(t, "/login", resp.Header.Get("Location"), path)
	}

	resp = get(t, c, srv.URL+"/login")
	assert.Contains(t, readBody(t, resp), "Sign in")
}

func TestRegisterSignsIn(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)

	resp := postForm(t, c, srv.URL+"/register", url.Values{
		"email":        {"hand@ranch.local"},
		"password":     {testPassword},
		"display_name": {"Sam Hand"},
	})
	readBody(t, resp)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp = get(t, c, srv.URL+"/assets")
	body := readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Sam Hand")
	assert.Contains(t, body, "collaborator")

	again := newClient(t)
	resp = postForm(t, again, srv.URL+"/register", url.Values{
		"email":    {"HAND@ranch.local"},
		"password": {testPassword},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "email already registered")

	resp = get(t, c, srv.URL+"/logout")
	readBody(t, resp)
	resp = get(t, c, srv.URL+"/assets")
	readBody(t, resp)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, "hand@ranch.local", models.RoleCollaborator)

	c := newClient(t)
	resp := postForm(t, c, srv.URL+"/login", url.Values{"email": {"hand@ranch.local"}, "password": {"nope"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "invalid email or password")
}

func TestAssetLifecycleThroughForms(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, "hand@ranch.local", models.RoleCollaborator)
	createUser(t, "boss@ranch.local", models.RoleAdmin)
	c := signIn(t, srv, "hand@ranch.local")

	resp := postForm(t, c, srv.URL+"/assets/new", url.Values{
		"name":          {"Well Pump"},
		"main_category": {"Infrastructure"},
		"sub_category":  {"Infrastructure/Water Systems"},
		"status":        {"Active"},
		"location":      {"North pasture"},
		"sop":           {"Check pressure weekly"},
	})
	readBody(t, resp)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	detail := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(detail, "/assets/"))
	id := strings.TrimPrefix(detail, "/assets/")

	body := readBody(t, get(t, c, srv.URL+detail))
	assert.Contains(t, body, "Well Pump")
	assert.Contains(t, body, "Check pressure weekly")

	body = readBody(t, get(t, c, srv.URL+"/assets?main=Infrastructure"))
	assert.Contains(t, body, "Well Pump")
	body = readBody(t, get(t, c, srv.URL+"/assets?main=Power"))
	assert.NotContains(t, body, "Well Pump")

	resp = postForm(t, c, srv.URL+"/assets/"+id+"/edit", url.Values{
		"name":          {"Well Pump"},
		"main_category": {"Infrastructure"},
		"sub_category":  {"Infrastructure/Water Systems"},
		"status":        {"Repair"},
	})
	readBody(t, resp)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	stored, err := database.GetAsset(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRepair, stored.Status)
	assert.Empty(t, stored.SOP)

	body = readBody(t, get(t, c, srv.URL+"/manual"))
	assert.Contains(t, body, "Infrastructure")
	assert.Contains(t, body, "Water Systems")

	// collaborators may not delete or read the audit trail
	resp = postForm(t, c, srv.URL+"/assets/"+id+"/delete", nil)
	readBody(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = get(t, c, srv.URL+"/audit")
	readBody(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	admin := signIn(t, srv, "boss@ranch.local")
	body = readBody(t, get(t, admin, srv.URL+"/audit"))
	assert.Contains(t, body, "Created asset: Well Pump")
	assert.Contains(t, body, "ha***@ranch.local")

	resp = postForm(t, admin, srv.URL+"/assets/"+id+"/delete", nil)
	readBody(t, resp)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	resp = get(t, admin, srv.URL+detail)
	readBody(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAssetFormValidation(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, "hand@ranch.local", models.RoleCollaborator)
	c := signIn(t, srv, "hand@ranch.local")

	resp := postForm(t, c, srv.URL+"/assets/new", url.Values{
		"name":          {"Hen House"},
		"main_category": {"Power"},
		"sub_category":  {"Bio-Systems/Poultry"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "is not a sub category of")

	resp = postForm(t, c, srv.URL+"/assets/new", url.Values{
		"main_category": {"Bio-Systems"},
		"sub_category":  {"Bio-Systems/Poultry"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Asset name is required")
}

func TestViewerIsReadOnly(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, "guest@ranch.local", models.RoleViewer)
	c := signIn(t, srv, "guest@ranch.local")

	resp := get(t, c, srv.URL+"/assets")
	body := readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, body, "New asset")

	for _, path := range []string{"/assets/new", "/logs/new"} {
		resp := postForm(t, c, srv.URL+path, url.Values{"name": {"x"}})
		readBody(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
	}
}

func TestLogFormWithFeeding(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, "hand@ranch.local", models.RoleCollaborator)
	c := signIn(t, srv, "hand@ranch.local")

	resp := postForm(t, c, srv.URL+"/logs/new", url.Values{
		"type":        {"Feeding"},
		"description": {"Evening feed"},
		"feed_animal": {"Bessie", "", "Daisy"},
		"feed_amount": {"2 flakes", "ignored", "1 scoop"},
	})
	readBody(t, resp)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	logs, err := database.ListLogs(context.Background(), database.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	entry := logs[0]
	assert.Equal(t, "hand@ranch.local", entry.TeamMember)
	assert.Equal(t, "2 flakes", entry.FeedingData["Bessie"])
	assert.Equal(t, "1 scoop", entry.FeedingData["Daisy"])
	assert.Len(t, entry.FeedingData, 2)

	body := readBody(t, get(t, c, srv.URL+"/logs"))
	assert.Contains(t, body, "Evening feed")
	assert.Contains(t, body, "Bessie: 2 flakes")

	body = readBody(t, get(t, c, srv.URL+"/logs/"+entry.ID+"/edit"))
	assert.Contains(t, body, `value="Bessie"`)

	resp = postForm(t, c, srv.URL+"/logs/new", url.Values{"type": {"Feeding"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Description is required")
}

var (
	inputField    = regexp.MustCompile(`<input[^>]*name="([^"]+)"[^>]*value="([^"]*)"`)
	selectField   = regexp.MustCompile(`(?s)<select name="([^"]+)"[^>]*>(.*?)</select>`)
	selectedValue = regexp.MustCompile(`value="([^"]*)"\s*selected`)
	textareaField = regexp.MustCompile(`(?s)<textarea name="([^"]+)"[^>]*>(.*?)</textarea>`)
)

// formValues collects what a browser would submit for the rendered form.
func formValues(body string) url.Values {
	form := url.Values{}
	for _, m := range inputField.FindAllStringSubmatch(body, -1) {
		form.Add(m[1], html.UnescapeString(m[2]))
	}
	for _, m := range selectField.FindAllStringSubmatch(body, -1) {
		if sel := selectedValue.FindStringSubmatch(m[2]); sel != nil {
			form.Set(m[1], html.UnescapeString(sel[1]))
		} else {
			form.Set(m[1], "")
		}
	}
	for _, m := range textareaField.FindAllStringSubmatch(body, -1) {
		form.Set(m[1], html.UnescapeString(m[2]))
	}
	return form
}

func TestLogEditFormKeepsAPIData(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, "hand@ranch.local", models.RoleCollaborator)
	token := apiToken(t, srv, "hand@ranch.local")
	c := signIn(t, srv, "hand@ranch.local")

	status, body := apiDo(t, http.MethodPut, srv.URL+"/api/v1/logs/feed1", token, map[string]interface{}{
		"type":           "Feeding",
		"description":    "Evening feed",
		"relatedAssetId": "herd",
		"feedingData":    map[string]interface{}{"Bessie": 5, "Daisy": "1 scoop"},
	})
	require.Equal(t, http.StatusCreated, status, body)

	status, body = apiDo(t, http.MethodPut, srv.URL+"/api/v1/logs/feed2", token, map[string]interface{}{
		"type":        "Feeding",
		"description": "Nested rations",
		"feedingData": map[string]interface{}{"Daisy": map[string]int{"hay": 2}},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "Ration for Daisy must be text")

	body = readBody(t, get(t, c, srv.URL+"/logs/feed1/edit"))
	assert.Contains(t, body, `<option value="herd" selected>`)
	assert.Contains(t, body, `value="5"`)
	assert.Equal(t, 2+3, strings.Count(body, `name="feed_animal"`))

	resp := postForm(t, c, srv.URL+"/logs/feed1/edit", formValues(body))
	readBody(t, resp)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	got, err := database.GetLog(context.Background(), "feed1")
	require.NoError(t, err)
	assert.Equal(t, "herd", got.RelatedAssetID)
	assert.Equal(t, "Evening feed", got.Description)
	assert.Len(t, got.FeedingData, 2)
	assert.Equal(t, "5", got.FeedingData["Bessie"])
	assert.Equal(t, "1 scoop", got.FeedingData["Daisy"])
}

func TestNewLogFormOffersSeveralAnimals(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, "hand@ranch.local", models.RoleCollaborator)
	c := signIn(t, srv, "hand@ranch.local")

	body := readBody(t, get(t, c, srv.URL+"/logs/new?type=Feeding"))
	assert.Equal(t, 3, strings.Count(body, `name="feed_animal"`))
	assert.NotContains(t, body, "not in register")
}

// api helpers

func apiToken(t *testing.T, srv *httptest.Server, email string) string {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"email": email, "password": testPassword})
	resp, err := http.Post(srv.URL+"/api/v1/token", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func apiDo(t *testing.T, method, u, token string, payload interface{}) (int, string) {
	t.Helper()
	var rdr io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, u, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp.StatusCode, readBody(t, resp)
}

func TestAPIAssets(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, "hand@ranch.local", models.RoleCollaborator)
	createUser(t, "boss@ranch.local", models.RoleAdmin)
	token := apiToken(t, srv, "hand@ranch.local")

	status, _ := apiDo(t, http.MethodGet, srv.URL+"/api/v1/assets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = apiDo(t, http.MethodGet, srv.URL+"/api/v1/assets", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := apiDo(t, http.MethodPost, srv.URL+"/api/v1/assets", token, map[string]string{
		"name": "South Array", "mainCategory": "Power", "subCategory": "Solar",
	})
	require.Equal(t, http.StatusCreated, status, body)
	var created models.Asset
	require.NoError(t, json.Unmarshal([]byte(body), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.StatusActive, created.Status)

	status, body = apiDo(t, http.MethodPut, srv.URL+"/api/v1/assets/solar-south", token, map[string]string{
		"name": "South Array", "mainCategory": "Power", "subCategory": "Solar", "status": "Repair",
	})
	require.Equal(t, http.StatusCreated, status, body)
	status, body = apiDo(t, http.MethodPut, srv.URL+"/api/v1/assets/solar-south", token, map[string]string{
		"name": "South Array", "mainCategory": "Power", "subCategory": "Solar", "status": "Active",
	})
	require.Equal(t, http.StatusOK, status, body)

	status, body = apiDo(t, http.MethodGet, srv.URL+"/api/v1/assets/solar-south", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"status":"Active"`)

	status, body = apiDo(t, http.MethodGet, srv.URL+"/api/v1/assets?status=Active&mainCategory=Power", token, nil)
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Assets []models.Asset `json:"assets"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &list))
	assert.Len(t, list.Assets, 2)

	status, body = apiDo(t, http.MethodPost, srv.URL+"/api/v1/assets", token, map[string]string{"name": "Nowhere"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "Main category is required")

	status, _ = apiDo(t, http.MethodGet, srv.URL+"/api/v1/assets/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = apiDo(t, http.MethodDelete, srv.URL+"/api/v1/assets/solar-south", token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	admin := apiToken(t, srv, "boss@ranch.local")
	status, _ = apiDo(t, http.MethodDelete, srv.URL+"/api/v1/assets/solar-south", admin, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = apiDo(t, http.MethodDelete, srv.URL+"/api/v1/assets/solar-south", admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPILogsTaxonomyAndManual(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, "hand@ranch.local", models.RoleCollaborator)
	token := apiToken(t, srv, "hand@ranch.local")

	status, body := apiDo(t, http.MethodPost, srv.URL+"/api/v1/logs", token, map[string]interface{}{
		"type":           "Health",
		"description":    "Limping, checked hoof",
		"relatedAssetId": "herd",
		"timestamp":      "1999-01-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, status, body)
	var entry models.Log
	require.NoError(t, json.Unmarshal([]byte(body), &entry))
	assert.Equal(t, "hand@ranch.local", entry.TeamMember)
	assert.True(t, entry.Timestamp.After(time.Now().Add(-time.Minute)), "timestamp comes from the server")

	status, body = apiDo(t, http.MethodGet, srv.URL+"/api/v1/logs?relatedAssetId=herd", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Limping")

	status, body = apiDo(t, http.MethodGet, srv.URL+"/api/v1/logs/"+entry.ID, token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"type":"Health"`)

	status, body = apiDo(t, http.MethodGet, srv.URL+"/api/v1/taxonomy", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Bio-Systems")
	assert.Contains(t, body, "Decommissioned")

	_, err := database.SaveAsset(context.Background(), &models.Asset{Name: "Coop", MainCategory: "Bio-Systems", SubCategory: "Poultry", SOP: "Collect eggs at dawn"})
	require.NoError(t, err)
	status, body = apiDo(t, http.MethodGet, srv.URL+"/api/v1/manual", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Collect eggs at dawn")
}

func TestLiveLogsStream(t *testing.T) {
	srv := newTestServer(t)
	createUser(t, "hand@ranch.local", models.RoleCollaborator)
	token := apiToken(t, srv, "hand@ranch.local")

	header := http.Header{"Authorization": {"Bearer " + token}}
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/logs"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var ev struct {
		Type string          `json:"type"`
		Doc  json.RawMessage `json:"doc"`
		Docs json.RawMessage `json:"docs"`
	}
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "snapshot", ev.Type)
	assert.JSONEq(t, "[]", string(ev.Docs))

	status, _ := apiDo(t, http.MethodPost, srv.URL+"/api/v1/logs", token, map[string]string{
		"type": "Observation", "description": "Hawk over the coop",
	})
	require.Equal(t, http.StatusCreated, status)

	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "added", ev.Type)
	assert.Contains(t, string(ev.Doc), "Hawk over the coop")

	body := readBody(t, get(t, newClient(t), srv.URL+"/metrics"))
	assert.Contains(t, body, `campushub_document_writes_total{collection="logs",kind="added"} 1`)
	assert.Contains(t, body, `campushub_live_subscribers{collection="logs"} 1`)
}

func TestLiveStreamRequiresAuth(t *testing.T) {
	srv := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/assets"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "ha***@ranch.local", maskEmail("hand@ranch.local"))
	assert.Equal(t, "jo***@x.io", maskEmail("jo@x.io"))
	assert.Equal(t, "***", maskEmail("@x.io"))
	assert.Equal(t, "***", maskEmail("nobody"))
}
