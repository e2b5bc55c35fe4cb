package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instrupro-backend/config"
	"instrupro-backend/internal/controller"
	"instrupro-backend/internal/db"
	"instrupro-backend/internal/model"
	"instrupro-backend/internal/mw"
	"instrupro-backend/internal/store"
	"instrupro-backend/internal/webhook"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router  *gin.Engine
	token   string
	hook    *httptest.Server
	reports chan webhook.Report
}

func newTestServer(t *testing.T) *testServer {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gormDB, err := db.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	reports := make(chan webhook.Report, 4)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rep webhook.Report
		_ = json.NewDecoder(r.Body).Decode(&rep)
		reports <- rep
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(hook.Close)

	st := store.NewGormStore(gormDB)
	packers := []string{"Packer-1", "Packer-2"}
	wf, err := controller.NewWeighFeeder(config.DefaultWeighFeederTags, controller.WeighFeederOptions{
		Sender: webhook.NewClient(hook.URL, time.Second, nil),
	})
	require.NoError(t, err)

	auth := mw.NewAuthenticator("test-secret")
	token, err := auth.Issue(model.Principal{UID: "u-1", Email: "op@plant.example", DisplayName: "Asha"}, time.Hour)
	require.NoError(t, err)

	router := NewRouter(config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000}, auth, Deps{
		Dashboard:     controller.NewDashboard(st, controller.DashboardOptions{Equipment: packers}),
		History:       controller.NewHistory(st, controller.HistoryOptions{Equipment: packers}),
		Requests:      controller.NewRequests(st, controller.RequestOptions{}),
		WeighFeeder:   wf,
		Subscriptions: st,
		WebPush:       &webpush.Options{VAPIDPublicKey: "BPub"},
	})
	return &testServer{router: router, token: token, hook: hook, reports: reports}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, path, r)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+s.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRouter_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/dashboard", nil)
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/vapid_public_key", nil)
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"BPub"}`, w.Body.String())
}

func TestDashboardAndHistory(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	dash := decode[controller.DashboardView](t, w)
	require.Len(t, dash.Rows, 2)
	assert.Equal(t, "No data", dash.Rows[0].LastUpdated)
	assert.Equal(t, "N/A", dash.Rows[0].DaysSince)

	w = s.do(t, http.MethodGet, "/api/packers", nil)
	assert.JSONEq(t, `{"packers":["Packer-1","Packer-2"]}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/packers/Packer-1/calibrations", gin.H{"measurements": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/packers/Packer-1/calibrations", gin.H{
		"measurements": []gin.H{{"input": 50.3, "error": 0.6}, {"input": 49.9, "error": -0.2}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/packers/Packer-1/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	hist := decode[controller.HistoryView](t, w)
	require.Len(t, hist.Sessions, 1)
	assert.Equal(t, "Asha", hist.Sessions[0].UserName)

	w = s.do(t, http.MethodGet, "/api/packers/Packer-1/history/0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[controller.SessionDetail](t, w)
	assert.Equal(t, 2, detail.Records)
	assert.Equal(t, "Warning", string(detail.Rows[0].Class))

	w = s.do(t, http.MethodGet, "/api/packers/Packer-1/history/0/sheet", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sheet := decode[map[string]any](t, w)
	assert.Equal(t, "HIMS-L3-F-03-02.30.03", sheet["documentNumber"])

	w = s.do(t, http.MethodGet, "/api/packers/Packer-1/history/7", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodGet, "/api/packers/Packer-1/history/x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPost, "/api/packers/Packer-9/history/fetch", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/packers/Packer-1/history/fetch", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode[controller.HistoryView](t, w).Notice, "Using cached data for Packer-1")

	w = s.do(t, http.MethodDelete, "/api/packers/Packer-1/history/cache", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodPost, "/api/dashboard/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)
	dash = decode[controller.DashboardView](t, w)
	assert.Equal(t, 1, dash.Rows[0].Count)
	assert.Equal(t, "Today", dash.Rows[0].DaysSince)
}

func TestPLCRequests(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/plc-requests", gin.H{"requestName": "", "signalName": "FT-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/plc-requests", gin.H{"requestName": "Raise limit", "signalName": "ft-101", "date": "2025-01-10", "time": "08:15"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[map[string]any](t, w)["id"].(string)

	w = s.do(t, http.MethodPut, "/api/plc-requests/"+id, gin.H{"requestName": "Raise limit", "signalName": "FT-102"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPut, "/api/plc-requests/missing", gin.H{"requestName": "x", "signalName": "y"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/plc-requests/"+id+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodPost, "/api/plc-requests/"+id+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/api/plc-requests?status=cancelled&q=raise", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[controller.RequestList](t, w)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "FT-102", list.Items[0].SignalName)
	assert.Equal(t, "u-1", list.Items[0].CancelledBy)

	w = s.do(t, http.MethodGet, "/api/plc-requests?status=active", nil)
	assert.Empty(t, decode[controller.RequestList](t, w).Items)
}

func TestWeighFeeder(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/weigh-feeder/submit", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/weigh-feeder/331WF1", gin.H{"binBefore": "100", "binAfter": "90", "totBefore": "200", "totAfter": "210"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	row := decode[controller.WeighFeederRow](t, w)
	require.NotNil(t, row.ErrorPercent)
	assert.Equal(t, 0.0, *row.ErrorPercent)

	w = s.do(t, http.MethodPut, "/api/weigh-feeder/NOPE", gin.H{"binBefore": "1"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPut, "/api/weigh-feeder/331WF2/binBefore", gin.H{"value": "12.5"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "12.5", decode[controller.WeighFeederRow](t, w).BinBefore)

	w = s.do(t, http.MethodPut, "/api/weigh-feeder/331WF2/binBefore", gin.H{"value": "12.5x"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "12.5", decode[controller.WeighFeederRow](t, w).BinBefore)

	w = s.do(t, http.MethodPut, "/api/weigh-feeder/331WF2/rate", gin.H{"value": "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/weigh-feeder/331WF2/binBefore", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/weigh-feeder/submit", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	select {
	case rep := <-s.reports:
		assert.Equal(t, map[string]float64{"331WF1": 0}, rep.Errors)
	case <-time.After(time.Second):
		t.Fatal("webhook was not called")
	}

	w = s.do(t, http.MethodPost, "/api/weigh-feeder/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rows := decode[map[string][]controller.WeighFeederRow](t, w)["rows"]
	assert.Empty(t, rows[0].BinBefore)
}

func TestSubscriptions(t *testing.T) {
	s := newTestServer(t)
	endpoint := "https://push.example.com/send/abc%3D"

	w := s.do(t, http.MethodPut, "/api/subscriptions", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())

	w = s.do(t, http.MethodPut, "/api/subscriptions", gin.H{"endpoint": endpoint, "p256dh": "k", "auth": "a"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodGet, "/api/subscriptions?endpoint="+endpoint, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[map[string]any](t, w)
	assert.Equal(t, endpoint, got["endpoint"])
	assert.Equal(t, "u-1", got["uid"])

	w = s.do(t, http.MethodDelete, "/api/subscriptions", gin.H{"endpoint": endpoint})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/subscriptions?endpoint="+endpoint, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodGet, "/api/subscriptions", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusOf(controller.ErrValidation))
	assert.Equal(t, http.StatusNotFound, statusOf(fmt.Errorf("x: %w", controller.ErrUnknownEquipment)))
	assert.Equal(t, http.StatusConflict, statusOf(controller.ErrAlreadyCancelled))
	assert.Equal(t, http.StatusBadGateway, statusOf(fmt.Errorf("%w: boom", controller.ErrRemote)))
	assert.Equal(t, http.StatusInternalServerError, statusOf(io.EOF))
}
