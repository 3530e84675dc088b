package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warehouse/pkg/inventory"
)

func newTestServer(t *testing.T, policy inventory.Policy) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics, err := inventory.NewMetrics(reg)
	require.NoError(t, err)

	svc := inventory.NewService(inventory.New(inventory.WithMetrics(metrics)))
	t.Cleanup(svc.Close)

	ts := httptest.NewServer(New(svc, reg, policy, nil).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func decodeItem(t *testing.T, body string) inventory.Item {
	t.Helper()
	var item inventory.Item
	require.NoError(t, json.Unmarshal([]byte(body), &item))
	return item
}

func TestServer_ProductLifecycle(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, inventory.PolicyEvict)

	resp, body := do(t, http.MethodPost, ts.URL+"/api/products", `{"id":13,"name":"hammer","stock":10,"day":1,"demand":2}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, inventory.Item{ID: 13, Name: "hammer", Stock: 10, LastPurchaseDay: 1, Demand: 2, Sector: 3}, decodeItem(t, body))

	resp, _ = do(t, http.MethodPost, ts.URL+"/api/products/restock", `{"id":13,"amount":5}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, ts.URL+"/api/products/purchase", `{"id":13,"day":4,"amount":3}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = do(t, http.MethodGet, ts.URL+"/api/products?id=13", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, inventory.Item{ID: 13, Name: "hammer", Stock: 12, LastPurchaseDay: 4, Demand: 5, Sector: 3}, decodeItem(t, body))

	resp, _ = do(t, http.MethodDelete, ts.URL+"/api/products?id=13", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = do(t, http.MethodGet, ts.URL+"/api/products?id=13", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"product not found"}`, body)
}

func TestServer_AddPolicy(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, inventory.PolicySpill)
	for _, id := range []string{"10", "20", "30", "40", "50"} {
		resp, body := do(t, http.MethodPost, ts.URL+"/api/products", `{"id":`+id+`,"name":"p","stock":1,"day":1,"demand":1}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	}

	_, body := do(t, http.MethodPost, ts.URL+"/api/products", `{"id":60,"name":"spilled","stock":1,"day":1,"demand":1}`)
	assert.Equal(t, 1, decodeItem(t, body).Sector, "server default policy is spill")

	_, body = do(t, http.MethodPost, ts.URL+"/api/products", `{"id":70,"name":"evicting","stock":1,"day":1,"demand":1,"policy":"evict"}`)
	assert.Equal(t, 0, decodeItem(t, body).Sector)

	resp, _ := do(t, http.MethodGet, ts.URL+"/api/products?id=10", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "root of sector 0 was evicted")
}

func TestServer_Validation(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "")
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"invalid json", http.MethodPost, "/api/products", `{`, http.StatusBadRequest},
		{"missing id", http.MethodPost, "/api/products", `{"name":"a"}`, http.StatusBadRequest},
		{"missing name", http.MethodPost, "/api/products", `{"id":1}`, http.StatusBadRequest},
		{"name with spaces", http.MethodPost, "/api/products", `{"id":1,"name":"a b"}`, http.StatusBadRequest},
		{"negative stock", http.MethodPost, "/api/products", `{"id":1,"name":"a","stock":-1}`, http.StatusBadRequest},
		{"unknown policy", http.MethodPost, "/api/products", `{"id":1,"name":"a","policy":"lru"}`, http.StatusBadRequest},
		{"missing query id", http.MethodGet, "/api/products", "", http.StatusBadRequest},
		{"bad query id", http.MethodDelete, "/api/products?id=abc", "", http.StatusBadRequest},
		{"negative restock", http.MethodPost, "/api/products/restock", `{"id":1,"amount":-2}`, http.StatusBadRequest},
		{"zero purchase", http.MethodPost, "/api/products/purchase", `{"id":1,"day":1,"amount":0}`, http.StatusBadRequest},
		{"wrong method", http.MethodPut, "/api/products", "", http.StatusMethodNotAllowed},
		{"get restock", http.MethodGet, "/api/products/restock", "", http.StatusMethodNotAllowed},
		{"post sectors", http.MethodPost, "/api/sectors", "", http.StatusMethodNotAllowed},
		{"bad script", http.MethodPost, "/api/script", "fly 1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, tt.method, ts.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, body)
		})
	}
}

func TestServer_ScriptAndViews(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "")

	resp, body := do(t, http.MethodPost, ts.URL+"/api/script", "add 13 X 10 1 2\nadd 23 Y 5 1 9\nadd 33 Z 5 1 1\n")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.JSONEq(t, `{"applied":3}`, body)

	resp, body = do(t, http.MethodGet, ts.URL+"/api/sectors", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap inventory.Snapshot
	require.NoError(t, json.Unmarshal([]byte(body), &snap))
	require.Len(t, snap.Sectors, inventory.SectorCount)
	assert.Equal(t, 3, snap.Sectors[3].Size)
	assert.Equal(t, 33, snap.Sectors[3].Items[0].ID)
	assert.Equal(t, 3, snap.Stats.Products)

	resp, body = do(t, http.MethodGet, ts.URL+"/api/warehouse", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
	assert.Contains(t, body, "\t[(33,Z,5,1,1), (23,Y,5,1,9), (13,X,10,1,2)]\n")
}

func TestServer_ScriptTooLarge(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "")

	var body strings.Builder
	body.WriteString("add 3 a 5 1 1\n")
	for body.Len() < maxScriptBytes {
		body.WriteString("# padding\n")
	}
	body.WriteString("restock 3 100\n")

	resp, out := do(t, http.MethodPost, ts.URL+"/api/script", body.String())
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode, out)

	resp, _ = do(t, http.MethodGet, ts.URL+"/api/products?id=3", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "nothing from an oversized script is applied")
}

func TestServer_ScriptValidation(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "")

	resp, body := do(t, http.MethodPost, ts.URL+"/api/script", "add 3 a 5 1 1\nrestock 3 -100\nadd 4 b 5 1 1\npurchase 4 2 -7\n")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"line 2: restock: amount must not be negative"}`, body)

	resp, _ = do(t, http.MethodGet, ts.URL+"/api/products?id=3", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "a rejected script applies nothing")
}

func TestServer_HealthAndMetrics(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "")

	resp, body := do(t, http.MethodGet, ts.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)

	do(t, http.MethodPost, ts.URL+"/api/products", `{"id":1,"name":"a","stock":1,"day":1,"demand":1}`)
	resp, body = do(t, http.MethodGet, ts.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `warehouse_admissions_total{placement="natural"} 1`)
	assert.Contains(t, body, `warehouse_sector_size{sector="1"} 1`)
}
