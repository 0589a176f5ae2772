package server

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ChrisMcGann/CliqueKey/pkg/engine"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	h := NewHandler(zaptest.NewLogger(t), Config{Params: engine.DefaultParams()})
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv
}

// coelutingRequest carries two features eluting together at rt 5 and one
// alone at rt 14.
func coelutingRequest() CliqueRequest {
	type peak struct{ mz, center, height float64 }
	peaks := []peak{{200.1, 5, 1000}, {201.1, 5, 300}, {350.2, 14, 800}}

	req := CliqueRequest{Sample: "S1"}
	for i := 0; i < 20; i++ {
		scan := ScanJSON{RT: float64(i)}
		for _, p := range peaks {
			d := (float64(i) - p.center) / 1.5
			if v := p.height * math.Exp(-d*d); v > 1e-3 {
				scan.Points = append(scan.Points, [2]float64{p.mz, v})
			}
		}
		req.Scans = append(req.Scans, scan)
	}
	for i, p := range peaks {
		req.Features = append(req.Features, FeatureJSON{
			ID: 100 + i,
			MZ: p.mz, MZMin: p.mz - 0.005, MZMax: p.mz + 0.005,
			RT: p.center, RTMin: p.center - 3, RTMax: p.center + 3,
			Intensity: p.height,
		})
	}
	return req
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	resp, err := http.Post(url+"/api/cliques", "application/json", &buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status    string   `json:"status"`
		Assigners []string `json:"assigners"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ok", body.Status)
	require.Contains(t, body.Assigners, "loglik")
	require.Contains(t, body.Assigners, "dbscan")
}

func TestComputeCliques(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv.URL, coelutingRequest())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out CliqueResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "S1", out.Sample)
	require.Equal(t, 2, out.CliqueCount)
	require.Equal(t, 1, out.BackfilledCount)
	require.Empty(t, out.Removed)

	byRow := map[int]int{}
	for _, c := range out.Cliques {
		require.Equal(t, c.RowID-99, c.NodeID)
		byRow[c.RowID] = c.CliqueID
	}
	require.Equal(t, map[int]int{100: 1, 101: 1, 102: 2}, byRow)
}

func TestComputeCliquesRejectsBadInput(t *testing.T) {
	srv := newTestServer(t)

	unknown := coelutingRequest()
	unknown.Assigner = "nope"

	mismatch := coelutingRequest()
	mismatch.Features[0].MZMin = 300

	repeated := coelutingRequest()
	for i := range repeated.Features {
		repeated.Features[i].ID = 0
	}

	for _, tc := range []struct {
		name string
		body any
	}{
		{"malformed json", "{"},
		{"unknown assigner", unknown},
		{"invalid feature", mismatch},
		{"repeated row ids", repeated},
	} {
		t.Run(tc.name, func(t *testing.T) {
			resp := post(t, srv.URL, tc.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			require.NotEmpty(t, body["error"])
		})
	}
}

func TestRequestParams(t *testing.T) {
	off := false
	tol := 0.5
	req := CliqueRequest{Filter: &off, CliqueTol: &tol}

	defaults := engine.DefaultParams()
	defaults.Filter = true
	p := req.params(defaults)

	require.False(t, p.Filter)
	require.Equal(t, 0.5, p.CliqueTolerance)
	require.Equal(t, defaults.Duplicates, p.Duplicates)
}
