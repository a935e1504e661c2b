package remote_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/dukex/flowdeck/pkg/recordstore"
	"github.com/dukex/flowdeck/pkg/recordstore/file"
	"github.com/dukex/flowdeck/pkg/recordstore/remote"
	"github.com/dukex/flowdeck/pkg/recordstore/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testProjectID = "project-42"
	testPublicKey = "pk_test"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// recordAPI serves the record API protocol on top of a local store.
func recordAPI(t *testing.T, backend recordstore.Client) http.Handler {
	t.Helper()

	mux := http.NewServeMux()

	reply := func(w http.ResponseWriter, v any, err error) {
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	decode := func(w http.ResponseWriter, r *http.Request, v any) bool {
		err := json.NewDecoder(r.Body).Decode(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)

			return false
		}

		return true
	}

	mux.HandleFunc("POST /tables/{table}/fetch", func(w http.ResponseWriter, r *http.Request) {
		var query recordstore.Query
		if decode(w, r, &query) {
			resp, err := backend.FetchRecords(r.Context(), r.PathValue("table"), query)
			reply(w, resp, err)
		}
	})

	mux.HandleFunc("POST /tables/{table}/records/{id}/fetch", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)

			return
		}

		var query recordstore.Query
		if decode(w, r, &query) {
			resp, err := backend.GetRecordByID(r.Context(), r.PathValue("table"), id, query)
			reply(w, resp, err)
		}
	})

	mux.HandleFunc("POST /tables/{table}/records", func(w http.ResponseWriter, r *http.Request) {
		var req recordstore.CreateRequest
		if decode(w, r, &req) {
			resp, err := backend.CreateRecord(r.Context(), r.PathValue("table"), req)
			reply(w, resp, err)
		}
	})

	mux.HandleFunc("PUT /tables/{table}/records", func(w http.ResponseWriter, r *http.Request) {
		var req recordstore.UpdateRequest
		if decode(w, r, &req) {
			resp, err := backend.UpdateRecord(r.Context(), r.PathValue("table"), req)
			reply(w, resp, err)
		}
	})

	mux.HandleFunc("DELETE /tables/{table}/records", func(w http.ResponseWriter, r *http.Request) {
		var req recordstore.DeleteRequest
		if decode(w, r, &req) {
			resp, err := backend.DeleteRecord(r.Context(), r.PathValue("table"), req)
			reply(w, resp, err)
		}
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(remote.HeaderProjectID) != testProjectID || r.Header.Get(remote.HeaderPublicKey) != testPublicKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)

			return
		}

		mux.ServeHTTP(w, r)
	})
}

func newClient(t *testing.T, baseURL string) *remote.Client {
	t.Helper()

	client, err := remote.NewClient(testLogger(), remote.Config{
		BaseURL:   baseURL,
		ProjectID: testProjectID,
		PublicKey: testPublicKey,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close(context.Background())
	})

	return client
}

func TestClient_RecordAPI(t *testing.T) {
	storetest.Run(t, func(t *testing.T) recordstore.Client {
		backend, err := file.NewStore(testLogger(), t.TempDir())
		require.NoError(t, err)

		server := httptest.NewServer(recordAPI(t, backend))
		t.Cleanup(server.Close)

		return newClient(t, server.URL)
	})
}

func TestClient_Unauthorized(t *testing.T) {
	backend, err := file.NewStore(testLogger(), t.TempDir())
	require.NoError(t, err)

	server := httptest.NewServer(recordAPI(t, backend))
	defer server.Close()

	client, err := remote.NewClient(testLogger(), remote.Config{BaseURL: server.URL, ProjectID: "other"})
	require.NoError(t, err)

	_, err = client.FetchRecords(context.Background(), recordstore.TableWorkflow, recordstore.Query{})
	require.Error(t, err)
	assert.ErrorIs(t, err, remote.ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), "401")
}

func TestClient_RetriesReadsButNotWrites(t *testing.T) {
	var fetches, creates atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			if r.URL.Path == "/tables/workflow_c/fetch" {
				if fetches.Add(1) == 1 {
					http.Error(w, "busy", http.StatusServiceUnavailable)

					return
				}

				_, _ = w.Write([]byte(`{"success":true,"data":[{"Id":1,"name_c":"Retried"}]}`))

				return
			}

			creates.Add(1)
			http.Error(w, "busy", http.StatusServiceUnavailable)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newClient(t, server.URL)

	resp, err := client.FetchRecords(context.Background(), recordstore.TableWorkflow, recordstore.Query{})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Retried", resp.Data[0][recordstore.ColName])
	assert.Equal(t, int32(2), fetches.Load())

	_, err = client.CreateRecord(context.Background(), recordstore.TableWorkflow, recordstore.CreateRequest{
		Records: []recordstore.Record{{recordstore.ColName: "Once"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, remote.ErrUnexpectedStatus)
	assert.Equal(t, int32(1), creates.Load())
}

func TestNewClient_Validation(t *testing.T) {
	_, err := remote.NewClient(testLogger(), remote.Config{BaseURL: "not a url", ProjectID: "p"})
	assert.Error(t, err)

	_, err = remote.NewClient(testLogger(), remote.Config{BaseURL: "https://records.example.com"})
	assert.Error(t, err)
}
