package audit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-insights/internal/models"
)

const esInfo = `{"version":{"number":"8.11.0","build_flavor":"default"},"tagline":"You Know, for Search"}`

// newESClient answers the client's product check itself and hands every other request to handler.
func newESClient(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		if r.Method == http.MethodGet && r.URL.Path == "/" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(esInfo))
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client
}

func TestElasticsearchSink_Record(t *testing.T) {
	entry := NewEntry("biz-1", "smart_chat_query", "revenue", map[string]interface{}{"timeframe": "today"})

	var gotPath string
	var gotDoc models.AuditEntry
	client := newESClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotDoc)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	err := NewElasticsearchSink(client, "crm-audit").Record(context.Background(), entry)

	require.NoError(t, err)
	assert.Equal(t, "/crm-audit/_doc/"+entry.ID, gotPath)
	assert.Equal(t, "biz-1", gotDoc.BusinessID)
	assert.Equal(t, "revenue", gotDoc.Resource)
}

func TestElasticsearchSink_ErrorStatus(t *testing.T) {
	client := newESClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"mapper_parsing_exception"}`))
	})

	err := NewElasticsearchSink(client, "crm-audit").Record(context.Background(), NewEntry("biz-1", "a", "r", nil))

	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "400"))
}

func TestPostgresSink_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	entry := NewEntry("biz-1", "create_customer", "customer", map[string]interface{}{"customerId": "c-1"})

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(entry.ID, "biz-1", "create_customer", "customer", `{"customerId":"c-1"}`, entry.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewPostgresSink(db).Record(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNopSink(t *testing.T) {
	assert.NoError(t, NopSink{}.Record(context.Background(), models.AuditEntry{}))
}
