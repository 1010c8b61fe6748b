package es

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"philo-chat-go/internal/config"
	"philo-chat-go/internal/model"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeES struct {
	mu       sync.Mutex
	created  bool
	indexed  map[string]model.MessageDocument
	lastBody map[string]interface{}
	deletes  int
}

// matches 应用 delete_by_query 中的 term 过滤条件。
func matches(doc model.MessageDocument, filters []interface{}) bool {
	for _, f := range filters {
		term := f.(map[string]interface{})["term"].(map[string]interface{})
		for field, want := range term {
			var got string
			switch field {
			case "username":
				got = doc.Username
			case "chat_name":
				got = doc.ChatName
			}
			if got != want {
				return false
			}
		}
	}
	return true
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodHead && r.URL.Path == "/chat_messages":
		if f.created {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut && r.URL.Path == "/chat_messages":
		f.created = true
		_, _ = io.WriteString(w, `{"acknowledged":true}`)
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/chat_messages/_doc/"):
		var doc model.MessageDocument
		_ = json.NewDecoder(r.Body).Decode(&doc)
		f.indexed[strings.TrimPrefix(r.URL.Path, "/chat_messages/_doc/")] = doc
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	case r.Method == http.MethodPost && r.URL.Path == "/chat_messages/_delete_by_query":
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		filters := body["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
		deleted := 0
		for id, doc := range f.indexed {
			if matches(doc, filters) {
				delete(f.indexed, id)
				deleted++
			}
		}
		f.deletes++
		_, _ = io.WriteString(w, fmt.Sprintf(`{"deleted":%d}`, deleted))
	case strings.HasSuffix(r.URL.Path, "/_search"):
		f.lastBody = map[string]interface{}{}
		_ = json.NewDecoder(r.Body).Decode(&f.lastBody)
		_, _ = io.WriteString(w, `{"hits":{"hits":[{"_score":1.5,"_source":{"message_id":"m1","username":"ada","chat_name":"c1","philosopher":"Socrates","role":"assistant","author":"Socrates","content":"Virtue is knowledge.","timestamp":"2024-01-02T03:04:05Z"}}]}}`)
	default:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"unexpected"}`)
	}
}

func newClient(t *testing.T) (*Client, *fakeES) {
	t.Helper()
	fake := &fakeES{indexed: map[string]model.MessageDocument{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := InitES(config.ElasticsearchConfig{Addresses: srv.URL, IndexName: "chat_messages"})
	require.NoError(t, err)
	return c, fake
}

func TestInitESCreatesIndex(t *testing.T) {
	_, fake := newClient(t)
	assert.True(t, fake.created)
}

func TestIndexMessage(t *testing.T) {
	c, fake := newClient(t)
	doc := model.MessageDocument{MessageID: "m1", Username: "ada", ChatName: "c1", Content: "hello", Timestamp: time.Now().UTC()}
	require.NoError(t, c.IndexMessage(context.Background(), doc))

	got, ok := fake.indexed["m1"]
	require.True(t, ok)
	assert.Equal(t, "hello", got.Content)
	assert.Equal(t, "ada", got.Username)
}

func TestSearchMessagesFiltersByUser(t *testing.T) {
	c, fake := newClient(t)
	results, err := c.SearchMessages(context.Background(), "ada", "virtue", 5)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].ChatName)
	assert.Equal(t, "Virtue is knowledge.", results[0].Content)
	assert.InDelta(t, 1.5, results[0].Score, 1e-9)

	filter := fake.lastBody["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].(map[string]interface{})
	assert.Equal(t, "ada", filter["term"].(map[string]interface{})["username"])
	assert.EqualValues(t, 5, fake.lastBody["size"])
}

func TestDeleteByChatAndUser(t *testing.T) {
	c, fake := newClient(t)
	ctx := context.Background()
	for _, doc := range []model.MessageDocument{
		{MessageID: "a1", Username: "ada", ChatName: "c1", Content: "one"},
		{MessageID: "a2", Username: "ada", ChatName: "c2", Content: "two"},
		{MessageID: "b1", Username: "bob", ChatName: "c1", Content: "three"},
	} {
		require.NoError(t, c.IndexMessage(ctx, doc))
	}

	require.NoError(t, c.DeleteByChat(ctx, "ada", "c1"))
	assert.NotContains(t, fake.indexed, "a1")
	assert.Contains(t, fake.indexed, "a2")
	assert.Contains(t, fake.indexed, "b1")

	require.NoError(t, c.DeleteByUser(ctx, "ada"))
	assert.NotContains(t, fake.indexed, "a2")
	assert.Contains(t, fake.indexed, "b1")
	assert.Equal(t, 2, fake.deletes)
}
