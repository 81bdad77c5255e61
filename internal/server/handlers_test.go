package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/farol/acervo/internal/answer"
	"github.com/farol/acervo/internal/chunker"
	"github.com/farol/acervo/internal/config"
	"github.com/farol/acervo/internal/embedding"
	"github.com/farol/acervo/internal/extract"
	"github.com/farol/acervo/internal/graph"
	"github.com/farol/acervo/internal/ingest"
	"github.com/farol/acervo/internal/models"
	"github.com/farol/acervo/internal/retrieval"
	"github.com/farol/acervo/internal/storage"
	"github.com/farol/acervo/internal/vector"
)

type scriptedGenerator struct {
	output string
	calls  int
	prompt string
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	g.prompt = prompt
	return g.output, nil
}

func newTestServer(t *testing.T, relations []models.Relation, gen *scriptedGenerator) *Server {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.NewSQLiteStorage(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := vector.NewStore(filepath.Join(dir, "vectors.idx"), embedding.NewMockEmbedder(32), db)

	var g *graph.Graph
	if relations != nil {
		g = graph.New(relations)
	}
	retriever := retrieval.NewRetriever(graph.NewFactIndex(g), store, 15)
	composer := answer.NewComposer(gen, 0)

	splitter, err := chunker.NewSplitter(100, 20)
	if err != nil {
		t.Fatal(err)
	}
	ingestor := ingest.NewIngestor(extract.NewExtractor(), splitter, store)

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return NewServer(retriever, composer, ingestor, db, store, cfg, zap.NewNop())
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, &scriptedGenerator{})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health returned %d", rec.Code)
	}
}

func TestIngestDocumentEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, &scriptedGenerator{})
	router := srv.Router()

	rec := postJSON(t, router, "/api/v1/documents", map[string]string{
		"title":   "note",
		"content": "machine maintenance happens every monday",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("ingest returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["id"] == "" || resp["status"] != "ingested" {
		t.Errorf("unexpected response: %v", resp)
	}

	// Document is retrievable by the returned ID.
	get := httptest.NewRecorder()
	router.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+resp["id"], nil))
	if get.Code != http.StatusOK {
		t.Errorf("get document returned %d", get.Code)
	}
}

func TestIngestDocumentRejectsBadBody(t *testing.T) {
	srv := newTestServer(t, nil, &scriptedGenerator{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", strings.NewReader("{broken"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestAskRequiresQuestion(t *testing.T) {
	srv := newTestServer(t, nil, &scriptedGenerator{})
	rec := postJSON(t, srv.Router(), "/api/v1/ask", map[string]string{"question": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for blank question, got %d", rec.Code)
	}
}

func TestAskWithNoEvidence(t *testing.T) {
	gen := &scriptedGenerator{output: "should not run"}
	srv := newTestServer(t, nil, gen)

	rec := postJSON(t, srv.Router(), "/api/v1/ask", map[string]string{"question": "anything at all?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("ask returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp askResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Answer != answer.NotFoundMessage {
		t.Errorf("expected not-found answer, got %q", resp.Answer)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times with zero evidence", gen.calls)
	}
	if resp.GraphAvailable {
		t.Error("no graph was loaded; flag should be false")
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(t, []models.Relation{
		{Source: "A", Label: "r", Target: "B"},
	}, &scriptedGenerator{})
	router := srv.Router()
	_ = postJSON(t, router, "/api/v1/documents", map[string]string{"title": "d", "content": "some stored content"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status returned %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["documents"].(float64) != 1 {
		t.Errorf("expected 1 document, got %v", resp["documents"])
	}
	if resp["facts"].(float64) != 1 {
		t.Errorf("expected 1 fact, got %v", resp["facts"])
	}
	if resp["graph_available"] != true {
		t.Error("expected graph_available true")
	}
}

func TestAskEndToEndPortuguese(t *testing.T) {
	gen := &scriptedGenerator{output: "Ana Souza é a gerente de produção."}
	srv := newTestServer(t, []models.Relation{
		{Source: "Ana Souza", Label: "é", Target: "gerente de produção"},
	}, gen)
	router := srv.Router()

	content := "Ana Souza é gerente de produção na fábrica de Recife.\n\n" +
		"A fábrica opera em três turnos diários.\n\n" +
		"O turno da noite começa às 22 horas e termina às 6 horas da manhã."
	ingestRec := postJSON(t, router, "/api/v1/documents", map[string]string{
		"title":   "fábrica",
		"content": content,
	})
	if ingestRec.Code != http.StatusCreated {
		t.Fatalf("ingest returned %d: %s", ingestRec.Code, ingestRec.Body.String())
	}

	rec := postJSON(t, router, "/api/v1/ask", map[string]string{
		"question": "quem é a gerente de produção?",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("ask returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp askResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Answer != "Ana Souza é a gerente de produção." {
		t.Errorf("unexpected answer: %q", resp.Answer)
	}
	if resp.FactCount != 1 {
		t.Errorf("expected 1 fact in evidence, got %d", resp.FactCount)
	}
	if resp.ChunkCount == 0 {
		t.Error("expected vector chunks in evidence")
	}
	if !resp.GraphAvailable || !resp.VectorAvailable {
		t.Errorf("expected both sources available: %+v", resp)
	}
	// The exact fact line reaches the generation prompt.
	if !strings.Contains(gen.prompt, "Ana Souza é gerente de produção.") {
		t.Errorf("fact line missing from prompt:\n%s", gen.prompt)
	}
}
