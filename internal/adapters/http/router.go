package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kirillkom/knowledge-hub/internal/core/domain"
	"github.com/kirillkom/knowledge-hub/internal/core/ports"
	"github.com/kirillkom/knowledge-hub/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	ingest  ports.IngestService
	query   ports.QueryService
	users   ports.UserRepository
	chunks  ports.ChunkStore
	tokens  *TokenManager
	metrics *metrics.HTTPServerMetrics
	log     *slog.Logger
}

func NewRouter(
	ingest ports.IngestService,
	query ports.QueryService,
	users ports.UserRepository,
	chunks ports.ChunkStore,
	tokens *TokenManager,
	m *metrics.HTTPServerMetrics,
	log *slog.Logger,
) *Router {
	return &Router{
		ingest:  ingest,
		query:   query,
		users:   users,
		chunks:  chunks,
		tokens:  tokens,
		metrics: m,
		log:     log,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /api/register", rt.register)
	mux.HandleFunc("POST /api/login", rt.login)
	mux.HandleFunc("POST /api/ingest", rt.requireAuth(rt.submitIngest))
	mux.HandleFunc("GET /api/ingest-jobs/{job_id}", rt.requireAuth(rt.getIngestJob))
	mux.HandleFunc("GET /api/docs", rt.requireAuth(rt.listDocuments))
	mux.HandleFunc("POST /api/query", rt.requireAuth(rt.answerQuery))
	mux.Handle("GET /metrics", rt.metrics.Handler())

	var handler http.Handler = mux
	handler = rt.metrics.Middleware(serviceName, handler)
	handler = accessLogMiddleware(rt.log, handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (rt *Router) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "hash password")
		return
	}

	user := &domain.User{Username: req.Username, PasswordHash: string(hash)}
	if err := rt.users.Create(r.Context(), user); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (rt *Router) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	user, err := rt.users.GetByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		// Same response for unknown user and wrong password.
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := rt.tokens.Issue(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (rt *Router) submitIngest(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user")
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	job, err := rt.ingest.Submit(r.Context(), userID, fileHeader.Filename, file)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (rt *Router) getIngestJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user")
		return
	}

	jobID := r.PathValue("job_id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job id is required")
		return
	}

	job, err := rt.ingest.Status(r.Context(), jobID, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user")
		return
	}

	docs, err := rt.chunks.ListDocuments(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if docs == nil {
		docs = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"documents": docs})
}

type queryRequest struct {
	Query   string `json:"query"`
	DocName string `json:"doc_name"`
}

func (rt *Router) answerQuery(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user")
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	start := time.Now()
	answer, err := rt.query.Answer(r.Context(), userID, req.DocName, req.Query)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	rt.metrics.RecordQuery(serviceName, answerMode(answer), len(answer.Sources), time.Since(start))
	writeJSON(w, http.StatusOK, answer)
}

func answerMode(answer *domain.Answer) string {
	for _, source := range answer.Sources {
		if strings.HasSuffix(source, "#summary") {
			return "summary"
		}
	}
	return "retrieval"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, mapErrorToHTTPStatus(err), err.Error())
}
