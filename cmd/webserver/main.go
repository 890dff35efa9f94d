package main

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"learningassistant"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"
)

const cookieName = "exam-session"

type Server struct {
	db        *learningassistant.BankDB
	store     *sessions.CookieStore
	sittings  *learningassistant.SittingRegistry
	assistant learningassistant.Assistant // nil when no API key is configured
	tutor     learningassistant.Tutor
	cfg       *learningassistant.Config
	adminHash []byte
}

// examRef is what the cookie remembers about the caller's sitting.
type examRef struct {
	ExamID string
	BankID string
}

func init() {
	gob.Register(examRef{})
}

func main() {
	cfg, err := learningassistant.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	learningassistant.SetVerbose(cfg.Verbose)

	ctx := context.Background()
	db, err := learningassistant.OpenBankDB(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	secret := cfg.SessionSecret
	if secret == "" {
		log.Printf("SESSION_SECRET not set, using an insecure development secret")
		secret = "insecure-development-secret"
	}

	adminHash := []byte(cfg.AdminPassHash)
	if len(adminHash) == 0 {
		log.Printf("ADMIN_PASS_HASH not set, admin password defaults to \"password\"")
		adminHash, err = bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("Failed to hash default admin password: %v", err)
		}
	}

	server := &Server{
		db:        db,
		store:     sessions.NewCookieStore([]byte(secret)),
		sittings:  learningassistant.NewSittingRegistry(1000),
		cfg:       cfg,
		adminHash: adminHash,
	}
	defer server.sittings.Close()

	if cfg.AssistantEnabled() {
		ai := learningassistant.NewOpenAIAssistant(cfg.OpenAI())
		if llmLog, err := learningassistant.NewLLMLogger(cfg.LogDir, "webserver", 0); err != nil {
			log.Printf("Failed to create LLM log: %v", err)
		} else {
			defer llmLog.Close()
			ai = ai.WithLogger(llmLog)
		}
		server.assistant = learningassistant.NewTranslationCache(ai)
		server.tutor = ai
	} else {
		log.Printf("OPENAI_API_KEY not set, assistant features disabled")
	}

	if cfg.BankDir != "" {
		if err := server.seedBanks(ctx, cfg.BankDir); err != nil {
			log.Printf("Failed to seed banks from %s: %v", cfg.BankDir, err)
		}
	}

	go server.pruneLoop(10*time.Minute, 2*time.Hour)

	s := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Printf("Starting server on port %s", cfg.Port)
	log.Fatal(s.ListenAndServe())
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/1", func(r chi.Router) {
		// the chat socket is long lived, so the timeout only covers plain requests
		r.Get("/exams/{id}/chat", s.handleChat)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/question-banks", s.handleListBanks)
			r.With(s.requireAdmin).Post("/question-banks", s.handleImportBank)
			r.With(s.requireAdmin).Delete("/question-banks/{id}", s.handleDeleteBank)

			r.Post("/exams", s.handleCreateExam)
			r.Get("/exams/current", s.handleCurrentExam)
			r.Route("/exams/{id}", func(r chi.Router) {
				r.Get("/total_questions", s.handleTotalQuestions)
				r.Get("/question", s.handleQuestion)
				r.Post("/answer", s.handleAnswer)
				r.Post("/next", s.handleNext)
				r.Post("/reset", s.handleReset)
				r.Post("/marker", s.handleMark)
				r.Delete("/marker", s.handleUnmark)
				r.Put("/language", s.handleLanguage)
				r.Get("/result", s.handleResult)
				r.Delete("/", s.handleDeleteExam)
			})
		})
	})
	return r
}

// requireAdmin checks HTTP basic credentials against the configured admin.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.cfg.AdminUser || bcrypt.CompareHashAndPassword(s.adminHash, []byte(pass)) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="admin"`)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) seedBanks(ctx context.Context, dir string) error {
	banks, err := s.db.ListBanks(ctx)
	if err != nil {
		return err
	}
	if len(banks) > 0 {
		return nil
	}
	questions, rejected, err := learningassistant.ReadBankDir(dir)
	if err != nil {
		return err
	}
	for _, re := range rejected {
		log.Printf("Skipping bank record: %v", re)
	}
	bank, err := s.db.CreateBank(ctx, dir, questions)
	if err != nil {
		return err
	}
	log.Printf("Seeded bank %s with %d questions", bank.ID, bank.QuestionCount)
	return nil
}

func (s *Server) pruneLoop(every, maxIdle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for range ticker.C {
		if n := s.sittings.Prune(maxIdle); n > 0 {
			log.Printf("Pruned %d idle sittings", n)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeError maps library errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, learningassistant.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, learningassistant.ErrEmptySelection),
		errors.Is(err, learningassistant.ErrUnknownLetter),
		errors.Is(err, learningassistant.ErrMalformedRecord),
		errors.Is(err, learningassistant.ErrTooManyOptions),
		errors.Is(err, learningassistant.ErrEmptyBank),
		errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, learningassistant.ErrAlreadySubmitted),
		errors.Is(err, learningassistant.ErrNotYetGraded),
		errors.Is(err, learningassistant.ErrSessionComplete):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		log.Printf("Request failed: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

var errBadRequest = errors.New("bad request")

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}
