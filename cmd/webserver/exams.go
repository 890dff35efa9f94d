package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"learningassistant"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
)

type createExamRequest struct {
	QuestionBankID string `json:"question_bank_id"`
	Questions      int    `json:"questions"`
	Language       string `json:"language"`
	Seed           *int64 `json:"seed"`
}

type questionResponse struct {
	*learningassistant.QuestionView
	Terminal         bool                        `json:"terminal"`
	Total            int                         `json:"total_questions"`
	Advisory         *learningassistant.Advisory `json:"advisory,omitempty"`
	Language         learningassistant.Language  `json:"language,omitempty"`
	TranslationError string                      `json:"translation_error,omitempty"`
}

type answerResponse struct {
	learningassistant.Verdict
	Explanation string  `json:"explanation"`
	CorrectRate float64 `json:"correct_rate"`
	Advisory    string  `json:"advisory"` // "pending" or "unavailable"
}

func parseLanguage(code string) (learningassistant.Language, error) {
	if code == "" {
		return "", nil
	}
	lang, err := learningassistant.ParseLanguage(code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return lang, nil
}

func (s *Server) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	var req createExamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	lang, err := parseLanguage(req.Language)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Questions < 0 {
		writeError(w, fmt.Errorf("%w: questions must not be negative", errBadRequest))
		return
	}

	bank, err := s.db.LoadQuestions(r.Context(), req.QuestionBankID)
	if err != nil {
		writeError(w, err)
		return
	}
	opts := []learningassistant.SessionOption{learningassistant.WithLimit(req.Questions)}
	if req.Seed != nil {
		opts = append(opts, learningassistant.WithSeed(*req.Seed))
	}
	session, err := learningassistant.NewSession(bank, opts...)
	if err != nil {
		writeError(w, err)
		return
	}

	logger, err := learningassistant.NewLLMLogger(s.cfg.LogDir, session.ID(), session.TotalCount())
	if err != nil {
		log.Printf("Failed to create logger for sitting %s: %v", session.ID(), err)
	}
	s.sittings.Add(learningassistant.NewSitting(session, req.QuestionBankID, lang, logger))

	cookie := s.examCookie(r)
	cookie.Values["exam"] = examRef{ExamID: session.ID(), BankID: req.QuestionBankID}
	if err := cookie.Save(r, w); err != nil {
		log.Printf("Session save error: %v", err)
	}

	log.Printf("Created sitting %s over bank %s with %d questions", session.ID(), req.QuestionBankID, session.TotalCount())
	writeJSON(w, http.StatusCreated, map[string]any{
		"exam_id":         session.ID(),
		"total_questions": session.TotalCount(),
		"language":        lang,
	})
}

// examCookie returns the caller's cookie session. A cookie that fails to
// decode is logged and replaced by a fresh session.
func (s *Server) examCookie(r *http.Request) *sessions.Session {
	cookie, err := s.store.Get(r, cookieName)
	if err != nil {
		log.Printf("Discarding undecodable %s cookie from %s: %v", cookieName, r.RemoteAddr, err)
	}
	return cookie
}

func (s *Server) handleCurrentExam(w http.ResponseWriter, r *http.Request) {
	cookie := s.examCookie(r)
	ref, ok := cookie.Values["exam"].(examRef)
	if !ok {
		writeError(w, fmt.Errorf("no current exam: %w", learningassistant.ErrNotFound))
		return
	}
	if _, err := s.sittings.Get(ref.ExamID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"exam_id":          ref.ExamID,
		"question_bank_id": ref.BankID,
	})
}

func (s *Server) handleTotalQuestions(w http.ResponseWriter, r *http.Request) {
	var total int
	err := s.sittings.Do(chi.URLParam(r, "id"), func(st *learningassistant.Sitting) error {
		total = st.Session.TotalCount()
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"total_questions": total})
}

func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	var (
		resp questionResponse
		q    learningassistant.Question
		lang learningassistant.Language
	)
	err := s.sittings.Do(chi.URLParam(r, "id"), func(st *learningassistant.Sitting) error {
		resp.Total = st.Session.TotalCount()
		view, ok := st.Session.View()
		if !ok {
			resp.Terminal = true
			return nil
		}
		resp.QuestionView = &view
		q, _ = st.Session.CurrentQuestion()
		lang = st.Language
		if a, ok := st.Advisory(st.Session.Cursor()); ok {
			resp.Advisory = &a
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}

	// translation runs outside the sitting lock
	s.translate(r.Context(), &resp, q, lang)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) translate(ctx context.Context, resp *questionResponse, q learningassistant.Question, lang learningassistant.Language) {
	if lang == "" || s.assistant == nil || resp.QuestionView == nil {
		return
	}
	tq, err := s.assistant.Translate(ctx, q, lang)
	if err != nil {
		log.Printf("Failed to translate question %s to %s: %v", q.ID, lang, err)
		resp.TranslationError = err.Error()
		return
	}
	view := resp.QuestionView.Translated(tq)
	resp.QuestionView = &view
	resp.Language = lang
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserAnswers []string `json:"user_answers"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sel := learningassistant.SelectionFromStrings(req.UserAnswers)

	id := chi.URLParam(r, "id")
	var (
		resp answerResponse
		q    learningassistant.Question
		idx  int
		gen  int
	)
	err := s.sittings.Do(id, func(st *learningassistant.Sitting) error {
		v, err := st.Session.Submit(sel)
		if err != nil {
			return err
		}
		q, _ = st.Session.CurrentQuestion()
		idx = st.Session.Cursor()
		gen = st.Generation()
		st.Logger.LogVerdict(idx+1, v)

		resp.Verdict = v
		resp.Explanation = q.Explanation
		resp.CorrectRate = st.Session.CorrectRate()
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp.Advisory = "unavailable"
	if s.assistant != nil {
		resp.Advisory = "pending"
		go s.crossCheck(id, q, idx, gen)
	}
	writeJSON(w, http.StatusOK, resp)
}

// crossCheck stores the assistant's opinion on question idx once it arrives,
// unless the sitting was reset in the meantime.
func (s *Server) crossCheck(id string, q learningassistant.Question, idx, gen int) {
	a := learningassistant.CrossCheck(context.Background(), s.assistant, q, s.cfg.AdvisoryTimeout)
	err := s.sittings.Do(id, func(st *learningassistant.Sitting) error {
		if st.Generation() != gen {
			return nil
		}
		st.SetAdvisory(idx, a)
		return nil
	})
	if err != nil {
		learningassistant.VerboseLog("Dropping advisory for sitting %s: %v", id, err)
	}
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	err := s.sittings.Do(chi.URLParam(r, "id"), func(st *learningassistant.Sitting) error {
		return st.Session.Advance()
	})
	if err != nil {
		writeError(w, err)
		return
	}
	s.handleQuestion(w, r)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var total int
	err := s.sittings.Do(chi.URLParam(r, "id"), func(st *learningassistant.Sitting) error {
		st.Reset()
		total = st.Session.TotalCount()
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"total_questions": total, "cursor": 0})
}

func (s *Server) handleMark(w http.ResponseWriter, r *http.Request) {
	s.setMarker(w, r, true)
}

func (s *Server) handleUnmark(w http.ResponseWriter, r *http.Request) {
	s.setMarker(w, r, false)
}

func (s *Server) setMarker(w http.ResponseWriter, r *http.Request, on bool) {
	err := s.sittings.Do(chi.URLParam(r, "id"), func(st *learningassistant.Sitting) error {
		if on {
			return st.Session.Mark()
		}
		return st.Session.Unmark()
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"marked": on})
}

func (s *Server) handleLanguage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Language string `json:"language"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	lang, err := parseLanguage(req.Language)
	if err != nil {
		writeError(w, err)
		return
	}
	err = s.sittings.Do(chi.URLParam(r, "id"), func(st *learningassistant.Sitting) error {
		st.Language = lang
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]learningassistant.Language{"language": lang})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	var report learningassistant.Report
	err := s.sittings.Do(chi.URLParam(r, "id"), func(st *learningassistant.Sitting) error {
		report = st.Session.Report()
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if s.tutor != nil && r.URL.Query().Get("summary") != "false" {
		report = learningassistant.SummarizeReport(r.Context(), s.tutor, report)
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.sittings.Get(id); err != nil {
		writeError(w, err)
		return
	}
	s.sittings.Remove(id)

	cookie := s.examCookie(r)
	if ref, ok := cookie.Values["exam"].(examRef); ok && ref.ExamID == id {
		delete(cookie.Values, "exam")
		if err := cookie.Save(r, w); err != nil {
			log.Printf("Session save error: %v", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
