package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"learningassistant"

	"github.com/go-chi/chi/v5"
)

type importRequest struct {
	Name      string                             `json:"name"`
	Questions []learningassistant.QuestionRecord `json:"questions"`
}

type rejectedRecord struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

type importResponse struct {
	Bank     *learningassistant.Bank `json:"bank"`
	Rejected []rejectedRecord        `json:"rejected"`
}

func (s *Server) handleListBanks(w http.ResponseWriter, r *http.Request) {
	banks, err := s.db.ListBanks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, banks)
}

// handleImportBank stores the valid records of the request as a new bank and
// reports the rejected ones.
func (s *Server) handleImportBank(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, fmt.Errorf("%w: name is required", errBadRequest))
		return
	}

	questions, rejected := learningassistant.LoadQuestions(req.Questions)
	resp := importResponse{Rejected: make([]rejectedRecord, 0, len(rejected))}
	for _, re := range rejected {
		resp.Rejected = append(resp.Rejected, rejectedRecord{Index: re.Index, Error: re.Err.Error()})
	}
	if len(questions) == 0 {
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	bank, err := s.db.CreateBank(r.Context(), req.Name, questions)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Printf("Imported bank %s (%s): %d questions, %d rejected", bank.ID, bank.Name, bank.QuestionCount, len(rejected))
	resp.Bank = bank
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleDeleteBank(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.db.DeleteBank(r.Context(), id); err != nil {
		if !errors.Is(err, learningassistant.ErrNotFound) {
			log.Printf("Failed to delete bank %s: %v", id, err)
		}
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
