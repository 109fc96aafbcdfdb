package http

import (
	"net/http"

	"trivia-service/internal/domain"
)

// questionView is what clients see of a pending question; the correct answer stays server-side.
type questionView struct {
	Question      string   `json:"question"`
	AnswerOptions []string `json:"answer_options"`
	SecretKey     string   `json:"secret_key"`
}

func newQuestionView(q domain.TriviaQuestion) questionView {
	return questionView{Question: q.Question, AnswerOptions: q.Options, SecretKey: q.SecretKey}
}

type submitRequest struct {
	Answer    string `json:"answer"`
	Username  string `json:"username"`
	SecretKey string `json:"secret_key"`
}

func (s submitRequest) submission() domain.AnswerSubmission {
	return domain.AnswerSubmission{Answer: s.Answer, Username: s.Username, SecretKey: s.SecretKey}
}

func (h *Handler) nextQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := h.trivia.NextQuestion(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuestionView(q))
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(r, w, &req); err != nil {
		h.writeError(w, r, malformed(err))
		return
	}
	res, err := h.trivia.Reconcile(r.Context(), req.submission())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
