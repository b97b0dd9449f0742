package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ruteri/driving-tests-backend/interfaces"
	"github.com/ruteri/driving-tests-backend/metrics"
	"github.com/ruteri/driving-tests-backend/scoring"
)

const (
	// maxBodySize is the maximum allowed request body size (64KB).
	maxBodySize = 64 * 1024

	// maxCredentialLength bounds passwords accepted at sign-up so they always
	// fit a single RSA-OAEP block.
	maxCredentialLength = 128

	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100

	healthyMessage = "Drive-tests is working and healthy"
)

// QuizService is the set of flows served over HTTP. *scoring.Coordinator implements it.
type QuizService interface {
	SignUp(ctx context.Context, key interfaces.UserKey, credential string) (scoring.Profile, error)
	SignIn(ctx context.Context, key interfaces.UserKey, credential string) (scoring.Profile, error)
	DeleteAccount(ctx context.Context, key interfaces.UserKey, credential string) error
	NextItem(ctx context.Context) (interfaces.QuizItem, error)
	CheckAnswer(ctx context.Context, itemID int64, chosen int) (interfaces.GradeResult, error)
	SubmitAnswer(ctx context.Context, key interfaces.UserKey, credential string, itemID int64, chosen int) (interfaces.SubmissionOutcome, error)
	Leaderboard(ctx context.Context, n int) ([]interfaces.LeaderboardEntry, error)
	Standing(ctx context.Context, key interfaces.UserKey, credential string) (interfaces.LeaderboardEntry, error)
}

var _ QuizService = (*scoring.Coordinator)(nil)

// RequestError provides structured error information for HTTP responses.
// Message is what the client sees; Err is only logged.
type RequestError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// UserForm identifies a user and carries their password.
type UserForm struct {
	Name       string `json:"name"`
	SecondName string `json:"second_name"`
	Password   string `json:"password"`
}

// Key returns the user key named by the form.
func (f UserForm) Key() interfaces.UserKey {
	return interfaces.NewUserKey(f.Name, f.SecondName)
}

// AnswerForm names a quiz item and the chosen answer.
type AnswerForm struct {
	TestID   int64 `json:"test_id"`
	AnswerID int   `json:"answer_id"`
}

// AnswerWithUserForm is the body of an authenticated submission.
type AnswerWithUserForm struct {
	User   UserForm   `json:"user"`
	Answer AnswerForm `json:"answer"`
}

// TestResponse is a quiz item as served to clients. The correct answer is never included.
type TestResponse struct {
	ID          int64    `json:"id"`
	Level       string   `json:"level"`
	Description string   `json:"description"`
	Answers     []string `json:"answers"`
	Image       []byte   `json:"image"`
}

// CheckResponse is the result of anonymous grading.
type CheckResponse struct {
	Correct     bool   `json:"correct"`
	Description string `json:"description"`
	Scores      uint32 `json:"scores"`
}

// SubmissionResponse is the result of an authenticated submission.
type SubmissionResponse struct {
	interfaces.SubmissionOutcome
	Description string `json:"description"`
}

// Handler serves the quiz API on top of a QuizService.
type Handler struct {
	service  QuizService
	recorder *metrics.Recorder
	log      *slog.Logger
}

// NewHandler creates a new HTTP request handler. recorder may be nil.
func NewHandler(service QuizService, recorder *metrics.Recorder, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		service:  service,
		recorder: recorder,
		log:      log,
	}
}

func describe(correct bool) string {
	if correct {
		return "The answer is correct"
	}
	return "The answer is incorrect"
}

// HandleSignUp registers a new user.
//
// URL format: POST /user
// Request body: {"name", "second_name", "password"}
// Responses: 201 with the profile, 208 if the user already exists.
func (h *Handler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var form UserForm
	if err := decodeBody(w, r, &form); err != nil {
		h.writeError(w, err)
		return
	}
	if form.Password == "" || len(form.Password) > maxCredentialLength {
		h.recorder.SignUp("invalid")
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Message: "Invalid password"})
		return
	}

	key := form.Key()
	profile, err := h.service.SignUp(r.Context(), key, form.Password)
	switch {
	case errors.Is(err, interfaces.ErrDuplicateUser):
		h.recorder.SignUp("duplicate")
		h.log.Debug("User already registered", "user", key.String())
		w.WriteHeader(http.StatusAlreadyReported)
		return
	case errors.Is(err, interfaces.ErrInvalidUserKey):
		h.recorder.SignUp("invalid")
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Message: "Name and second name are required", Err: err})
		return
	case err != nil:
		h.recorder.SignUp("error")
		h.writeError(w, err)
		return
	}

	h.recorder.SignUp("created")
	h.log.Info("Registered new user", "user", key.String())
	writeJSON(w, http.StatusCreated, profile)
}

// HandleSignIn checks a user's password and returns their profile.
//
// URL format: POST /user/signin
// Responses: 200 with the profile, 400 for an unknown user, 403 for a wrong password.
func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var form UserForm
	if err := decodeBody(w, r, &form); err != nil {
		h.writeError(w, err)
		return
	}

	profile, err := h.service.SignIn(r.Context(), form.Key(), form.Password)
	if err != nil {
		h.recorder.SignIn(authOutcome(err))
		h.writeError(w, err)
		return
	}

	h.recorder.SignIn("ok")
	writeJSON(w, http.StatusOK, profile)
}

// HandleDeleteAccount removes the authenticated user.
//
// URL format: DELETE /user
func (h *Handler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	var form UserForm
	if err := decodeBody(w, r, &form); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.service.DeleteAccount(r.Context(), form.Key(), form.Password); err != nil {
		h.writeError(w, err)
		return
	}

	h.log.Info("Removed user", "user", form.Key().String())
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetTest returns a random quiz item.
//
// URL format: GET /test
// Responses: 200 with the item, 404 if the catalog is empty.
func (h *Handler) HandleGetTest(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.NextItem(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TestResponse{
		ID:          item.ID,
		Level:       item.Difficulty.String(),
		Description: item.Prompt,
		Answers:     item.Choices,
		Image:       item.Media,
	})
}

// HandleCheckAnswer grades an answer without crediting anyone.
//
// URL format: GET /check_answer?test_id=<id>&answer_id=<index>
func (h *Handler) HandleCheckAnswer(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	testID, err := strconv.ParseInt(query.Get("test_id"), 10, 64)
	if err != nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Message: "Invalid test_id", Err: err})
		return
	}
	answerID, err := strconv.Atoi(query.Get("answer_id"))
	if err != nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Message: "Invalid answer_id", Err: err})
		return
	}

	result, err := h.service.CheckAnswer(r.Context(), testID, answerID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CheckResponse{
		Correct:     result.Correct,
		Description: describe(result.Correct),
		Scores:      result.Awarded,
	})
}

// HandleCheckTest grades an authenticated user's answer and credits the score.
//
// URL format: POST /check_test
// Request body: {"user": {...}, "answer": {"test_id", "answer_id"}}
// Responses: 200 with the outcome, 400 for an unknown user, 403 for a wrong
// password, 404 for a missing item.
func (h *Handler) HandleCheckTest(w http.ResponseWriter, r *http.Request) {
	var form AnswerWithUserForm
	if err := decodeBody(w, r, &form); err != nil {
		h.writeError(w, err)
		return
	}

	key := form.User.Key()
	outcome, err := h.service.SubmitAnswer(r.Context(), key, form.User.Password, form.Answer.TestID, form.Answer.AnswerID)
	if err != nil {
		var authErr *interfaces.AuthError
		if errors.As(err, &authErr) {
			h.recorder.SubmissionFailed(authOutcome(err))
		} else {
			h.recorder.SubmissionFailed("grading_error")
		}
		h.writeError(w, err)
		return
	}

	h.recorder.Submission(outcome.Correct, outcome.AwardedScore)
	writeJSON(w, http.StatusOK, SubmissionResponse{
		SubmissionOutcome: outcome,
		Description:       describe(outcome.Correct),
	})
}

// HandleLeaderboard returns the top identities by score.
//
// URL format: GET /leaderboard?limit=<n>
func (h *Handler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Message: "Invalid limit", Err: err})
			return
		}
		limit = min(n, maxLeaderboardLimit)
	}

	entries, err := h.service.Leaderboard(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleStanding returns the authenticated user's rank and score.
//
// URL format: POST /leaderboard/me
func (h *Handler) HandleStanding(w http.ResponseWriter, r *http.Request) {
	var form UserForm
	if err := decodeBody(w, r, &form); err != nil {
		h.writeError(w, err)
		return
	}

	entry, err := h.service.Standing(r.Context(), form.Key(), form.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleHealthy reports that the API is up.
func (h *Handler) HandleHealthy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyMessage)
}

func authOutcome(err error) string {
	switch {
	case errors.Is(err, interfaces.ErrUnknownUser):
		return "unknown_user"
	case errors.Is(err, interfaces.ErrBadCredential):
		return "bad_credential"
	default:
		return "error"
	}
}

// statusFor maps an error kind to a response status and client-facing message.
func statusFor(err error) (int, string) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode, reqErr.Message
	}

	switch {
	case errors.Is(err, interfaces.ErrUnknownUser):
		return http.StatusBadRequest, "Unknown user"
	case errors.Is(err, interfaces.ErrBadCredential):
		return http.StatusForbidden, "Wrong password"
	case errors.Is(err, interfaces.ErrInvalidUserKey):
		return http.StatusBadRequest, "Name and second name are required"
	case errors.Is(err, interfaces.ErrEmptyCatalog):
		return http.StatusNotFound, "No tests available"
	case errors.Is(err, interfaces.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "Request cancelled"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", "err", err, "status", status)
	} else {
		h.log.Debug("Request rejected", "err", err, "status", status)
	}
	http.Error(w, message, status)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &RequestError{StatusCode: http.StatusBadRequest, Message: "Invalid request body", Err: err}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
