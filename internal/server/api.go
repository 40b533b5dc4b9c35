package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/skipper/internal/models"
	"github.com/desertthunder/skipper/internal/shared"
)

// ArtistStore is the artist table.
type ArtistStore interface {
	List(ctx context.Context) ([]models.Artist, error)
	Delete(ctx context.Context, id int64) error
}

// SubmissionStore is the submission table and its moderation workflow.
type SubmissionStore interface {
	Create(ctx context.Context, name, spotifyID string) (*models.Submission, error)
	List(ctx context.Context) ([]models.Submission, error)
	Manage(ctx context.Context, id int64, action models.Action) (*models.Submission, error)
}

// DailySongStore reads the song of the day.
type DailySongStore interface {
	Get(ctx context.Context) (*models.DailySong, error)
}

// DailySongRunner starts a background daily song selection.
type DailySongRunner interface {
	RunAsync() bool
}

// API serves the blocklist REST endpoints.
type API struct {
	Artists     ArtistStore
	Submissions SubmissionStore
	DailySong   DailySongStore
	Selector    DailySongRunner
	Auth        *Authenticator
	Logger      *log.Logger

	CronSecret  string
	SubmitRate  float64
	SubmitBurst int
	// TrustedProxies are passed to [RateLimit].
	TrustedProxies []string
}

// Register mounts every endpoint on r.
func (a *API) Register(r Router) {
	if a.Logger == nil {
		a.Logger = shared.NewLogger(nil)
	}
	admin := a.Auth.Middleware()

	r.Handle(http.MethodGet, "/api/artists", http.HandlerFunc(a.listArtists))
	r.Handle(http.MethodGet, "/api/daily-song", http.HandlerFunc(a.dailySong))
	r.Handle(http.MethodPost, "/api/submit", http.HandlerFunc(a.submit), RateLimit(a.SubmitRate, a.SubmitBurst, a.TrustedProxies...))
	r.Handle(http.MethodPost, "/api/admin/login", http.HandlerFunc(a.login))
	r.Handle(http.MethodGet, "/api/submissions", http.HandlerFunc(a.listSubmissions), admin)
	r.Handle(http.MethodPost, "/api/submissions/manage", http.HandlerFunc(a.manageSubmission), admin)
	r.Handle(http.MethodDelete, "/api/artists/{id}", http.HandlerFunc(a.deleteArtist), admin)
	r.Handle(http.MethodPost, "/run-daily-song-selection", http.HandlerFunc(a.runDailySong), CronSecret(a.CronSecret))
	r.Handle(http.MethodGet, "/healthz", http.HandlerFunc(a.health))
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

func (a *API) listArtists(w http.ResponseWriter, r *http.Request) {
	artists, err := a.Artists.List(r.Context())
	if err != nil {
		a.Logger.Error("error reading artists", "err", err)
		writeMessage(w, http.StatusInternalServerError, "Error loading artist list.")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]models.Artist{"artists": artists})
}

func (a *API) dailySong(w http.ResponseWriter, r *http.Request) {
	song, err := a.DailySong.Get(r.Context())
	if errors.Is(err, shared.ErrDailySongNotSelected) {
		writeMessage(w, http.StatusNotFound, "Song of the day has not been selected yet.")
		return
	}
	if err != nil {
		a.Logger.Error("error reading daily song", "err", err)
		writeMessage(w, http.StatusInternalServerError, "Error loading song of the day.")
		return
	}
	writeJSON(w, http.StatusOK, song)
}

type submitRequest struct {
	ArtistName  string `json:"artistName"`
	SpotifyLink string `json:"spotifyLink"`
}

type submitResponse struct {
	Message    string             `json:"message"`
	Submission *models.Submission `json:"submission"`
}

func (a *API) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	sub, err := models.NewSubmission(req.ArtistName, req.SpotifyLink)
	switch {
	case errors.Is(err, shared.ErrMissingArgument):
		writeMessage(w, http.StatusBadRequest, "Artist name and Spotify link are required.")
		return
	case errors.Is(err, shared.ErrInvalidSpotifyLink):
		writeMessage(w, http.StatusBadRequest, "Invalid Spotify artist link.")
		return
	case err != nil:
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := a.Submissions.Create(r.Context(), sub.Name, sub.SpotifyID)
	if err != nil {
		a.Logger.Error("error processing submission", "err", err)
		writeMessage(w, http.StatusInternalServerError, "Error processing submission.")
		return
	}

	a.Logger.Info("submission received", "id", created.ID, "artist", created.Name)
	writeJSON(w, http.StatusCreated, submitResponse{Message: "Submission received successfully!", Submission: created})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	token, err := a.Auth.Login(req.Username, req.Password)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (a *API) listSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := a.Submissions.List(r.Context())
	if err != nil {
		a.Logger.Error("error reading submissions", "err", err)
		writeMessage(w, http.StatusInternalServerError, "Error loading submissions.")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]models.Submission{"submissions": subs})
}

// flexID accepts a JSON number or a numeric string.
type flexID int64

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: submission id %q", shared.ErrInvalidArgument, s)
	}
	*f = flexID(n)
	return nil
}

type manageRequest struct {
	SubmissionID flexID `json:"submissionId"`
	Action       string `json:"action"`
}

func (a *API) manageSubmission(w http.ResponseWriter, r *http.Request) {
	var req manageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Submission ID and action are required.")
		return
	}
	if req.SubmissionID == 0 || strings.TrimSpace(req.Action) == "" {
		writeMessage(w, http.StatusBadRequest, "Submission ID and action are required.")
		return
	}

	action, err := models.ParseAction(req.Action)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid action.")
		return
	}

	id := int64(req.SubmissionID)
	if _, err := a.Submissions.Manage(r.Context(), id, action); err != nil {
		if errors.Is(err, shared.ErrSubmissionNotFound) {
			writeMessage(w, http.StatusNotFound, "Submission not found.")
			return
		}
		a.Logger.Error("error managing submission", "id", id, "err", err)
		writeMessage(w, http.StatusInternalServerError, "Error managing submission.")
		return
	}

	a.Logger.Info("submission managed", "id", id, "action", action)
	writeMessage(w, http.StatusOK, fmt.Sprintf("Submission %d %s.", id, action.PastTense()))
}

func (a *API) deleteArtist(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid artist ID.")
		return
	}

	if err := a.Artists.Delete(r.Context(), id); err != nil {
		if errors.Is(err, shared.ErrArtistNotFound) {
			writeMessage(w, http.StatusNotFound, "Artist not found.")
			return
		}
		a.Logger.Error("error deleting artist", "id", id, "err", err)
		writeMessage(w, http.StatusInternalServerError, "Error deleting artist.")
		return
	}

	a.Logger.Info("artist deleted", "id", id)
	writeMessage(w, http.StatusOK, fmt.Sprintf("Artist %d deleted successfully.", id))
}

func (a *API) runDailySong(w http.ResponseWriter, _ *http.Request) {
	if a.Selector == nil {
		http.Error(w, "Daily song selection is not configured.", http.StatusServiceUnavailable)
		return
	}
	a.Selector.RunAsync()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte("Daily song selection process started."))
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NewHandler builds the service router with the standard middleware stack.
func NewHandler(api *API, frontendURL string) *BasicRouter {
	if api.Logger == nil {
		api.Logger = shared.NewLogger(nil)
	}

	r := NewBasicRouter()
	r.Use(RequestID(), Logger(api.Logger), Recover(api.Logger), CORS(frontendURL))
	api.Register(r)
	return r
}
