// Package providersim is a local stand-in for the SMS provider's Messages API.
// It accepts sends and answers with signed status callbacks, so the service can
// be exercised end to end without a provider account.
package providersim

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aniladanir/retry"
	"github.com/aniladanir/review-messenger-service/internal/provider"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// InvalidNumber is rejected at send time like the provider's magic test number.
const InvalidNumber = "+15005550001"

const undeliveredErrorCode = "30003"

type Config struct {
	AccountSID string
	AuthToken  string
	// CallbackDelay is the pause before each status callback.
	CallbackDelay time.Duration
	// Undeliverable numbers are accepted but reported undelivered.
	Undeliverable []string
}

type Message struct {
	SID            string `json:"sid"`
	AccountSID     string `json:"account_sid"`
	To             string `json:"to"`
	From           string `json:"from"`
	Body           string `json:"body"`
	Status         string `json:"status"`
	StatusCallback string `json:"-"`
	DateCreated    string `json:"date_created"`
}

type callback struct {
	url  string
	form url.Values
}

type Simulator struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger

	mu       sync.Mutex
	messages map[string]Message
	order    []string

	callbacks chan callback
}

func New(cfg Config, logger *slog.Logger) *Simulator {
	return &Simulator{
		cfg:       cfg,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
		messages:  make(map[string]Message),
		callbacks: make(chan callback, 1024),
	}
}

// Handler returns a router serving the simulator routes.
func (s *Simulator) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	s.Routes(r)
	return r
}

// Routes mounts the provider API and the admin extras.
func (s *Simulator) Routes(r chi.Router) {
	r.Route("/2010-04-01/Accounts/{AccountSid}", func(r chi.Router) {
		r.Use(s.basicAuth)

		r.Post("/Messages.json", s.CreateMessage)
		r.Get("/Messages/{MessageSid}.json", s.GetMessage)
	})

	r.Get("/admin/messages", s.AdminListMessages)
	r.Post("/admin/inbound", s.AdminInbound)
}

// Run posts queued callbacks in order until ctx is done.
func (s *Simulator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cb := <-s.callbacks:
			if s.cfg.CallbackDelay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(s.cfg.CallbackDelay):
				}
			}
			s.post(ctx, cb)
		}
	}
}

func (s *Simulator) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		valid := ok && user != "" && pass != "" && user == chi.URLParam(r, "AccountSid")
		if valid && s.cfg.AccountSID != "" {
			valid = user == s.cfg.AccountSID && pass == s.cfg.AuthToken
		}
		if !valid {
			w.Header().Set("WWW-Authenticate", `Basic realm="Provider API"`)
			writeError(w, http.StatusUnauthorized, 20003, "Authenticate")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CreateMessage handles POST /2010-04-01/Accounts/{AccountSid}/Messages.json
func (s *Simulator) CreateMessage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, 21601, "Unable to parse form data: "+err.Error())
		return
	}

	to := r.PostForm.Get("To")
	from := r.PostForm.Get("From")
	body := r.PostForm.Get("Body")

	switch {
	case to == "":
		writeError(w, http.StatusBadRequest, 21604, "A 'To' phone number is required.")
		return
	case to == InvalidNumber:
		writeError(w, http.StatusBadRequest, 21211, fmt.Sprintf("The 'To' number %s is not a valid phone number.", to))
		return
	case from == "":
		writeError(w, http.StatusBadRequest, 21603, "A 'From' phone number is required.")
		return
	case body == "":
		writeError(w, http.StatusBadRequest, 21602, "Message body is required.")
		return
	}

	msg := Message{
		SID:            provider.NewMessageSID(),
		AccountSID:     chi.URLParam(r, "AccountSid"),
		To:             to,
		From:           from,
		Body:           body,
		Status:         "queued",
		StatusCallback: r.PostForm.Get("StatusCallback"),
		DateCreated:    time.Now().UTC().Format(time.RFC1123Z),
	}

	s.mu.Lock()
	s.messages[msg.SID] = msg
	s.order = append(s.order, msg.SID)
	s.mu.Unlock()

	final := "delivered"
	if slices.Contains(s.cfg.Undeliverable, to) {
		final = "undelivered"
	}
	s.advance(msg.SID, "sent")
	s.advance(msg.SID, final)

	writeJSON(w, http.StatusCreated, msg)
}

// GetMessage handles GET /2010-04-01/Accounts/{AccountSid}/Messages/{MessageSid}.json
func (s *Simulator) GetMessage(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "MessageSid")

	s.mu.Lock()
	msg, ok := s.messages[sid]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, 20404, fmt.Sprintf("The requested resource /Messages/%s was not found", sid))
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// AdminListMessages handles GET /admin/messages
func (s *Simulator) AdminListMessages(w http.ResponseWriter, r *http.Request) {
	to := r.URL.Query().Get("to")

	s.mu.Lock()
	messages := make([]Message, 0, len(s.order))
	for _, sid := range s.order {
		if msg := s.messages[sid]; to == "" || msg.To == to {
			messages = append(messages, msg)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"messages": messages,
		"total":    len(messages),
	})
}

type inboundRequest struct {
	URL  string `json:"url"`
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

// AdminInbound handles POST /admin/inbound and delivers a reply text from a
// recipient to the given webhook url.
func (s *Simulator) AdminInbound(w http.ResponseWriter, r *http.Request) {
	var req inboundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, 0, "invalid JSON body")
		return
	}
	if req.URL == "" || req.From == "" {
		writeError(w, http.StatusUnprocessableEntity, 0, "url and from are required")
		return
	}

	sid := provider.NewMessageSID()
	s.callbacks <- callback{
		url: req.URL,
		form: url.Values{
			"MessageSid": {sid},
			"AccountSid": {s.cfg.AccountSID},
			"From":       {req.From},
			"To":         {req.To},
			"Body":       {req.Body},
		},
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"sid": sid})
}

// advance records a status change and queues its callback.
func (s *Simulator) advance(sid, status string) {
	s.mu.Lock()
	msg := s.messages[sid]
	msg.Status = status
	s.messages[sid] = msg
	s.mu.Unlock()

	if msg.StatusCallback == "" {
		return
	}

	form := url.Values{
		"MessageSid":    {msg.SID},
		"AccountSid":    {msg.AccountSID},
		"MessageStatus": {status},
		"To":            {msg.To},
		"From":          {msg.From},
	}
	if status == "undelivered" {
		form.Set("ErrorCode", undeliveredErrorCode)
	}
	s.callbacks <- callback{url: msg.StatusCallback, form: form}
}

// post delivers a callback signed with the auth token, retrying while the
// receiver is unreachable or answers with a server error.
func (s *Simulator) post(ctx context.Context, cb callback) {
	retrier, err := retry.New(retry.WithMaxAttemps(3))
	if err != nil {
		s.logger.Error("failed to create retrier", "error", err.Error())
		return
	}

	signature := provider.ComputeSignature(s.cfg.AuthToken, cb.url, cb.form)
	body := cb.form.Encode()

	var lastErr error
	ok := <-retrier.Retry(ctx, func(attempt int) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, cb.url, strings.NewReader(body))
		if err != nil {
			lastErr = err
			return true
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set(provider.SignatureHeader, signature)

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
			return false
		}
		resp.Body.Close()
		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("callback answered %d", resp.StatusCode)
			return false
		}
		lastErr = nil
		if resp.StatusCode >= http.StatusBadRequest {
			s.logger.Warn("callback rejected", "url", cb.url, "statusCode", resp.StatusCode)
		}
		return true
	}, true)

	if !ok || lastErr != nil {
		s.logger.Error("failed to deliver callback", "url", cb.url, "sid", cb.form.Get("MessageSid"), "error", fmt.Sprint(lastErr))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status, code int, message string) {
	writeJSON(w, status, map[string]any{
		"code":    code,
		"message": message,
		"status":  status,
	})
}
