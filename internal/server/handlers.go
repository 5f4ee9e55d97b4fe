package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/house-report/internal/cache"
	"github.com/sells-group/house-report/internal/model"
	"github.com/sells-group/house-report/internal/provider"
	"github.com/sells-group/house-report/internal/report"
	"github.com/sells-group/house-report/internal/store"
)

type createProfileRequest struct {
	Address  string `json:"address"`
	Radius   int    `json:"radius"`
	Language string `json:"language"`
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := IdentityFrom(ctx)

	var req createProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	q := model.Query{
		Address:  strings.TrimSpace(req.Address),
		Radius:   req.Radius,
		Language: req.Language,
	}
	switch {
	case q.Address == "":
		writeError(w, http.StatusBadRequest, "address is required")
		return
	case q.Radius < 0 || q.Radius > maxRadius:
		writeError(w, http.StatusBadRequest, "radius must be between 0 and 5000")
		return
	}
	if q.Language == "" {
		q.Language = "fr"
	}

	p, cached, err := s.deps.Cache.GetOrBuild(ctx, q, func(ctx context.Context) (*model.HouseProfile, error) {
		return s.deps.Builder.Run(ctx, q)
	})
	if errors.Is(err, provider.ErrAddressNotFound) {
		writeError(w, http.StatusNotFound, "address not found")
		return
	}
	if err != nil {
		zap.L().Error("server: build profile", zap.String("address", q.Address), zap.Error(err))
		writeError(w, http.StatusBadGateway, "profile could not be built")
		return
	}

	// Only a successfully built profile is charged; admins are never charged.
	if !id.Admin {
		charged, err := s.deps.Store.ConsumeCredit(ctx, id.UserID, cache.Key(q))
		if errors.Is(err, store.ErrInsufficientCredits) {
			writeError(w, http.StatusPaymentRequired, "insufficient credits")
			return
		}
		if err != nil {
			s.internalError(w, "consume credit", err)
			return
		}
		zap.L().Debug("server: profile unlock",
			zap.String("user_id", id.UserID),
			zap.Bool("charged", charged),
		)
	}

	sp := &model.StoredProfile{UserID: id.UserID, Profile: p}
	if err := s.deps.Store.SaveProfile(ctx, sp); err != nil {
		s.internalError(w, "save profile", err)
		return
	}

	if cached {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	writeJSON(w, http.StatusCreated, sp.Profile)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	sp, ok := s.loadOwned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sp.Profile)
}

type sectionsResponse struct {
	ID       string          `json:"id"`
	Sections []model.Section `json:"sections"`
}

func (s *Server) handleGetSections(w http.ResponseWriter, r *http.Request) {
	sp, ok := s.loadOwned(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(report.Markdown(sp.Profile)))
		return
	}
	sections := report.Project(sp.Profile)
	if sections == nil {
		sections = []model.Section{}
	}
	writeJSON(w, http.StatusOK, sectionsResponse{ID: sp.ID, Sections: sections})
}

// loadOwned fetches the profile named in the path, visible to its owner
// and to admins.
func (s *Server) loadOwned(w http.ResponseWriter, r *http.Request) (*model.StoredProfile, bool) {
	ctx := r.Context()
	id, _ := IdentityFrom(ctx)

	sp, err := s.deps.Store.GetProfile(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "profile not found")
		return nil, false
	}
	if err != nil {
		s.internalError(w, "get profile", err)
		return nil, false
	}
	if sp.UserID != id.UserID && !id.Admin {
		writeError(w, http.StatusForbidden, "profile belongs to another user")
		return nil, false
	}
	return sp, true
}

type balanceResponse struct {
	UserID  string `json:"user_id"`
	Credits int    `json:"credits"`
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	credits, err := s.deps.Store.Balance(r.Context(), id.UserID)
	if err != nil {
		s.internalError(w, "balance", err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{UserID: id.UserID, Credits: credits})
}

type grantResponse struct {
	Applied bool   `json:"applied"`
	UserID  string `json:"user_id"`
	Credits int    `json:"credits"`
}

func (s *Server) handleGrantCredits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var g model.CreditGrant
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	switch {
	case g.UserID == "":
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	case g.PaymentRef == "":
		writeError(w, http.StatusBadRequest, "payment_ref is required")
		return
	case g.Credits <= 0:
		writeError(w, http.StatusBadRequest, "credits must be positive")
		return
	}

	applied, err := s.deps.Store.GrantCredits(ctx, g)
	if err != nil {
		s.internalError(w, "grant credits", err)
		return
	}
	credits, err := s.deps.Store.Balance(ctx, g.UserID)
	if err != nil {
		s.internalError(w, "balance", err)
		return
	}
	zap.L().Info("server: credits granted",
		zap.String("user_id", g.UserID),
		zap.String("payment_ref", g.PaymentRef),
		zap.Bool("applied", applied),
	)
	writeJSON(w, http.StatusOK, grantResponse{Applied: applied, UserID: g.UserID, Credits: credits})
}

type profileSummary struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Address   string    `json:"address"`
	Citycode  string    `json:"citycode,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type listResponse struct {
	Profiles []profileSummary `json:"profiles"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), store.DefaultListLimit)
	if err != nil || limit < 1 || limit > 500 {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
		return
	}
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "offset must be >= 0")
		return
	}

	list, err := s.deps.Store.ListProfiles(r.Context(), store.ProfileFilter{
		Citycode: q.Get("citycode"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		s.internalError(w, "list profiles", err)
		return
	}
	out := listResponse{Profiles: make([]profileSummary, 0, len(list)), Limit: limit, Offset: offset}
	for _, sp := range list {
		out.Profiles = append(out.Profiles, profileSummary{
			ID:        sp.ID,
			UserID:    sp.UserID,
			Address:   sp.Address,
			Citycode:  sp.Citycode,
			CreatedAt: sp.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleProviders lists the circuit state of every provider called so far.
func (s *Server) handleProviders(w http.ResponseWriter, _ *http.Request) {
	out := map[string]string{}
	if s.deps.Breakers != nil {
		for name, st := range s.deps.Breakers.States() {
			out[name] = st.String()
		}
	}
	writeJSON(w, http.StatusOK, map[string]map[string]string{"providers": out})
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	zap.L().Error("server: "+op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	return v, eris.Wrapf(err, "server: parse %q", raw)
}
