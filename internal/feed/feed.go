// Package feed serves battle replays and batch statistics over HTTP, and
// streams battle events over WebSocket.
package feed

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/batch"
	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/battlefield"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/event"
	"github.com/cory-johannsen/skirmish/internal/scenario"
)

const (
	defaultListLimit = 20
	defaultMaxTurns  = 20
	writeWait        = 10 * time.Second
)

// Config wires a Server.
type Config struct {
	Scenarios []*scenario.Scenario
	// Default names the scenario served by the unscoped battle routes; empty
	// selects the first scenario by name.
	Default string
	Runner  *batch.Runner
	// Session persists batches; nil keeps them out of storage and disables
	// the batch listing endpoints.
	Session *batch.Session
	Options battle.Options
	// MaxBatch caps the count accepted by a batch request; 0 selects batch.MaxBattles.
	MaxBatch int
	// MaxTurns caps a requested turn limit; 0 selects 20. A scenario's own
	// turn limit is never capped.
	MaxTurns int
	Logger   *zap.Logger
}

// Server is the feed's HTTP handler.
type Server struct {
	scenarios map[string]*scenario.Scenario
	names     []string
	fallback  string
	runner    *batch.Runner
	session   *batch.Session
	opts      battle.Options
	maxBatch  int
	maxTurns  int
	logger    *zap.Logger
	router    *mux.Router
	upgrader  websocket.Upgrader
}

// NewServer builds the routes over cfg.
//
// Precondition: scenario names in cfg.Scenarios are unique.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	runner := cfg.Runner
	if runner == nil {
		runner = batch.NewRunner(logger)
	}
	maxBatch := cfg.MaxBatch
	if maxBatch <= 0 || maxBatch > batch.MaxBattles {
		maxBatch = batch.MaxBattles
	}
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	s := &Server{
		scenarios: make(map[string]*scenario.Scenario, len(cfg.Scenarios)),
		runner:    runner,
		session:   cfg.Session,
		opts:      cfg.Options,
		maxBatch:  maxBatch,
		maxTurns:  maxTurns,
		logger:    logger,
		router:    mux.NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, sc := range cfg.Scenarios {
		s.scenarios[sc.Name] = sc
		s.names = append(s.names, sc.Name)
	}
	sort.Strings(s.names)
	s.fallback = cfg.Default
	if s.fallback == "" && len(s.names) > 0 {
		s.fallback = s.names[0]
	}

	r := s.router
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/scenarios", s.handleScenarios).Methods(http.MethodGet)
	api.HandleFunc("/battles/{seed:-?[0-9]+}", s.handleBattle).Methods(http.MethodGet)
	api.HandleFunc("/scenarios/{name}/battles/{seed:-?[0-9]+}", s.handleBattle).Methods(http.MethodGet)
	api.HandleFunc("/scenarios/{name}/batches", s.handleRunBatch).Methods(http.MethodPost)
	api.HandleFunc("/batches", s.handleListBatches).Methods(http.MethodGet)
	api.HandleFunc("/batches/{id}", s.handleGetBatch).Methods(http.MethodGet)
	r.HandleFunc("/ws/battles/{seed:-?[0-9]+}", s.handleStream).Methods(http.MethodGet)
	r.HandleFunc("/ws/scenarios/{name}/battles/{seed:-?[0-9]+}", s.handleStream).Methods(http.MethodGet)
	r.Use(s.logRequests)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// ScenarioInfo describes a scenario in the listing.
type ScenarioInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MaxTurns    int    `json:"max_turns"`
	ArmyA       string `json:"army_a"`
	ArmyB       string `json:"army_b"`
	Units       [2]int `json:"units"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScenarios(w http.ResponseWriter, _ *http.Request) {
	out := make([]ScenarioInfo, 0, len(s.names))
	for _, name := range s.names {
		sc := s.scenarios[name]
		out = append(out, ScenarioInfo{
			Name:        sc.Name,
			Description: sc.Description,
			MaxTurns:    sc.Turns(),
			ArmyA:       sc.Armies.A.Name,
			ArmyB:       sc.Armies.B.Name,
			Units:       [2]int{len(sc.Armies.A.Units), len(sc.Armies.B.Units)},
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// battleFor resolves the scenario, seed and turn limit of a battle request,
// writing the error response itself when it returns false. Routes without a
// scenario name use the default scenario.
func (s *Server) battleFor(w http.ResponseWriter, r *http.Request) (*scenario.Scenario, int64, int, bool) {
	vars := mux.Vars(r)
	name, named := vars["name"]
	if !named {
		name = s.fallback
	}
	sc, ok := s.scenarios[name]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown scenario "+strconv.Quote(name))
		return nil, 0, 0, false
	}
	seed, err := strconv.ParseInt(vars["seed"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "seed: "+err.Error())
		return nil, 0, 0, false
	}
	turns := sc.Turns()
	if q := r.URL.Query().Get("turns"); q != "" {
		turns, err = strconv.Atoi(q)
		if err != nil || turns < 1 || turns > s.maxTurns {
			writeError(w, http.StatusBadRequest, s.turnsMessage("turns"))
			return nil, 0, 0, false
		}
	}
	return sc, seed, turns, true
}

func (s *Server) play(sc *scenario.Scenario, seed int64, turns int) (*battle.Result, error) {
	return battle.Run(&sc.Battlefield, sc.Armies.A.Units, sc.Armies.B.Units, turns, seed, s.opts)
}

func (s *Server) handleBattle(w http.ResponseWriter, r *http.Request) {
	sc, seed, turns, ok := s.battleFor(w, r)
	if !ok {
		return
	}
	res, err := s.play(sc, seed, turns)
	if err != nil {
		s.writeRunError(w, "battle", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) turnsMessage(field string) string {
	return field + " must be an integer in [1, " + strconv.Itoa(s.maxTurns) + "]"
}

// writeRunError reports a rejected scenario as 422 and anything else as 500.
func (s *Server) writeRunError(w http.ResponseWriter, what string, err error) {
	var setupErr *battle.SetupError
	if errors.As(err, &setupErr) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.logger.Error(what+" failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, what+" failed")
}

// BatchRequest is the body of a batch request. A nil BaseSeed draws a random one.
type BatchRequest struct {
	Count    int    `json:"count"`
	BaseSeed *int64 `json:"base_seed,omitempty"`
	Workers  int    `json:"workers,omitempty"`
	MaxTurns int    `json:"max_turns,omitempty"`
}

// BatchView is a batch record with the derived statistics clients display.
type BatchView struct {
	batch.Record
	WinRate   [2]float64 `json:"win_rate"`
	MeanTurns float64    `json:"mean_turns"`
	MeanVP    [2]float64 `json:"mean_vp"`
	StdDevVP  [2]float64 `json:"stddev_vp"`
}

func viewOf(rec batch.Record) BatchView {
	v := BatchView{Record: rec}
	if rec.Stats == nil {
		return v
	}
	v.MeanTurns = rec.Stats.MeanTurns()
	for _, p := range battlefield.Players {
		v.WinRate[p] = rec.Stats.WinRate(p)
		v.MeanVP[p] = rec.Stats.MeanVP(p)
		v.StdDevVP[p] = rec.Stats.StdDevVP(p)
	}
	return v
}

func (s *Server) handleRunBatch(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	sc, ok := s.scenarios[name]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown scenario "+strconv.Quote(name))
		return
	}
	var req BatchRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "decoding request: "+err.Error())
		return
	}
	if req.Count < 1 || req.Count > s.maxBatch {
		writeError(w, http.StatusBadRequest, "count must be in [1, "+strconv.Itoa(s.maxBatch)+"]")
		return
	}
	if req.Workers < 0 {
		writeError(w, http.StatusBadRequest, "workers must not be negative")
		return
	}
	if req.MaxTurns < 0 || req.MaxTurns > s.maxTurns {
		writeError(w, http.StatusBadRequest, s.turnsMessage("max_turns"))
		return
	}
	turns := sc.Turns()
	if req.MaxTurns > 0 {
		turns = req.MaxTurns
	}
	base := dice.NewSeed()
	if req.BaseSeed != nil {
		base = *req.BaseSeed
	}

	rec, err := s.runner.RunRecord(r.Context(), batch.Request{
		Scenario:    sc.Name,
		Battlefield: &sc.Battlefield,
		ArmyA:       sc.Armies.A.Units,
		ArmyB:       sc.Armies.B.Units,
		MaxTurns:    turns,
		Count:       req.Count,
		BaseSeed:    base,
		Workers:     req.Workers,
		Options:     s.opts,
	}, s.session)
	if err != nil {
		s.logger.Warn("batch request failed", zap.String("scenario", sc.Name), zap.Error(err))
		s.writeRunError(w, "batch", err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(rec))
}

func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	if s.session == nil {
		writeError(w, http.StatusNotFound, "batch storage is disabled")
		return
	}
	limit := defaultListLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	recs, err := s.session.Store().ListBatches(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing batches", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "listing batches failed")
		return
	}
	out := make([]BatchView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, viewOf(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	if s.session == nil {
		writeError(w, http.StatusNotFound, "batch storage is disabled")
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed batch id")
		return
	}
	rec, err := s.session.Store().Batch(r.Context(), id)
	if errors.Is(err, batch.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("fetching batch", zap.Stringer("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "fetching batch failed")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(rec))
}

// Message is one WebSocket frame of a battle stream: every event in order,
// then a single result or error frame.
type Message struct {
	Type   string       `json:"type"`
	Event  *event.Event `json:"event,omitempty"`
	Result *Outcome     `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// Outcome is the result frame of a battle stream.
type Outcome struct {
	Seed            int64                `json:"seed"`
	Winner          battlefield.PlayerID `json:"winner"`
	Decision        battle.Decision      `json:"decision"`
	Turns           int                  `json:"turns"`
	VP              [2]int               `json:"vp"`
	SurvivingPoints [2]int               `json:"surviving_points"`
	Summary         string               `json:"summary"`
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sc, seed, turns, ok := s.battleFor(w, r)
	if !ok {
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	send := func(m Message) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(m)
	}

	res, err := s.play(sc, seed, turns)
	if err != nil {
		s.logger.Warn("streamed battle failed", zap.Error(err))
		_ = send(Message{Type: "error", Error: err.Error()})
		return
	}
	for i := range res.Events {
		if err := send(Message{Type: "event", Event: &res.Events[i]}); err != nil {
			s.logger.Debug("stream client gone", zap.Int64("seed", seed), zap.Error(err))
			return
		}
	}
	if err := send(Message{Type: "result", Result: &Outcome{
		Seed:            res.Seed,
		Winner:          res.Winner,
		Decision:        res.Decision,
		Turns:           res.Turns,
		VP:              res.VP,
		SurvivingPoints: res.SurvivingPoints,
		Summary:         res.Summary(),
	}}); err != nil {
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "battle over"),
		time.Now().Add(writeWait))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
