package api

import (
	"errors"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"binance-monitor/internal/auth"
	"binance-monitor/internal/hosts"
	"binance-monitor/internal/scheduler"
)

func (s *Server) handleRoot(c *gin.Context) {
	successResponse(c, gin.H{
		"client_version": s.config.ClientVersion,
		"server_version": s.config.ServerVersion,
	})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	PwdHash  string `json:"pwd_hash" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "username and pwd_hash are required")
		return
	}

	token, err := s.authService.Login(c.Request.Context(), req.Username, req.PwdHash)
	if errors.Is(err, auth.ErrBadCredentials) {
		errorResponse(c, http.StatusUnauthorized, "invalid username or password")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("login failed")
		errorResponse(c, http.StatusInternalServerError, "login failed")
		return
	}
	successResponse(c, gin.H{"token": token})
}

func (s *Server) handleCreateUser(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "username and pwd_hash are required")
		return
	}

	err := s.authService.Register(c.Request.Context(), req.Username, req.PwdHash)
	if errors.Is(err, auth.ErrUserExists) {
		errorResponse(c, http.StatusConflict, "username already taken")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("user creation failed")
		errorResponse(c, http.StatusInternalServerError, "user creation failed")
		return
	}
	successResponse(c, nil)
}

type uploadedHost struct {
	Alias     string `json:"alias" binding:"required"`
	APIKey    string `json:"api_key" binding:"required"`
	SecretKey string `json:"secret_key" binding:"required"`
	TgGroup   string `json:"tg_group"`
}

// handleUpload registers accounts. Only the hosts table is written; the
// reconciler poll is the sole announcer of new accounts, so a stream is
// never started twice for one row.
func (s *Server) handleUpload(c *gin.Context) {
	var uploads []uploadedHost
	if err := c.ShouldBindJSON(&uploads); err != nil {
		errorResponse(c, http.StatusBadRequest, "expected a list of accounts")
		return
	}

	var failed []string
	for _, up := range uploads {
		acct := hosts.Account{
			Alias:         up.Alias,
			APIKey:        up.APIKey,
			SecretKey:     up.SecretKey,
			TelegramGroup: up.TgGroup,
		}
		if err := s.repo.InsertHost(c.Request.Context(), acct); err != nil {
			s.log.Error().Err(err).Str("alias", up.Alias).Msg("host insert failed")
			failed = append(failed, up.APIKey)
		}
	}
	successResponse(c, gin.H{"failed": failed})
}

func (s *Server) handleTradingPairs(c *gin.Context) {
	successResponse(c, gin.H{"pairs": s.prices.Symbols()})
}

type priceRequest struct {
	Contracts []string `json:"contracts" binding:"required"`
}

type priceEntry struct {
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
	Open24h float64 `json:"open_24h"`
	Change  float64 `json:"change"`
}

func (s *Server) handlePrice(c *gin.Context) {
	var req priceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "contracts list is required")
		return
	}

	entries := make([]priceEntry, 0, len(req.Contracts))
	for _, name := range req.Contracts {
		entry := priceEntry{Name: strings.ToUpper(name)}
		if tk, ok := s.prices.Get(name); ok {
			entry.Price = tk.Last
			entry.Open24h = tk.Open24h
			entry.Change = tk.Change24h()
		}
		entries = append(entries, entry)
	}
	successResponse(c, gin.H{"prices": entries})
}

type taskContract struct {
	TokenName string  `json:"token_name" binding:"required"`
	ColumnID  int     `json:"col_id"`
	Side      string  `json:"side"`
	Time      int     `json:"time" binding:"required"`
	Price     float64 `json:"price"`
	Qty       float64 `json:"qty"`
	Money     float64 `json:"money"`
	TaskType  int     `json:"task_type"`
}

type taskRequest struct {
	ID        string         `json:"id"`
	Contracts []taskContract `json:"contracts"`
}

func (s *Server) handleTask(c *gin.Context) {
	claims := claimsFrom(c)

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "malformed task request")
		return
	}

	switch action := c.Query("action"); action {
	case "add", "new":
		s.addTasks(c, claims.Username, req)
	case "stop":
		s.pushStatusChange(c, claims.Username, req.ID, scheduler.StateStopped)
	case "remove", "delete":
		s.pushStatusChange(c, claims.Username, req.ID, scheduler.StateRemove)
	case "restart":
		s.pushStatusChange(c, claims.Username, req.ID, scheduler.StateRestarted)
	case "result":
		s.taskResults(c, claims.Username, req.ID)
	default:
		errorResponse(c, http.StatusBadRequest, "unknown task action")
	}
}

func (s *Server) addTasks(c *gin.Context, username string, req taskRequest) {
	if len(req.Contracts) == 0 {
		errorResponse(c, http.StatusBadRequest, "contracts list is required")
		return
	}
	for _, ct := range req.Contracts {
		if ct.Time <= 0 {
			errorResponse(c, http.StatusBadRequest, "monitor time must be positive")
			return
		}
	}

	requestID := req.ID
	if requestID == "" {
		requestID = newRequestID()
	}

	now := time.Now().UTC()
	for _, ct := range req.Contracts {
		side := strings.ToLower(ct.Side)
		switch side {
		case scheduler.DirectionBuy, scheduler.DirectionSell:
		default:
			side = scheduler.DirectionNone
		}

		s.taskQueue.Append(&scheduler.ScheduledTask{
			Username:    username,
			TokenName:   strings.ToUpper(ct.TokenName),
			RequestID:   requestID,
			Direction:   side,
			PeriodSecs:  ct.Time,
			ColumnID:    ct.ColumnID,
			Status:      scheduler.StateInitiated,
			Type:        scheduler.TaskType(ct.TaskType),
			OrderPrice:  ct.Price,
			Money:       ct.Money,
			Quantity:    ct.Qty,
			CurrentTime: now,
		})
	}
	successResponse(c, gin.H{"id": requestID})
}

// pushStatusChange queues a status-only task. The caller's username is
// stamped on it: the watcher keys its ticker sets by username, so an
// unstamped change would never find the tickers it should halt.
func (s *Server) pushStatusChange(c *gin.Context, username, requestID string, state scheduler.TaskState) {
	if requestID == "" {
		errorResponse(c, http.StatusBadRequest, "task id is required")
		return
	}
	s.taskQueue.Append(&scheduler.ScheduledTask{Username: username, RequestID: requestID, Status: state})
	successResponse(c, gin.H{"id": requestID})
}

func (s *Server) taskResults(c *gin.Context, username, requestID string) {
	if requestID == "" {
		errorResponse(c, http.StatusBadRequest, "task id is required")
		return
	}

	records, err := s.repo.LoadRecords(c.Request.Context(), username, requestID)
	if err != nil {
		s.log.Error().Err(err).Str("request_id", requestID).Msg("record load failed")
		errorResponse(c, http.StatusInternalServerError, "could not load results")
		return
	}

	type resultEntry struct {
		TokenName string  `json:"token_name"`
		Side      string  `json:"side"`
		Time      string  `json:"time"`
		Profit    float64 `json:"profit"`
		MktPrice  float64 `json:"mkt_price"`
		Price     float64 `json:"ordered_price"`
		Money     float64 `json:"money"`
		Quantity  float64 `json:"quantity"`
		ColumnID  int     `json:"col_id"`
		TaskType  int     `json:"task_type"`
	}
	entries := make([]resultEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, resultEntry{
			TokenName: rec.TokenName,
			Side:      rec.Direction,
			Time:      rec.Time.UTC().Format("2006-01-02 15:04:05"),
			Profit:    rec.Profit,
			MktPrice:  rec.MktPrice,
			Price:     rec.OrderedPrice,
			Money:     rec.Money,
			Quantity:  rec.Quantity,
			ColumnID:  rec.ColumnID,
			TaskType:  int(rec.Type),
		})
	}
	successResponse(c, gin.H{"id": requestID, "results": entries})
}

type taskGroup struct {
	ID        string         `json:"id"`
	Contracts []taskContract `json:"contracts"`
}

// handleMyTasks returns the caller's tasks grouped by request id.
func (s *Server) handleMyTasks(c *gin.Context) {
	claims := claimsFrom(c)

	tasks, err := s.repo.MyTasks(c.Request.Context(), claims.Username)
	if err != nil {
		s.log.Error().Err(err).Msg("task listing failed")
		errorResponse(c, http.StatusInternalServerError, "could not load tasks")
		return
	}

	index := make(map[string]int)
	groups := make([]taskGroup, 0)
	for _, t := range tasks {
		i, ok := index[t.RequestID]
		if !ok {
			i = len(groups)
			index[t.RequestID] = i
			groups = append(groups, taskGroup{ID: t.RequestID})
		}
		groups[i].Contracts = append(groups[i].Contracts, taskContract{
			TokenName: t.TokenName,
			ColumnID:  t.ColumnID,
			Side:      t.Direction,
			Time:      t.PeriodSecs,
			Price:     t.OrderPrice,
			Qty:       t.Quantity,
			Money:     t.Money,
			TaskType:  int(t.Type),
		})
	}
	successResponse(c, gin.H{"tasks": groups})
}

const requestIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newRequestID mints the 10-character id that groups one submission's
// tasks.
func newRequestID() string {
	b := make([]byte, 10)
	for i := range b {
		b[i] = requestIDAlphabet[rand.Intn(len(requestIDAlphabet))]
	}
	return string(b)
}
